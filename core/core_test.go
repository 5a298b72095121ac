package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/crypto"
)

func TestChoiceBeats(t *testing.T) {
	assert.True(t, ChoiceRock.Beats(ChoiceScissors))
	assert.True(t, ChoicePaper.Beats(ChoiceRock))
	assert.True(t, ChoiceScissors.Beats(ChoicePaper))
	assert.False(t, ChoiceRock.Beats(ChoicePaper))
	assert.False(t, ChoiceRock.Beats(ChoiceRock))
	assert.True(t, ChoiceRock.Beats(ChoiceNone))
	assert.False(t, ChoiceNone.Beats(ChoiceRock))
	assert.False(t, ChoiceNone.Beats(ChoiceNone))

	assert.True(t, ChoiceNone.Valid())
	assert.False(t, Choice(4).Valid())
}

func TestTally(t *testing.T) {
	p1, p2, ties := Tally([]Round{
		{ChoiceRock, ChoiceScissors},
		{ChoiceRock, ChoicePaper},
		{ChoicePaper, ChoicePaper},
		{ChoiceNone, ChoiceNone},
		{ChoiceScissors, ChoiceNone},
	})
	assert.Equal(t, uint32(2), p1)
	assert.Equal(t, uint32(1), p2)
	assert.Equal(t, uint32(2), ties)
}

func TestFeeCut(t *testing.T) {
	assert.Equal(t, uint64(10), FeeCut(2_000, 50))
	assert.Equal(t, uint64(0), FeeCut(199, 50))
	assert.Equal(t, uint64(0), FeeCut(2_000, 0))
	assert.Equal(t, uint64(2_000), FeeCut(2_000, BpsDenominator))
	assert.Equal(t, uint64(2_000), FeeCut(2_000, BpsDenominator+1))
	// No overflow on the intermediate product.
	assert.Equal(t, uint64(math.MaxUint64/100), FeeCut(math.MaxUint64, 100))
	assert.Equal(t, uint64(1_990), AmountAfterCut(2_000, 50))
}

func TestOutcomeDigest(t *testing.T) {
	choices := []Round{{ChoiceRock, ChoiceScissors}, {ChoicePaper, ChoicePaper}, {ChoiceRock, ChoicePaper}}
	d1, err := OutcomeDigest(1, choices, "alice")
	require.NoError(t, err)
	assert.Len(t, d1, 64)

	// Only the tally matters, not the order of rounds.
	reordered := []Round{choices[2], choices[0], choices[1]}
	d2, err := OutcomeDigest(1, reordered, "alice")
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	for _, other := range []struct {
		id     uint64
		winner string
	}{{2, "alice"}, {1, "bob"}, {1, NoWinner}} {
		d, err := OutcomeDigest(other.id, choices, other.winner)
		require.NoError(t, err)
		assert.NotEqual(t, d1, d)
	}
}

func TestValidateTurns(t *testing.T) {
	p := DefaultPolicy("owner", "oracle")
	assert.NoError(t, p.ValidateTurns(1))
	assert.NoError(t, p.ValidateTurns(9))
	assert.ErrorIs(t, p.ValidateTurns(0), ErrValidation)
	assert.ErrorIs(t, p.ValidateTurns(2), ErrValidation)
	assert.ErrorIs(t, p.ValidateTurns(11), ErrValidation)

	p.OddTurnsOnly = false
	assert.NoError(t, p.ValidateTurns(2))
}

func TestGameContributors(t *testing.T) {
	g := &Game{Player1: "alice", StakeAmount: 10, State: StateWaiting}
	assert.Equal(t, []string{"alice"}, g.Contributors())

	g.Player2, g.State = "bob", StateInProgress
	assert.Equal(t, []string{"alice", "bob"}, g.Contributors())
	assert.Equal(t, "bob", g.Opponent("alice"))
	assert.Equal(t, "", g.Opponent("carol"))
	assert.False(t, g.IsParticipant(""))

	g.StakeAmount = 0
	assert.Nil(t, g.Contributors())
}

func TestAccountCreditDebit(t *testing.T) {
	acc := &Account{Address: "alice"}
	require.NoError(t, acc.Credit(NativeAsset, 10))
	require.NoError(t, acc.Credit("gold", 5))
	assert.ErrorIs(t, acc.Credit(NativeAsset, math.MaxUint64), ErrTransfer)
	assert.ErrorIs(t, acc.Debit("gold", 6), ErrTransfer)

	require.NoError(t, acc.Debit("gold", 5))
	assert.NotContains(t, acc.Tokens, "gold")
	assert.Equal(t, uint64(10), acc.BalanceOf(NativeAsset))
}

func TestTransactionSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	tx, err := NewTransaction("chain", TxJoinGame, pub.Hex(), 0, 0, 100, GameIDPayload{GameID: 1})
	require.NoError(t, err)
	tx.Sign(priv)
	require.NoError(t, tx.Verify())

	tx.Value = 1
	assert.Error(t, tx.Verify())
}

func TestMempoolRejectsForeignChain(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	m := NewMempool("home")

	foreign, err := NewTransaction("away", TxWithdraw, pub.Hex(), 0, 0, 0, struct{}{})
	require.NoError(t, err)
	foreign.Sign(priv)
	assert.Error(t, m.Add(foreign))

	tx, err := NewTransaction("home", TxWithdraw, pub.Hex(), 0, 0, 0, struct{}{})
	require.NoError(t, err)
	tx.Sign(priv)
	require.NoError(t, m.Add(tx))
	assert.Error(t, m.Add(tx))
	assert.Equal(t, 1, m.Size())

	m.Remove([]string{tx.ID})
	assert.Zero(t, m.Size())
	assert.Empty(t, m.Pending(10))
}

func TestMempoolPendingOrdersNoncesPerSender(t *testing.T) {
	m := NewMempool("home")
	add := func(priv crypto.PrivateKey, from string, nonce uint64) string {
		tx, err := NewTransaction("home", TxWithdraw, from, nonce, 0, 0, struct{}{})
		require.NoError(t, err)
		tx.Sign(priv)
		require.NoError(t, m.Add(tx))
		return tx.ID
	}
	alicePriv, alice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bobPriv, bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	a1 := add(alicePriv, alice.Hex(), 1)
	b0 := add(bobPriv, bob.Hex(), 0)
	a0 := add(alicePriv, alice.Hex(), 0)

	var got []string
	for _, tx := range m.Pending(10) {
		got = append(got, tx.ID)
	}
	assert.Equal(t, []string{a0, b0, a1}, got)
	assert.Len(t, m.Pending(2), 2)
}

func TestBlockchainRejectsTimestampRegression(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bc := NewBlockchain(newMemStore())
	require.NoError(t, bc.Init())

	b0 := NewBlock(0, "", pub.Hex(), 200, nil)
	b0.Sign(priv)
	require.NoError(t, bc.AddBlock(b0))

	early := NewBlock(1, b0.Hash, pub.Hex(), 199, nil)
	early.Sign(priv)
	assert.Error(t, bc.AddBlock(early))

	wrongParent := NewBlock(1, "beef", pub.Hex(), 300, nil)
	wrongParent.Sign(priv)
	assert.Error(t, bc.AddBlock(wrongParent))

	ok := NewBlock(1, b0.Hash, pub.Hex(), 200, nil)
	ok.Sign(priv)
	require.NoError(t, bc.AddBlock(ok))
	assert.Equal(t, int64(200), bc.Now())
}

// memStore is a minimal BlockStore; the full one lives in internal/testutil,
// which imports this package.
type memStore struct {
	blocks  map[string]*Block
	heights map[int64]string
	tip     string
}

func newMemStore() *memStore {
	return &memStore{blocks: map[string]*Block{}, heights: map[int64]string{}}
}

func (s *memStore) GetBlock(hash string) (*Block, error) {
	b, ok := s.blocks[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}
func (s *memStore) PutBlock(b *Block) error { s.blocks[b.Hash] = b; return nil }
func (s *memStore) GetBlockByHeight(h int64) (*Block, error) {
	return s.GetBlock(s.heights[h])
}
func (s *memStore) PutBlockByHeight(h int64, hash string) error { s.heights[h] = hash; return nil }
func (s *memStore) GetTip() (string, error)                     { return s.tip, nil }
func (s *memStore) SetTip(hash string) error                    { s.tip = hash; return nil }
func (s *memStore) CommitBlock(b *Block) error {
	s.blocks[b.Hash] = b
	s.heights[b.Header.Height] = b.Hash
	s.tip = b.Hash
	return nil
}
