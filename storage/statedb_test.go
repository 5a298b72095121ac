package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/internal/testutil"
	"github.com/tolelom/tolarena/storage"
)

func TestMissingRecordsReadAsZero(t *testing.T) {
	s := storage.NewStateDB(testutil.NewMemDB())

	acc, err := s.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, &core.Account{Address: "alice"}, acc)

	st, err := s.GetPlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, &core.PlayerStats{Address: "alice"}, st)

	owed, err := s.GetPendingWithdrawal("alice")
	require.NoError(t, err)
	assert.Zero(t, owed)

	_, err = s.GetGame(1)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetAssetMinimum("gold")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetTournamentAuthority("alice")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetPolicy()
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGameCounterStartsAtOne(t *testing.T) {
	db := testutil.NewMemDB()
	s := storage.NewStateDB(db)
	for want := uint64(1); want <= 3; want++ {
		id, err := s.NextGameID()
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	require.NoError(t, s.Commit())

	// The counter survives a reopen.
	id, err := storage.NewStateDB(db).NextGameID()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)
}

func TestGameRoundTrip(t *testing.T) {
	s := storage.NewStateDB(testutil.NewMemDB())
	g := &core.Game{
		ID:            7,
		Player1:       "alice",
		Player2:       "bob",
		StakeAmount:   500,
		Asset:         core.NativeAsset,
		State:         core.StateCompleted,
		NumberOfTurns: 1,
		Choices:       []core.Round{{Player1: core.ChoicePaper, Player2: core.ChoiceRock}},
		Winner:        "alice",
	}
	require.NoError(t, s.SetGame(g))
	got, err := s.GetGame(7)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestPendingWithdrawalZeroDeletes(t *testing.T) {
	db := testutil.NewMemDB()
	s := storage.NewStateDB(db)
	require.NoError(t, s.SetPendingWithdrawal("alice", 40))
	require.NoError(t, s.Commit())
	require.NoError(t, s.SetPendingWithdrawal("alice", 0))
	require.NoError(t, s.Commit())

	_, err := db.Get([]byte("wd:alice"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSnapshotRevert(t *testing.T) {
	s := storage.NewStateDB(testutil.NewMemDB())
	require.NoError(t, s.SetAccount(&core.Account{Address: "alice", Balance: 10}))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.SetAccount(&core.Account{Address: "alice", Balance: 99}))
	require.NoError(t, s.SetTournamentAuthority("carol", "cup"))
	require.NoError(t, s.RevertToSnapshot(snap))

	acc, err := s.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acc.Balance)
	_, err = s.GetTournamentAuthority("carol")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Error(t, s.RevertToSnapshot(snap))
}

func TestComputeRootIsDeterministic(t *testing.T) {
	write := func(s *storage.StateDB, order []string) {
		for _, addr := range order {
			require.NoError(t, s.SetAccount(&core.Account{Address: addr, Balance: 1}))
		}
		require.NoError(t, s.SetAssetMinimum("gold", 5))
	}
	a := storage.NewStateDB(testutil.NewMemDB())
	b := storage.NewStateDB(testutil.NewMemDB())
	write(a, []string{"alice", "bob", "carol"})
	write(b, []string{"carol", "alice", "bob"})
	assert.Equal(t, a.ComputeRoot(), b.ComputeRoot())

	// Committing does not change the root.
	before := a.ComputeRoot()
	require.NoError(t, a.Commit())
	assert.Equal(t, before, a.ComputeRoot())

	require.NoError(t, a.DeleteAssetMinimum("gold"))
	assert.NotEqual(t, before, a.ComputeRoot())
}

func TestDiscardDropsBufferedWrites(t *testing.T) {
	s := storage.NewStateDB(testutil.NewMemDB())
	require.NoError(t, s.SetPolicy(core.DefaultPolicy("owner", "oracle")))
	require.NoError(t, s.Commit())
	committed := s.ComputeRoot()

	require.NoError(t, s.SetAccount(&core.Account{Address: "alice", Balance: 1}))
	s.Discard()
	assert.Equal(t, committed, s.ComputeRoot())
	pol, err := s.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, "owner", pol.Owner)
}
