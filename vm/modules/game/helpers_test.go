package game_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/internal/testutil"
	"github.com/tolelom/tolarena/wallet"

	_ "github.com/tolelom/tolarena/vm/modules/economy"
	_ "github.com/tolelom/tolarena/vm/modules/game"
)

const (
	stake    = 1_000
	funds    = 10_000
	turns    = 3
	window   = 10 * time.Minute
	totalPot = 2 * stake
)

type arena struct {
	*testutil.Ledger
	p1, p2 *wallet.Wallet
}

func newArena(t *testing.T) *arena {
	t.Helper()
	l := testutil.NewLedger(t)
	return &arena{Ledger: l, p1: l.NewWallet(funds), p2: l.NewWallet(funds)}
}

// rounds returns n rounds that player 1 wins.
func rounds(n int) []core.Round {
	out := make([]core.Round, n)
	for i := range out {
		out[i] = core.Round{Player1: core.ChoiceRock, Player2: core.ChoiceScissors}
	}
	return out
}

// open creates a native game from p1 and returns its id.
func (a *arena) open(t *testing.T) uint64 {
	t.Helper()
	a.MustSend(a.p1, core.TxCreateGame, stake, core.CreateGamePayload{Stake: stake, Turns: turns})
	created := a.Events(events.EventGameCreated)
	id, _ := created[len(created)-1].Data["game_id"].(uint64)
	require.NotZero(t, id)
	return id
}

// started creates and joins a native game.
func (a *arena) started(t *testing.T) uint64 {
	t.Helper()
	id := a.open(t)
	a.MustSend(a.p2, core.TxJoinGame, stake, core.GameIDPayload{GameID: id})
	return id
}

// completed starts a game and records winner as the oracle.
func (a *arena) completed(t *testing.T, winner string) uint64 {
	t.Helper()
	id := a.started(t)
	a.MustSend(a.Oracle, core.TxSubmitOutcome, 0, core.SubmitOutcomePayload{
		GameID: id, Winner: winner, Choices: rounds(turns),
	})
	return id
}

// custody is the native balance held by the escrow account.
func (a *arena) custody() uint64 {
	return a.Balance(core.EscrowAddress, core.NativeAsset)
}

// supply sums every native balance the test touches, pending withdrawals
// excluded since they are still held in custody.
func (a *arena) supply() uint64 {
	return a.Balance(a.p1.PubKey(), core.NativeAsset) +
		a.Balance(a.p2.PubKey(), core.NativeAsset) +
		a.Balance(a.Owner.PubKey(), core.NativeAsset) +
		a.custody()
}
