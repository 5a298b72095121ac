package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm/modules/game"
)

func TestSplit(t *testing.T) {
	pol := core.DefaultPolicy("owner", "oracle")
	g := &core.Game{Player1: "alice", Player2: "bob", StakeAmount: 1_000}

	assert.Equal(t, game.Payout{Player1: 1_990, Fee: 10}, game.Split(pol, g, "alice"))
	assert.Equal(t, game.Payout{Player2: 1_990, Fee: 10}, game.Split(pol, g, "bob"))
	assert.Equal(t, game.Payout{Player1: 995, Player2: 995, Fee: 10}, game.Split(pol, g, core.NoWinner))

	// 2000 - 11 leaves an odd unit that joins the fee.
	pol.DrawFeeBps = 55
	assert.Equal(t, game.Payout{Player1: 994, Player2: 994, Fee: 12}, game.Split(pol, g, core.NoWinner))

	pol.ProtocolFeeBps = 0
	assert.Equal(t, game.Payout{Player1: 2_000}, game.Split(pol, g, "alice"))

	// Tiny pots round the fee down to zero.
	g.StakeAmount = 1
	pol.DrawFeeBps = 100
	assert.Equal(t, game.Payout{Player1: 1, Player2: 1}, game.Split(pol, g, core.NoWinner))
}

func TestSplitConservesPot(t *testing.T) {
	pol := core.DefaultPolicy("owner", "oracle")
	for _, bps := range []uint64{0, 1, 33, 50, 99, 100} {
		pol.ProtocolFeeBps, pol.DrawFeeBps = bps, bps
		for _, s := range []uint64{1, 7, 999, 1_000, 123_457} {
			g := &core.Game{Player1: "alice", Player2: "bob", StakeAmount: s}
			for _, w := range []string{"alice", "bob", core.NoWinner} {
				p := game.Split(pol, g, w)
				assert.Equal(t, 2*s, p.Player1+p.Player2+p.Fee, "stake %d bps %d winner %q", s, bps, w)
				if w == core.NoWinner {
					assert.Equal(t, p.Player1, p.Player2)
					assert.LessOrEqual(t, p.Fee, core.FeeCut(2*s, bps)+1)
				}
			}
		}
	}
}

// Scenario A: undisputed decisive game.
func TestScenarioDecisiveApproval(t *testing.T) {
	a := newArena(t)
	id := a.completed(t, a.p1.PubKey())
	a.Advance(window + 1)
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: id})

	g := a.Game(id)
	assert.Equal(t, core.StateSettled, g.State)
	assert.Equal(t, uint64(funds-stake+1_990), a.Balance(a.p1.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(funds-stake), a.Balance(a.p2.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(10), a.Policy().FeeVault[core.NativeAsset])
	assert.Equal(t, uint64(10), a.custody())

	assert.Equal(t, uint64(1), a.Stats(a.p1.PubKey()).GamesWon)
	assert.Equal(t, uint64(1), a.Stats(a.p2.PubKey()).GamesLost)

	settled := a.Events(events.EventGameSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, uint64(1_990), settled[0].Data["payout_p1"])
	assert.Equal(t, uint64(10), settled[0].Data["fee"])
	assert.Equal(t, false, settled[0].Data["draw"])
	require.Len(t, a.Events(events.EventPayout), 1)
}

// Scenario B: the loser disputes and the arbiter reverses the outcome.
func TestScenarioDisputeReversed(t *testing.T) {
	a := newArena(t)
	id := a.completed(t, a.p1.PubKey())
	a.Advance(window / 2)
	a.MustSend(a.p2, core.TxRaiseDispute, 0, core.GameIDPayload{GameID: id})

	// Approval no longer applies once disputed.
	a.Advance(window)
	require.ErrorIs(t, a.Send(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: id}), core.ErrInvalidState)

	a.MustSend(a.Owner, core.TxResolveDispute, 0, core.ResolveDisputePayload{GameID: id, Ruling: core.RulingOtherPartyWins})
	g := a.Game(id)
	assert.Equal(t, a.p2.PubKey(), g.Winner)
	assert.Equal(t, a.p1.PubKey(), g.OriginalWinner)
	assert.Equal(t, uint64(funds-stake), a.Balance(a.p1.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(funds-stake+1_990), a.Balance(a.p2.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(1), a.Stats(a.p2.PubKey()).GamesWon)
	assert.Equal(t, uint64(1), a.Stats(a.p1.PubKey()).GamesLost)
	require.Len(t, a.Events(events.EventDisputeRaised), 1)
}

// Scenario C: a draw splits the pot evenly after the draw fee.
func TestScenarioDraw(t *testing.T) {
	a := newArena(t)
	id := a.completed(t, core.NoWinner)
	a.Advance(window + 1)
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: id})

	assert.Equal(t, a.Balance(a.p1.PubKey(), core.NativeAsset), a.Balance(a.p2.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(funds-stake+995), a.Balance(a.p1.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(10), a.custody())
	assert.Equal(t, uint64(1), a.Stats(a.p1.PubKey()).GamesDrawn)
	assert.Equal(t, uint64(1), a.Stats(a.p2.PubKey()).GamesDrawn)
	require.Len(t, a.Events(events.EventPayout), 2)
}

// Scenario D: an unjoined game is cancelled and the creator refunded.
func TestScenarioUnjoinedCancel(t *testing.T) {
	a := newArena(t)
	id := a.open(t)
	a.MustSend(a.Owner, core.TxCancelUnstarted, 0, core.GameIDPayload{GameID: id})

	assert.Equal(t, core.StateCancelled, a.Game(id).State)
	assert.Equal(t, uint64(funds), a.Balance(a.p1.PubKey(), core.NativeAsset))
	assert.Zero(t, a.custody())
	evs := a.Events(events.EventGameCancelled)
	require.Len(t, evs, 1)
	assert.Equal(t, []string{a.p1.PubKey()}, evs[0].Data["refunds"])
}

func TestConservationAcrossLifecycle(t *testing.T) {
	a := newArena(t)
	want := a.supply()
	check := func() {
		t.Helper()
		assert.Equal(t, want, a.supply())
	}

	decisive := a.completed(t, a.p2.PubKey())
	check()
	drawn := a.completed(t, core.NoWinner)
	check()
	disputed := a.completed(t, a.p1.PubKey())
	a.MustSend(a.p2, core.TxRaiseDispute, 0, core.GameIDPayload{GameID: disputed})
	cancelled := a.started(t)
	a.MustSend(a.p1, core.TxCancelByAgreement, 0, core.GameIDPayload{GameID: cancelled})
	a.MustSend(a.p2, core.TxCancelByAgreement, 0, core.GameIDPayload{GameID: cancelled})
	check()

	a.Advance(window + 1)
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: decisive})
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: drawn})
	a.MustSend(a.Owner, core.TxResolveDispute, 0, core.ResolveDisputePayload{GameID: disputed, Ruling: core.RulingDraw})
	check()

	// Only the fee vault is left in custody.
	assert.Equal(t, a.Policy().FeeVault[core.NativeAsset], a.custody())
	a.MustSend(a.Owner, core.TxCollectFees, 0, core.CollectFeesPayload{})
	assert.Zero(t, a.custody())
	check()
}

func TestTerminalGamesRejectEveryTransition(t *testing.T) {
	a := newArena(t)
	settled := a.completed(t, a.p1.PubKey())
	a.Advance(window + 1)
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: settled})
	cancelled := a.open(t)
	a.MustSend(a.Owner, core.TxCancelUnstarted, 0, core.GameIDPayload{GameID: cancelled})

	for _, id := range []uint64{settled, cancelled} {
		before := a.Game(id)
		p1Before := a.Balance(a.p1.PubKey(), core.NativeAsset)
		ref := core.GameIDPayload{GameID: id}

		assert.ErrorIs(t, a.Send(a.p2, core.TxJoinGame, stake, ref), core.ErrInvalidState)
		assert.ErrorIs(t, a.Send(a.Owner, core.TxCancelUnstarted, 0, ref), core.ErrInvalidState)
		assert.ErrorIs(t, a.Send(a.p1, core.TxCancelByAgreement, 0, ref), core.ErrInvalidState)
		assert.ErrorIs(t, a.Send(a.Oracle, core.TxSubmitOutcome, 0, core.SubmitOutcomePayload{
			GameID: id, Winner: a.p1.PubKey(), Choices: rounds(turns),
		}), core.ErrInvalidState)
		assert.ErrorIs(t, a.Send(a.p1, core.TxRaiseDispute, 0, ref), core.ErrInvalidState)
		assert.ErrorIs(t, a.Send(a.Oracle, core.TxApproveWinner, 0, ref), core.ErrInvalidState)
		assert.ErrorIs(t, a.Send(a.Owner, core.TxResolveDispute, 0, core.ResolveDisputePayload{
			GameID: id, Ruling: core.RulingDraw,
		}), core.ErrInvalidState)

		assert.Equal(t, before, a.Game(id))
		assert.Equal(t, p1Before, a.Balance(a.p1.PubKey(), core.NativeAsset))
	}
}

func TestPushPayoutToRefusingRecipient(t *testing.T) {
	a := newArena(t)
	id := a.completed(t, a.p1.PubKey())
	a.MustSend(a.p1, core.TxSetReceivePolicy, 0, core.SetReceivePolicyPayload{RejectNative: true})
	a.Advance(window + 1)

	err := a.Send(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: id})
	require.ErrorIs(t, err, core.ErrTransfer)
	assert.Equal(t, core.StateCompleted, a.Game(id).State)
	assert.Equal(t, uint64(totalPot), a.custody())
	assert.Zero(t, a.Stats(a.p1.PubKey()).GamesWon)

	a.MustSend(a.Owner, core.TxSetPayoutMode, 0, core.SetPayoutModePayload{Mode: core.PayoutPushPull})
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: id})
	assert.Equal(t, core.StateSettled, a.Game(id).State)
	assert.Equal(t, uint64(1_990), a.Pending(a.p1.PubKey()))
	assert.Equal(t, uint64(funds-stake), a.Balance(a.p1.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(totalPot), a.custody())

	payouts := a.Events(events.EventPayout)
	require.Len(t, payouts, 1)
	assert.Equal(t, true, payouts[0].Data["pending"])

	a.MustSend(a.p1, core.TxWithdraw, 0, struct{}{})
	assert.Zero(t, a.Pending(a.p1.PubKey()))
	assert.Equal(t, uint64(funds-stake+1_990), a.Balance(a.p1.PubKey(), core.NativeAsset))
	assert.Equal(t, uint64(10), a.custody())
	require.ErrorIs(t, a.Send(a.p1, core.TxWithdraw, 0, struct{}{}), core.ErrValidation)
}

func TestFungibleStake(t *testing.T) {
	const gold = "gold"
	a := newArena(t)
	a.MustSend(a.Owner, core.TxAllowAsset, 0, core.AllowAssetPayload{Asset: gold, MinStake: 100})
	a.Credit(a.p1.PubKey(), gold, funds)
	a.Credit(a.p2.PubKey(), gold, funds)

	create := core.CreateGamePayload{Stake: stake, Asset: gold, Turns: turns}
	require.ErrorIs(t, a.Send(a.p1, core.TxCreateGame, 0, create), core.ErrTransfer)
	require.ErrorIs(t, a.Send(a.p1, core.TxCreateGame, 0, core.CreateGamePayload{Stake: 50, Asset: gold, Turns: turns}), core.ErrValidation)
	// Fungible stakes never travel as value.
	require.ErrorIs(t, a.Send(a.p1, core.TxCreateGame, stake, create), core.ErrTransfer)

	a.MustSend(a.p1, core.TxApprove, 0, core.ApprovePayload{Asset: gold, Amount: stake})
	a.MustSend(a.p1, core.TxCreateGame, 0, create)
	id := uint64(1)
	assert.Equal(t, uint64(stake), a.Balance(core.EscrowAddress, gold))

	a.MustSend(a.p2, core.TxApprove, 0, core.ApprovePayload{Asset: gold, Amount: 5 * stake})
	a.MustSend(a.p2, core.TxJoinGame, 0, core.GameIDPayload{GameID: id})
	acc, err := a.State.GetAccount(a.p2.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(4*stake), acc.Allow[core.AllowanceKey(gold, core.EscrowAddress)])

	a.MustSend(a.Oracle, core.TxSubmitOutcome, 0, core.SubmitOutcomePayload{GameID: id, Winner: a.p2.PubKey(), Choices: rounds(turns)})
	a.Advance(window + 1)
	a.MustSend(a.Oracle, core.TxApproveWinner, 0, core.GameIDPayload{GameID: id})

	assert.Equal(t, uint64(funds-stake), a.Balance(a.p1.PubKey(), gold))
	assert.Equal(t, uint64(funds-stake+1_990), a.Balance(a.p2.PubKey(), gold))
	assert.Equal(t, uint64(10), a.Balance(core.EscrowAddress, gold))
	assert.Equal(t, uint64(10), a.Policy().FeeVault[gold])
	assert.Equal(t, uint64(funds), a.Balance(a.p1.PubKey(), core.NativeAsset))
}
