package game

import (
	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/vm/modules/escrow"
	"github.com/tolelom/tolarena/vm/modules/stats"
)

// Payout is the split of a settled pot.
type Payout struct {
	Player1 uint64
	Player2 uint64
	Fee     uint64
}

// Split divides the pot of g for winner under pol. A draw halves what is
// left after the draw fee; any odd unit left by halving joins the fee.
func Split(pol *core.Policy, g *core.Game, winner string) Payout {
	total := g.StakeAmount * 2
	if winner == core.NoWinner {
		each := core.AmountAfterCut(total, pol.DrawFeeBps) / 2
		return Payout{Player1: each, Player2: each, Fee: total - 2*each}
	}
	fee := core.FeeCut(total, pol.ProtocolFeeBps)
	if winner == g.Player1 {
		return Payout{Player1: total - fee, Fee: fee}
	}
	return Payout{Player2: total - fee, Fee: fee}
}

// Settle finalises g with winner (NoWinner for a draw): the record is
// written as settled, the pot paid out and fees booked, then statistics
// updated. Zero-stake games move no funds.
func Settle(ctx *vm.Context, pol *core.Policy, g *core.Game, winner string) error {
	g.State = core.StateSettled
	g.Winner = winner
	g.LastActionTime = ctx.Now()
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}

	var split Payout
	if g.StakeAmount > 0 {
		split = Split(pol, g, winner)
		if err := escrow.Settle(ctx, g.ID, g.Player1, g.Asset, split.Player1); err != nil {
			return err
		}
		if err := escrow.Settle(ctx, g.ID, g.Player2, g.Asset, split.Player2); err != nil {
			return err
		}
		if err := escrow.AccrueFee(ctx, g.Asset, split.Fee); err != nil {
			return err
		}
	}
	if err := stats.RecordResult(ctx.State, g, winner); err != nil {
		return err
	}

	ctx.Emit(events.EventGameSettled, map[string]any{
		"game_id":       g.ID,
		"winner":        winner,
		"draw":          winner == core.NoWinner,
		"asset":         g.Asset,
		"payout_p1":     split.Player1,
		"payout_p2":     split.Player2,
		"fee":           split.Fee,
		"tournament_id": g.TournamentID,
	})
	return nil
}
