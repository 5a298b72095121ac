// Package game implements the escrowed two-party game lifecycle:
//
//	waiting → in_progress → completed → settled
//	                     ↘            ↘ dispute → settled
//	waiting, in_progress, dispute → cancelled
//
// Every handler validates first, writes the post-transition game record,
// and only then moves funds through the escrow package.
package game

import (
	"errors"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/vm"
)

func init() {
	vm.Register(core.TxCreateGame, handleCreateGame)
	vm.Register(core.TxJoinGame, handleJoinGame)
	vm.Register(core.TxCancelUnstarted, handleCancelUnstarted)
	vm.Register(core.TxCancelByAgreement, handleCancelByAgreement)
	vm.Register(core.TxSubmitOutcome, handleSubmitOutcome)
	vm.Register(core.TxRaiseDispute, handleRaiseDispute)
	vm.Register(core.TxApproveWinner, handleApproveWinner)
	vm.Register(core.TxResolveDispute, handleResolveDispute)
}

// Load reads game id, mapping a missing record to a validation failure.
func Load(ctx *vm.Context, id uint64) (*core.Game, error) {
	g, err := ctx.State.GetGame(id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: game %d: %w", core.ErrValidation, id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// loadStaked loads a game that must not belong to a tournament.
func loadStaked(ctx *vm.Context, id uint64) (*core.Game, error) {
	g, err := Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.TournamentID != "" {
		return nil, fmt.Errorf("%w: game %d belongs to tournament %q", core.ErrInvalidState, id, g.TournamentID)
	}
	return g, nil
}

func expect(g *core.Game, states ...core.GameState) error {
	for _, s := range states {
		if g.State == s {
			return nil
		}
	}
	return fmt.Errorf("%w: game %d is %s", core.ErrInvalidState, g.ID, g.State)
}

// markConsent sets addr's dispute/consent flag and reports whether it was
// already set.
func markConsent(g *core.Game, addr string) (already bool) {
	if addr == g.Player1 {
		already = g.Player1Dispute
		g.Player1Dispute = true
		return already
	}
	already = g.Player2Dispute
	g.Player2Dispute = true
	return already
}
