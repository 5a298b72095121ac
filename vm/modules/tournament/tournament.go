// Package tournament lets a delegated tournament authority open batches of
// zero-stake games, which the oracle or owner then settles in one step
// without a dispute window.
package tournament

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/vm/modules/admin"
	"github.com/tolelom/tolarena/vm/modules/game"
	"github.com/tolelom/tolarena/vm/modules/stats"
)

// MaxBatch bounds the number of games one create call may open.
const MaxBatch = 64

func init() {
	vm.Register(core.TxCreateTournamentGames, handleCreateGames)
	vm.Register(core.TxSubmitTournamentGame, handleSubmitAndApprove)
}

func validateBatch(pol *core.Policy, p *core.CreateTournamentGamesPayload) error {
	n := len(p.Player1s)
	if n == 0 {
		return fmt.Errorf("%w: empty batch", core.ErrValidation)
	}
	if n > MaxBatch {
		return fmt.Errorf("%w: batch of %d exceeds %d games", core.ErrValidation, n, MaxBatch)
	}
	if len(p.Player2s) != n || len(p.Turns) != n {
		return fmt.Errorf("%w: player1s, player2s and turns lengths differ", core.ErrValidation)
	}
	for i := 0; i < n; i++ {
		a, b := p.Player1s[i], p.Player2s[i]
		if a == "" || b == "" || a == b {
			return fmt.Errorf("%w: pairing %d needs two distinct players", core.ErrValidation, i)
		}
		if err := pol.ValidateTurns(p.Turns[i]); err != nil {
			return fmt.Errorf("pairing %d: %w", i, err)
		}
	}
	return nil
}

func handleCreateGames(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateTournamentGamesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", core.ErrValidation, core.TxCreateTournamentGames, err)
	}
	tid, err := admin.RequireTournamentAuthority(ctx)
	if err != nil {
		return err
	}
	if p.TournamentID != tid {
		return fmt.Errorf("%w: authority manages tournament %q, not %q", core.ErrUnauthorized, tid, p.TournamentID)
	}
	pol, err := ctx.State.GetPolicy()
	if err != nil {
		return err
	}
	if err := validateBatch(pol, &p); err != nil {
		return err
	}

	now := ctx.Now()
	ids := make([]uint64, 0, len(p.Player1s))
	for i := range p.Player1s {
		id, err := ctx.State.NextGameID()
		if err != nil {
			return err
		}
		g := &core.Game{
			ID:             id,
			Player1:        p.Player1s[i],
			Player2:        p.Player2s[i],
			State:          core.StateInProgress,
			NumberOfTurns:  p.Turns[i],
			Choices:        core.EmptyChoices(p.Turns[i]),
			CreationTime:   now,
			LastActionTime: now,
			TournamentID:   tid,
		}
		if err := ctx.State.SetGame(g); err != nil {
			return err
		}
		if err := stats.RecordSeat(ctx.State, g.Player1, id); err != nil {
			return err
		}
		if err := stats.RecordSeat(ctx.State, g.Player2, id); err != nil {
			return err
		}
		ids = append(ids, id)
	}

	ctx.Emit(events.EventTournamentGames, map[string]any{
		"tournament_id": tid,
		"game_ids":      ids,
	})
	return nil
}

func handleSubmitAndApprove(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SubmitOutcomePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", core.ErrValidation, core.TxSubmitTournamentGame, err)
	}
	// Authorities only pair players; outcomes come from the oracle or owner.
	pol, err := admin.RequireOracleOrOwner(ctx)
	if err != nil {
		return err
	}
	g, err := game.Load(ctx, p.GameID)
	if err != nil {
		return err
	}
	if g.TournamentID == "" {
		return fmt.Errorf("%w: game %d is not a tournament game", core.ErrInvalidState, g.ID)
	}
	if g.State != core.StateInProgress {
		return fmt.Errorf("%w: game %d is %s", core.ErrInvalidState, g.ID, g.State)
	}
	if err := game.ValidateOutcome(pol, g, &p); err != nil {
		return err
	}

	g.Choices = p.Choices
	g.OriginalWinner = p.Winner
	return game.Settle(ctx, pol, g, p.Winner)
}
