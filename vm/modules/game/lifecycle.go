package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/vm/modules/admin"
	"github.com/tolelom/tolarena/vm/modules/escrow"
	"github.com/tolelom/tolarena/vm/modules/stats"
)

func decode(payload json.RawMessage, typ core.TxType, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", core.ErrValidation, typ, err)
	}
	return nil
}

// checkStake validates the stake against the asset allow-list. The native
// asset needs no listing but must be non-zero.
func checkStake(state core.State, asset string, stake uint64) error {
	if stake == 0 {
		return fmt.Errorf("%w: stake must be > 0", core.ErrValidation)
	}
	if stake > math.MaxUint64/2 {
		return fmt.Errorf("%w: stake %d too large", core.ErrValidation, stake)
	}
	if asset == core.NativeAsset {
		return nil
	}
	minStake, err := state.GetAssetMinimum(asset)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: asset %q is not accepted", core.ErrValidation, asset)
	}
	if err != nil {
		return err
	}
	if stake < minStake {
		return fmt.Errorf("%w: stake %d below minimum %d for %s", core.ErrValidation, stake, minStake, asset)
	}
	return nil
}

func handleCreateGame(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateGamePayload
	if err := decode(payload, core.TxCreateGame, &p); err != nil {
		return err
	}
	if p.Asset == "" {
		p.Asset = core.NativeAsset
	}
	pol, err := ctx.State.GetPolicy()
	if err != nil {
		return err
	}
	if err := pol.ValidateTurns(p.Turns); err != nil {
		return err
	}
	if err := checkStake(ctx.State, p.Asset, p.Stake); err != nil {
		return err
	}
	if p.Player2 == ctx.Tx.From || p.Player2 == core.EscrowAddress {
		return fmt.Errorf("%w: invalid opponent %q", core.ErrValidation, p.Player2)
	}

	id, err := ctx.State.NextGameID()
	if err != nil {
		return err
	}
	now := ctx.Now()
	g := &core.Game{
		ID:             id,
		Player1:        ctx.Tx.From,
		Player2:        p.Player2,
		StakeAmount:    p.Stake,
		Asset:          p.Asset,
		State:          core.StateWaiting,
		NumberOfTurns:  p.Turns,
		Choices:        core.EmptyChoices(p.Turns),
		Winner:         core.NoWinner,
		OriginalWinner: core.NoWinner,
		CreationTime:   now,
		LastActionTime: now,
	}
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}
	if err := escrow.Collect(ctx, g, ctx.Tx.From); err != nil {
		return err
	}
	if err := stats.RecordSeat(ctx.State, ctx.Tx.From, id); err != nil {
		return err
	}

	ctx.Emit(events.EventGameCreated, map[string]any{
		"game_id": id,
		"player1": g.Player1,
		"player2": g.Player2,
		"stake":   g.StakeAmount,
		"asset":   g.Asset,
		"turns":   g.NumberOfTurns,
	})
	return nil
}

func handleJoinGame(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GameIDPayload
	if err := decode(payload, core.TxJoinGame, &p); err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	if err := expect(g, core.StateWaiting); err != nil {
		return err
	}
	switch {
	case ctx.Tx.From == g.Player1:
		return fmt.Errorf("%w: creator cannot join own game", core.ErrValidation)
	case g.Player2 != "" && ctx.Tx.From != g.Player2:
		return fmt.Errorf("%w: game %d is reserved for another player", core.ErrUnauthorized, g.ID)
	}

	g.Player2 = ctx.Tx.From
	g.State = core.StateInProgress
	g.LastActionTime = ctx.Now()
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}
	if err := escrow.Collect(ctx, g, ctx.Tx.From); err != nil {
		return err
	}
	if err := stats.RecordSeat(ctx.State, ctx.Tx.From, g.ID); err != nil {
		return err
	}

	ctx.Emit(events.EventGameJoined, map[string]any{
		"game_id": g.ID,
		"player2": g.Player2,
	})
	return nil
}

func handleCancelUnstarted(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GameIDPayload
	if err := decode(payload, core.TxCancelUnstarted, &p); err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	pol, err := ctx.State.GetPolicy()
	if err != nil {
		return err
	}
	switch ctx.Tx.From {
	case pol.Owner:
	case g.Player1:
		expiry := g.CreationTime + int64(pol.UnstartedExpiry)
		if pol.UnstartedExpiry > 0 && ctx.Now() <= expiry {
			return fmt.Errorf("%w: game %d can be cancelled by its creator after %s",
				core.ErrInvalidState, g.ID, time.Unix(0, expiry).UTC().Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("%w: only the creator or owner may cancel", core.ErrUnauthorized)
	}
	if err := expect(g, core.StateWaiting); err != nil {
		return err
	}
	return cancel(ctx, g, "unstarted")
}

func handleCancelByAgreement(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GameIDPayload
	if err := decode(payload, core.TxCancelByAgreement, &p); err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	if err := admin.RequireParticipant(ctx, g); err != nil {
		return err
	}
	if err := expect(g, core.StateInProgress, core.StateDispute); err != nil {
		return err
	}
	if markConsent(g, ctx.Tx.From) {
		return fmt.Errorf("%w: cancellation already requested by %s", core.ErrInvalidState, ctx.Tx.From)
	}
	if g.Player1Dispute && g.Player2Dispute {
		return cancel(ctx, g, "agreement")
	}

	g.LastActionTime = ctx.Now()
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}
	ctx.Emit(events.EventCancelConsent, map[string]any{
		"game_id": g.ID,
		"player":  ctx.Tx.From,
	})
	return nil
}

// cancel moves g to Cancelled and refunds every contributor.
func cancel(ctx *vm.Context, g *core.Game, reason string) error {
	contributors := g.Contributors()
	g.State = core.StateCancelled
	g.LastActionTime = ctx.Now()
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}
	if err := escrow.Refund(ctx, g, contributors); err != nil {
		return err
	}
	if err := stats.RecordCancel(ctx.State, contributors); err != nil {
		return err
	}
	ctx.Emit(events.EventGameCancelled, map[string]any{
		"game_id": g.ID,
		"reason":  reason,
		"refunds": contributors,
	})
	return nil
}
