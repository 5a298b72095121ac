package game

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/vm/modules/admin"
)

// ValidateOutcome checks a submitted outcome against g and the attestation
// policy. A supplied attestation is always checked, even when optional.
func ValidateOutcome(pol *core.Policy, g *core.Game, p *core.SubmitOutcomePayload) error {
	if p.Winner != core.NoWinner && !g.IsParticipant(p.Winner) {
		return fmt.Errorf("%w: winner %s is not a participant", core.ErrValidation, p.Winner)
	}
	if len(p.Choices) != int(g.NumberOfTurns) {
		return fmt.Errorf("%w: expected %d rounds, got %d", core.ErrValidation, g.NumberOfTurns, len(p.Choices))
	}
	for i, r := range p.Choices {
		if !r.Player1.Valid() || !r.Player2.Valid() {
			return fmt.Errorf("%w: round %d has an unknown choice", core.ErrValidation, i)
		}
	}
	if p.Attestation == nil {
		if pol.RequireAttestation {
			return fmt.Errorf("%w: signed outcome attestation required", core.ErrValidation)
		}
		return nil
	}
	digest, err := core.OutcomeDigest(g.ID, p.Choices, p.Winner)
	if err != nil {
		return err
	}
	if digest != p.Attestation.Digest {
		return fmt.Errorf("%w: outcome digest mismatch", core.ErrIntegrity)
	}
	if err := crypto.VerifyFrom(pol.Oracle, []byte(digest), p.Attestation.Signature); err != nil {
		return fmt.Errorf("%w: attestation: %v", core.ErrIntegrity, err)
	}
	return nil
}

func handleSubmitOutcome(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SubmitOutcomePayload
	if err := decode(payload, core.TxSubmitOutcome, &p); err != nil {
		return err
	}
	pol, err := admin.RequireOracleOrOwner(ctx)
	if err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	if err := expect(g, core.StateInProgress); err != nil {
		return err
	}
	if err := ValidateOutcome(pol, g, &p); err != nil {
		return err
	}

	g.State = core.StateCompleted
	g.Choices = p.Choices
	g.Winner = p.Winner
	g.OriginalWinner = p.Winner
	g.Player1Dispute = false
	g.Player2Dispute = false
	g.LastActionTime = ctx.Now()
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}

	p1, p2, ties := core.Tally(p.Choices)
	ctx.Emit(events.EventOutcomeSubmitted, map[string]any{
		"game_id":  g.ID,
		"winner":   p.Winner,
		"p1_wins":  p1,
		"p2_wins":  p2,
		"ties":     ties,
		"attested": p.Attestation != nil,
	})
	return nil
}

// disputeDeadline is the last instant (inclusive) a dispute may be raised.
func disputeDeadline(pol *core.Policy, g *core.Game) int64 {
	return g.LastActionTime + int64(pol.DisputeWindow)
}

func handleRaiseDispute(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GameIDPayload
	if err := decode(payload, core.TxRaiseDispute, &p); err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	if err := admin.RequireParticipant(ctx, g); err != nil {
		return err
	}
	if err := expect(g, core.StateCompleted); err != nil {
		return err
	}
	pol, err := ctx.State.GetPolicy()
	if err != nil {
		return err
	}
	if ctx.Now() > disputeDeadline(pol, g) {
		return fmt.Errorf("%w: dispute window for game %d has closed", core.ErrInvalidState, g.ID)
	}

	g.State = core.StateDispute
	markConsent(g, ctx.Tx.From)
	g.LastActionTime = ctx.Now()
	if err := ctx.State.SetGame(g); err != nil {
		return err
	}
	ctx.Emit(events.EventDisputeRaised, map[string]any{
		"game_id": g.ID,
		"by":      ctx.Tx.From,
	})
	return nil
}

func handleApproveWinner(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GameIDPayload
	if err := decode(payload, core.TxApproveWinner, &p); err != nil {
		return err
	}
	pol, err := admin.RequireOracleOrOwner(ctx)
	if err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	if err := expect(g, core.StateCompleted); err != nil {
		return err
	}
	if ctx.Now() <= disputeDeadline(pol, g) {
		return fmt.Errorf("%w: dispute window for game %d is still open", core.ErrInvalidState, g.ID)
	}
	return Settle(ctx, pol, g, g.Winner)
}

func handleResolveDispute(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ResolveDisputePayload
	if err := decode(payload, core.TxResolveDispute, &p); err != nil {
		return err
	}
	pol, err := admin.RequireOwner(ctx)
	if err != nil {
		return err
	}
	g, err := loadStaked(ctx, p.GameID)
	if err != nil {
		return err
	}
	if err := expect(g, core.StateDispute); err != nil {
		return err
	}

	var winner string
	switch p.Ruling {
	case core.RulingDraw:
		winner = core.NoWinner
	case core.RulingOriginalWinnerStands:
		winner = g.OriginalWinner
	case core.RulingOtherPartyWins:
		if g.OriginalWinner == core.NoWinner {
			return fmt.Errorf("%w: original outcome was a draw, there is no other party", core.ErrValidation)
		}
		winner = g.Opponent(g.OriginalWinner)
	default:
		return fmt.Errorf("%w: unknown ruling %q", core.ErrValidation, p.Ruling)
	}
	return Settle(ctx, pol, g, winner)
}
