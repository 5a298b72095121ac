// Package admin implements the owner-gated policy store: oracle identity,
// fee rates, dispute window, stake asset allow-list, turn policy and
// tournament delegation. Every change emits a policy_changed event.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
)

func init() {
	vm.Register(core.TxSetOracle, handleSetOracle)
	vm.Register(core.TxSetProtocolFee, handleSetProtocolFee)
	vm.Register(core.TxSetDrawFee, handleSetDrawFee)
	vm.Register(core.TxSetDisputeWindow, handleSetDisputeWindow)
	vm.Register(core.TxSetUnstartedExpiry, handleSetUnstartedExpiry)
	vm.Register(core.TxSetTurnPolicy, handleSetTurnPolicy)
	vm.Register(core.TxSetPayoutMode, handleSetPayoutMode)
	vm.Register(core.TxSetAttestationPolicy, handleSetAttestationPolicy)
	vm.Register(core.TxTransferOwnership, handleTransferOwnership)
	vm.Register(core.TxAllowAsset, handleAllowAsset)
	vm.Register(core.TxDisallowAsset, handleDisallowAsset)
	vm.Register(core.TxRegisterTournamentAuth, handleRegisterTournamentAuthority)
	vm.Register(core.TxRevokeTournamentAuth, handleRevokeTournamentAuthority)
}

func decode(payload json.RawMessage, typ core.TxType, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", core.ErrValidation, typ, err)
	}
	return nil
}

func changed(ctx *vm.Context, param string, old, next any) {
	ctx.Emit(events.EventPolicyChanged, map[string]any{
		"param": param,
		"old":   old,
		"new":   next,
	})
}

// updatePolicy runs mutate on the owner-checked policy and persists it.
func updatePolicy(ctx *vm.Context, param string, mutate func(p *core.Policy) (old, next any, err error)) error {
	p, err := RequireOwner(ctx)
	if err != nil {
		return err
	}
	old, next, err := mutate(p)
	if err != nil {
		return err
	}
	if err := ctx.State.SetPolicy(p); err != nil {
		return err
	}
	changed(ctx, param, old, next)
	return nil
}

func handleSetOracle(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetOraclePayload
	if err := decode(payload, core.TxSetOracle, &p); err != nil {
		return err
	}
	if !crypto.IsPubKeyHex(p.Oracle) {
		return fmt.Errorf("%w: oracle must be an ed25519 public key", core.ErrValidation)
	}
	return updatePolicy(ctx, "oracle", func(pol *core.Policy) (any, any, error) {
		old := pol.Oracle
		pol.Oracle = p.Oracle
		return old, p.Oracle, nil
	})
}

func validFee(bps uint64) error {
	if bps > core.MaxFeeBps {
		return fmt.Errorf("%w: fee %d bps exceeds ceiling %d", core.ErrValidation, bps, core.MaxFeeBps)
	}
	return nil
}

func handleSetProtocolFee(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetFeePayload
	if err := decode(payload, core.TxSetProtocolFee, &p); err != nil {
		return err
	}
	if err := validFee(p.Bps); err != nil {
		return err
	}
	return updatePolicy(ctx, "protocol_fee_bps", func(pol *core.Policy) (any, any, error) {
		old := pol.ProtocolFeeBps
		pol.ProtocolFeeBps = p.Bps
		return old, p.Bps, nil
	})
}

func handleSetDrawFee(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetFeePayload
	if err := decode(payload, core.TxSetDrawFee, &p); err != nil {
		return err
	}
	if err := validFee(p.Bps); err != nil {
		return err
	}
	return updatePolicy(ctx, "draw_fee_bps", func(pol *core.Policy) (any, any, error) {
		old := pol.DrawFeeBps
		pol.DrawFeeBps = p.Bps
		return old, p.Bps, nil
	})
}

func handleSetDisputeWindow(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetDurationPayload
	if err := decode(payload, core.TxSetDisputeWindow, &p); err != nil {
		return err
	}
	if p.Duration < 0 || p.Duration > core.MaxDisputeWindow {
		return fmt.Errorf("%w: dispute window must be within 0..%s", core.ErrValidation, core.MaxDisputeWindow)
	}
	return updatePolicy(ctx, "dispute_window", func(pol *core.Policy) (any, any, error) {
		old := pol.DisputeWindow
		pol.DisputeWindow = p.Duration
		return old.String(), p.Duration.String(), nil
	})
}

func handleSetUnstartedExpiry(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetDurationPayload
	if err := decode(payload, core.TxSetUnstartedExpiry, &p); err != nil {
		return err
	}
	if p.Duration < 0 || p.Duration > core.MaxUnstartedExpiry {
		return fmt.Errorf("%w: unstarted expiry must be within 0..%s", core.ErrValidation, core.MaxUnstartedExpiry)
	}
	return updatePolicy(ctx, "unstarted_expiry", func(pol *core.Policy) (any, any, error) {
		old := pol.UnstartedExpiry
		pol.UnstartedExpiry = p.Duration
		return old.String(), p.Duration.String(), nil
	})
}

func handleSetTurnPolicy(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetTurnPolicyPayload
	if err := decode(payload, core.TxSetTurnPolicy, &p); err != nil {
		return err
	}
	if p.MaxTurns == 0 || p.MaxTurns > core.MaxTurnsCeiling {
		return fmt.Errorf("%w: max turns must be within 1..%d", core.ErrValidation, core.MaxTurnsCeiling)
	}
	if p.OddTurnsOnly && p.MaxTurns%2 == 0 {
		return fmt.Errorf("%w: max turns must be odd when odd turns are enforced", core.ErrValidation)
	}
	return updatePolicy(ctx, "turn_policy", func(pol *core.Policy) (any, any, error) {
		old := map[string]any{"max_turns": pol.MaxTurns, "odd_turns_only": pol.OddTurnsOnly}
		pol.MaxTurns = p.MaxTurns
		pol.OddTurnsOnly = p.OddTurnsOnly
		return old, map[string]any{"max_turns": p.MaxTurns, "odd_turns_only": p.OddTurnsOnly}, nil
	})
}

func handleSetPayoutMode(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetPayoutModePayload
	if err := decode(payload, core.TxSetPayoutMode, &p); err != nil {
		return err
	}
	if p.Mode != core.PayoutPush && p.Mode != core.PayoutPushPull {
		return fmt.Errorf("%w: unknown payout mode %q", core.ErrValidation, p.Mode)
	}
	return updatePolicy(ctx, "payout_mode", func(pol *core.Policy) (any, any, error) {
		old := pol.PayoutMode
		pol.PayoutMode = p.Mode
		return string(old), string(p.Mode), nil
	})
}

func handleSetAttestationPolicy(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetAttestationPolicyPayload
	if err := decode(payload, core.TxSetAttestationPolicy, &p); err != nil {
		return err
	}
	return updatePolicy(ctx, "require_attestation", func(pol *core.Policy) (any, any, error) {
		old := pol.RequireAttestation
		pol.RequireAttestation = p.Required
		return old, p.Required, nil
	})
}

func handleTransferOwnership(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferOwnershipPayload
	if err := decode(payload, core.TxTransferOwnership, &p); err != nil {
		return err
	}
	if !crypto.IsPubKeyHex(p.NewOwner) {
		return fmt.Errorf("%w: new owner must be an ed25519 public key", core.ErrValidation)
	}
	return updatePolicy(ctx, "owner", func(pol *core.Policy) (any, any, error) {
		old := pol.Owner
		pol.Owner = p.NewOwner
		return old, p.NewOwner, nil
	})
}

// ---- asset allow-list ----

func handleAllowAsset(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AllowAssetPayload
	if err := decode(payload, core.TxAllowAsset, &p); err != nil {
		return err
	}
	if _, err := RequireOwner(ctx); err != nil {
		return err
	}
	if p.Asset == "" || p.Asset == core.NativeAsset {
		return fmt.Errorf("%w: invalid stake asset %q", core.ErrValidation, p.Asset)
	}
	if p.MinStake == 0 {
		return fmt.Errorf("%w: minimum stake must be > 0", core.ErrValidation)
	}
	var old any
	if prev, err := ctx.State.GetAssetMinimum(p.Asset); err == nil {
		old = prev
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := ctx.State.SetAssetMinimum(p.Asset, p.MinStake); err != nil {
		return err
	}
	changed(ctx, "allowed_asset:"+p.Asset, old, p.MinStake)
	return nil
}

func handleDisallowAsset(ctx *vm.Context, payload json.RawMessage) error {
	var p core.DisallowAssetPayload
	if err := decode(payload, core.TxDisallowAsset, &p); err != nil {
		return err
	}
	if _, err := RequireOwner(ctx); err != nil {
		return err
	}
	prev, err := ctx.State.GetAssetMinimum(p.Asset)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: asset %q is not allow-listed", core.ErrValidation, p.Asset)
	}
	if err != nil {
		return err
	}
	if err := ctx.State.DeleteAssetMinimum(p.Asset); err != nil {
		return err
	}
	changed(ctx, "allowed_asset:"+p.Asset, prev, nil)
	return nil
}

// ---- tournament delegation ----

func handleRegisterTournamentAuthority(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TournamentAuthorityPayload
	if err := decode(payload, core.TxRegisterTournamentAuth, &p); err != nil {
		return err
	}
	if _, err := RequireOwner(ctx); err != nil {
		return err
	}
	if !crypto.IsPubKeyHex(p.Authority) {
		return fmt.Errorf("%w: authority must be an ed25519 public key", core.ErrValidation)
	}
	if p.TournamentID == "" {
		return fmt.Errorf("%w: tournament id required", core.ErrValidation)
	}
	var old any
	if prev, err := ctx.State.GetTournamentAuthority(p.Authority); err == nil {
		old = prev
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := ctx.State.SetTournamentAuthority(p.Authority, p.TournamentID); err != nil {
		return err
	}
	changed(ctx, "tournament_authority:"+p.Authority, old, p.TournamentID)
	return nil
}

func handleRevokeTournamentAuthority(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TournamentAuthorityPayload
	if err := decode(payload, core.TxRevokeTournamentAuth, &p); err != nil {
		return err
	}
	if _, err := RequireOwner(ctx); err != nil {
		return err
	}
	prev, err := ctx.State.GetTournamentAuthority(p.Authority)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: %s is not a tournament authority", core.ErrValidation, p.Authority)
	}
	if err != nil {
		return err
	}
	if err := ctx.State.DeleteTournamentAuthority(p.Authority); err != nil {
		return err
	}
	changed(ctx, "tournament_authority:"+p.Authority, prev, nil)
	return nil
}
