package economy

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
	vm.Register(core.TxTokenTransfer, handleTokenTransfer)
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer payload: %w", err)
	}
	if p.Amount == 0 {
		return fmt.Errorf("%w: transfer amount must be > 0", core.ErrValidation)
	}
	if p.To == "" {
		return fmt.Errorf("%w: transfer to address required", core.ErrValidation)
	}
	if p.To == core.EscrowAddress {
		return fmt.Errorf("%w: escrow only accepts stakes", core.ErrValidation)
	}
	recipient, err := ctx.State.GetAccount(p.To)
	if err != nil {
		return err
	}
	if recipient.RejectNative {
		return fmt.Errorf("%w: %s refuses native transfers", core.ErrTransfer, p.To)
	}
	if err := vm.MoveFunds(ctx.State, ctx.Tx.From, p.To, core.NativeAsset, p.Amount); err != nil {
		return err
	}

	ctx.Emit(events.EventTokenTransfer, map[string]any{
		"from":   ctx.Tx.From,
		"to":     p.To,
		"asset":  core.NativeAsset,
		"amount": p.Amount,
	})
	return nil
}

func handleTokenTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TokenTransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode token_transfer payload: %w", err)
	}
	if p.Asset == "" || p.Asset == core.NativeAsset {
		return fmt.Errorf("%w: token_transfer needs a fungible asset id", core.ErrValidation)
	}
	if p.Amount == 0 {
		return fmt.Errorf("%w: transfer amount must be > 0", core.ErrValidation)
	}
	if p.To == "" || p.To == core.EscrowAddress {
		return fmt.Errorf("%w: invalid recipient %q", core.ErrValidation, p.To)
	}
	if err := vm.MoveFunds(ctx.State, ctx.Tx.From, p.To, p.Asset, p.Amount); err != nil {
		return err
	}

	ctx.Emit(events.EventTokenTransfer, map[string]any{
		"from":   ctx.Tx.From,
		"to":     p.To,
		"asset":  p.Asset,
		"amount": p.Amount,
	})
	return nil
}
