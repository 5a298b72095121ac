package escrow

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/vm/modules/admin"
)

func init() {
	vm.Register(core.TxWithdraw, handleWithdraw)
	vm.Register(core.TxCollectFees, handleCollectFees)
}

// handleWithdraw drains the sender's pending balance. The record is zeroed
// before funds move.
func handleWithdraw(ctx *vm.Context, _ json.RawMessage) error {
	owed, err := ctx.State.GetPendingWithdrawal(ctx.Tx.From)
	if err != nil {
		return err
	}
	if owed == 0 {
		return fmt.Errorf("%w: nothing to withdraw", core.ErrValidation)
	}
	if err := ctx.State.SetPendingWithdrawal(ctx.Tx.From, 0); err != nil {
		return err
	}
	if err := vm.MoveFunds(ctx.State, core.EscrowAddress, ctx.Tx.From, core.NativeAsset, owed); err != nil {
		return err
	}
	ctx.Emit(events.EventWithdrawal, map[string]any{
		"recipient": ctx.Tx.From,
		"amount":    owed,
	})
	return nil
}

func handleCollectFees(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CollectFeesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: decode collect_fees payload: %v", core.ErrValidation, err)
	}
	pol, err := admin.RequireOwner(ctx)
	if err != nil {
		return err
	}
	if p.Asset == "" {
		p.Asset = core.NativeAsset
	}
	if p.To == "" {
		p.To = pol.Owner
	}
	amount := pol.FeeVault[p.Asset]
	if amount == 0 {
		return fmt.Errorf("%w: no %s fees accrued", core.ErrValidation, p.Asset)
	}
	delete(pol.FeeVault, p.Asset)
	if err := ctx.State.SetPolicy(pol); err != nil {
		return err
	}
	if p.Asset == core.NativeAsset {
		to, err := ctx.State.GetAccount(p.To)
		if err != nil {
			return err
		}
		if to.RejectNative {
			return fmt.Errorf("%w: %s refuses native transfers", core.ErrTransfer, p.To)
		}
	}
	if err := vm.MoveFunds(ctx.State, core.EscrowAddress, p.To, p.Asset, amount); err != nil {
		return err
	}
	ctx.Emit(events.EventFeesCollected, map[string]any{
		"asset":  p.Asset,
		"to":     p.To,
		"amount": amount,
	})
	return nil
}
