package economy

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/vm"
)

func init() {
	vm.Register(core.TxApprove, handleApprove)
	vm.Register(core.TxSetReceivePolicy, handleSetReceivePolicy)
}

// handleApprove sets (not adds to) the spender's allowance. Zero revokes it.
func handleApprove(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ApprovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode approve payload: %w", err)
	}
	if p.Asset == "" || p.Asset == core.NativeAsset {
		return fmt.Errorf("%w: allowances apply to fungible assets only", core.ErrValidation)
	}
	if p.Spender == "" {
		p.Spender = core.EscrowAddress
	}

	acc, err := ctx.State.GetAccount(ctx.Tx.From)
	if err != nil {
		return err
	}
	key := core.AllowanceKey(p.Asset, p.Spender)
	if p.Amount == 0 {
		delete(acc.Allow, key)
	} else {
		if acc.Allow == nil {
			acc.Allow = make(map[string]uint64)
		}
		acc.Allow[key] = p.Amount
	}
	return ctx.State.SetAccount(acc)
}

func handleSetReceivePolicy(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetReceivePolicyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_receive_policy payload: %w", err)
	}
	acc, err := ctx.State.GetAccount(ctx.Tx.From)
	if err != nil {
		return err
	}
	acc.RejectNative = p.RejectNative
	return ctx.State.SetAccount(acc)
}
