// Package escrow holds staked funds in the custody account and pays them
// out. Fees and pull-payment balances stay in custody until collected or
// withdrawn, so the custody balance always equals live stakes plus the fee
// vault plus pending withdrawals.
package escrow

import (
	"fmt"
	"math/bits"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
)

// Collect moves a player's stake for g into custody. Native stakes must be
// attached to the transaction as value; fungible stakes are pulled from a
// prior allowance granted to the escrow.
func Collect(ctx *vm.Context, g *core.Game, from string) error {
	if g.StakeAmount == 0 {
		return nil
	}
	if g.Asset == core.NativeAsset {
		if err := ctx.ClaimValue(g.StakeAmount); err != nil {
			return err
		}
		return vm.MoveFunds(ctx.State, from, core.EscrowAddress, core.NativeAsset, g.StakeAmount)
	}
	return transferFrom(ctx, from, g.Asset, g.StakeAmount)
}

func transferFrom(ctx *vm.Context, from, asset string, amount uint64) error {
	acc, err := ctx.State.GetAccount(from)
	if err != nil {
		return err
	}
	key := core.AllowanceKey(asset, core.EscrowAddress)
	allowed := acc.Allow[key]
	if allowed < amount {
		return fmt.Errorf("%w: allowance for %s is %d, need %d", core.ErrTransfer, asset, allowed, amount)
	}
	if allowed == amount {
		delete(acc.Allow, key)
	} else {
		acc.Allow[key] = allowed - amount
	}
	if err := ctx.State.SetAccount(acc); err != nil {
		return err
	}
	return vm.MoveFunds(ctx.State, from, core.EscrowAddress, asset, amount)
}

// Settle pays amount of asset out of custody to recipient for game gameID.
// Under PayoutPush a recipient refusing native funds fails the call; under
// PayoutPushPull the amount is recorded as a pending withdrawal instead.
func Settle(ctx *vm.Context, gameID uint64, recipient, asset string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if asset == core.NativeAsset {
		acc, err := ctx.State.GetAccount(recipient)
		if err != nil {
			return err
		}
		if acc.RejectNative {
			pol, err := ctx.State.GetPolicy()
			if err != nil {
				return err
			}
			if pol.PayoutMode != core.PayoutPushPull {
				return fmt.Errorf("%w: %s refuses native payout", core.ErrTransfer, recipient)
			}
			return credit(ctx, gameID, recipient, amount)
		}
	}
	if err := vm.MoveFunds(ctx.State, core.EscrowAddress, recipient, asset, amount); err != nil {
		return err
	}
	ctx.Emit(events.EventPayout, map[string]any{
		"game_id":   gameID,
		"recipient": recipient,
		"asset":     asset,
		"amount":    amount,
		"pending":   false,
	})
	return nil
}

// credit records a pull payment; the funds stay in custody.
func credit(ctx *vm.Context, gameID uint64, recipient string, amount uint64) error {
	owed, err := ctx.State.GetPendingWithdrawal(recipient)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(owed, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: pending withdrawal overflow for %s", core.ErrTransfer, recipient)
	}
	if err := ctx.State.SetPendingWithdrawal(recipient, sum); err != nil {
		return err
	}
	ctx.Emit(events.EventPayout, map[string]any{
		"game_id":   gameID,
		"recipient": recipient,
		"asset":     core.NativeAsset,
		"amount":    amount,
		"pending":   true,
	})
	return nil
}

// Refund returns g's stake to each contributor. Contributors must be taken
// from g before it leaves its funded state.
func Refund(ctx *vm.Context, g *core.Game, contributors []string) error {
	for _, p := range contributors {
		if err := Settle(ctx, g.ID, p, g.Asset, g.StakeAmount); err != nil {
			return err
		}
	}
	return nil
}

// AccrueFee books amount of asset into the fee vault.
func AccrueFee(ctx *vm.Context, asset string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	pol, err := ctx.State.GetPolicy()
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(pol.FeeVault[asset], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: fee vault overflow for %s", core.ErrTransfer, asset)
	}
	if pol.FeeVault == nil {
		pol.FeeVault = make(map[string]uint64)
	}
	pol.FeeVault[asset] = sum
	return ctx.State.SetPolicy(pol)
}
