package vm

import (
	"fmt"

	"github.com/tolelom/tolarena/core"
)

// MoveFunds debits amount of asset from one account and credits it to
// another. Both accounts are written only after both sides succeed.
func MoveFunds(state core.State, from, to, asset string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, err := state.GetAccount(from)
	if err != nil {
		return fmt.Errorf("account %s: %w", from, err)
	}
	if err := src.Debit(asset, amount); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	dst, err := state.GetAccount(to)
	if err != nil {
		return fmt.Errorf("account %s: %w", to, err)
	}
	if err := dst.Credit(asset, amount); err != nil {
		return err
	}
	if err := state.SetAccount(src); err != nil {
		return err
	}
	return state.SetAccount(dst)
}
