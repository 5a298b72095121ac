package vm

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
)

// Executor applies transactions to the state using the global Handler registry.
// It is not re-entrant: a call made while another ExecuteTx is still running
// (for example from a synchronous event subscriber) fails with
// core.ErrReentrantCall.
type Executor struct {
	state   core.State
	emitter *events.Emitter
	busy    atomic.Bool
}

// NewExecutor creates an Executor with the given state and event emitter.
func NewExecutor(state core.State, emitter *events.Emitter) *Executor {
	return &Executor{state: state, emitter: emitter}
}

// ExecuteBlock applies all transactions in block sequentially.
// A failing transaction causes the whole block to be rejected.
// EventBlockCommit is emitted by the caller (consensus) after signing so
// the event carries the correct block hash.
func (e *Executor) ExecuteBlock(block *core.Block) error {
	for _, tx := range block.Transactions {
		if err := e.ExecuteTx(block, tx); err != nil {
			return fmt.Errorf("tx %s failed: %w", tx.ID, err)
		}
	}
	return nil
}

// ExecuteTx verifies and executes a single transaction with snapshot/rollback.
// Events raised by the handler are published only when it succeeds, while
// the executor is still marked busy.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) error {
	if !e.busy.CompareAndSwap(false, true) {
		return core.ErrReentrantCall
	}
	defer e.busy.Store(false)

	if err := tx.Verify(); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	ctx, err := e.applyTx(block, tx)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return err
	}

	if e.emitter != nil {
		for _, ev := range ctx.Events() {
			e.emitter.Emit(ev)
		}
		e.emitter.Emit(events.Event{
			Type:        events.EventTxExecuted,
			TxID:        tx.ID,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"type": string(tx.Type), "from": tx.From},
		})
	}
	return nil
}

// applyTx deducts the fee, increments the nonce, dispatches to the handler
// and finally rejects any attached value the handler did not claim.
func (e *Executor) applyTx(block *core.Block, tx *core.Transaction) (*Context, error) {
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return nil, fmt.Errorf("invalid nonce: expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if tx.Value > math.MaxUint64-tx.Fee || acc.Balance < tx.Fee+tx.Value {
		return nil, fmt.Errorf("%w: insufficient balance for fee and value: have %d need %d+%d",
			core.ErrTransfer, acc.Balance, tx.Fee, tx.Value)
	}
	if acc.Nonce == math.MaxUint64 {
		return nil, fmt.Errorf("nonce overflow for account %s", tx.From)
	}
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return nil, err
	}

	ctx := &Context{
		State: e.state,
		Block: block,
		Tx:    tx,
	}
	if err := globalRegistry.Execute(tx.Type, ctx, tx.Payload); err != nil {
		return nil, err
	}
	if tx.Value > 0 && !ctx.valueClaimed {
		return nil, fmt.Errorf("%w: %s does not accept attached value", core.ErrUnsolicitedValue, tx.Type)
	}
	return ctx, nil
}
