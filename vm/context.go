package vm

import (
	"fmt"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
)

// Context is passed to every Handler and provides access to the ledger
// state, the current block and the triggering transaction. Events raised
// through Emit are held until the handler returns successfully.
type Context struct {
	State core.State
	Block *core.Block
	Tx    *core.Transaction

	pending      []events.Event
	valueClaimed bool
}

// Now is the ledger clock (block timestamp, unix nanoseconds).
func (c *Context) Now() int64 {
	return c.Block.Header.Timestamp
}

// Emit queues an event for publication after the transaction succeeds.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.pending = append(c.pending, events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Data:        data,
	})
}

// ClaimValue marks the attached native value as consumed by the handler.
// The attached value must equal amount exactly and may be claimed once.
func (c *Context) ClaimValue(amount uint64) error {
	if c.valueClaimed {
		return fmt.Errorf("%w: attached value already claimed", core.ErrValidation)
	}
	if c.Tx.Value != amount {
		return fmt.Errorf("%w: attached value %d does not match required %d", core.ErrValidation, c.Tx.Value, amount)
	}
	c.valueClaimed = true
	return nil
}

// Events returns the events queued so far.
func (c *Context) Events() []events.Event {
	return c.pending
}
