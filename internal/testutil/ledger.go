package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/storage"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/wallet"
)

// ChainID is the chain id used by Ledger transactions.
const ChainID = "tolarena-test"

// GenesisTime is the ledger clock a fresh Ledger starts at.
var GenesisTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()

// Ledger drives an Executor over an in-memory state with a controllable
// clock. Handlers must already be registered by the importing test.
type Ledger struct {
	t       *testing.T
	State   *storage.StateDB
	Exec    *vm.Executor
	Emitter *events.Emitter
	Owner   *wallet.Wallet
	Oracle  *wallet.Wallet
	Now     int64

	height int64
	nonces map[string]uint64
	events []events.Event
}

// NewLedger returns a Ledger with core.DefaultPolicy owned by a fresh owner
// and oracle.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()
	l := &Ledger{
		t:       t,
		State:   NewStateDB(),
		Emitter: events.NewEmitter(),
		Now:     GenesisTime,
		nonces:  make(map[string]uint64),
	}
	l.Exec = vm.NewExecutor(l.State, l.Emitter)
	l.Emitter.SubscribeAll(func(ev events.Event) { l.events = append(l.events, ev) })

	l.Owner = l.NewWallet(0)
	l.Oracle = l.NewWallet(0)
	require.NoError(t, l.State.SetPolicy(core.DefaultPolicy(l.Owner.PubKey(), l.Oracle.PubKey())))
	return l
}

// NewWallet generates a key and funds it with balance native units.
func (l *Ledger) NewWallet(balance uint64) *wallet.Wallet {
	l.t.Helper()
	w, err := wallet.Generate()
	require.NoError(l.t, err)
	l.Credit(w.PubKey(), core.NativeAsset, balance)
	return w
}

// Credit mints amount of asset to addr directly in state.
func (l *Ledger) Credit(addr, asset string, amount uint64) {
	l.t.Helper()
	acc, err := l.State.GetAccount(addr)
	require.NoError(l.t, err)
	require.NoError(l.t, acc.Credit(asset, amount))
	require.NoError(l.t, l.State.SetAccount(acc))
}

// Advance moves the ledger clock forward by d.
func (l *Ledger) Advance(d time.Duration) {
	l.Now += int64(d)
}

// Send signs and executes a transaction from w in a block stamped l.Now.
// The sender's nonce is tracked and only consumed on success.
func (l *Ledger) Send(w *wallet.Wallet, typ core.TxType, value uint64, payload any) error {
	l.t.Helper()
	nonce := l.nonces[w.PubKey()]
	tx, err := w.NewValueTx(ChainID, typ, nonce, 0, value, payload)
	require.NoError(l.t, err)
	l.height++
	block := core.NewBlock(l.height, "", l.Owner.PubKey(), l.Now, []*core.Transaction{tx})
	if err := l.Exec.ExecuteTx(block, tx); err != nil {
		return err
	}
	l.nonces[w.PubKey()] = nonce + 1
	return nil
}

// MustSend is Send that fails the test on error.
func (l *Ledger) MustSend(w *wallet.Wallet, typ core.TxType, value uint64, payload any) {
	l.t.Helper()
	require.NoError(l.t, l.Send(w, typ, value, payload))
}

// Game loads game id.
func (l *Ledger) Game(id uint64) *core.Game {
	l.t.Helper()
	g, err := l.State.GetGame(id)
	require.NoError(l.t, err)
	return g
}

// Stats loads the statistics of addr.
func (l *Ledger) Stats(addr string) *core.PlayerStats {
	l.t.Helper()
	st, err := l.State.GetPlayerStats(addr)
	require.NoError(l.t, err)
	return st
}

// Policy loads the current policy.
func (l *Ledger) Policy() *core.Policy {
	l.t.Helper()
	p, err := l.State.GetPolicy()
	require.NoError(l.t, err)
	return p
}

// Balance returns addr's holding of asset.
func (l *Ledger) Balance(addr, asset string) uint64 {
	l.t.Helper()
	acc, err := l.State.GetAccount(addr)
	require.NoError(l.t, err)
	return acc.BalanceOf(asset)
}

// Pending returns addr's pending withdrawal.
func (l *Ledger) Pending(addr string) uint64 {
	l.t.Helper()
	n, err := l.State.GetPendingWithdrawal(addr)
	require.NoError(l.t, err)
	return n
}

// Events returns the published events of type typ, oldest first.
func (l *Ledger) Events(typ events.EventType) []events.Event {
	var out []events.Event
	for _, ev := range l.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
