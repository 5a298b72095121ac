package core

import (
	"fmt"
	"math/bits"
)

// Account holds a participant's balances and replay-protection nonce.
// Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string            `json:"address"` // pubkey hex
	Balance uint64            `json:"balance"` // native currency
	Nonce   uint64            `json:"nonce"`
	Tokens  map[string]uint64 `json:"tokens,omitempty"`     // fungible asset → balance
	Allow   map[string]uint64 `json:"allowances,omitempty"` // AllowanceKey(asset, spender) → amount
	// RejectNative marks an account that refuses direct native pushes, the
	// way a contract without a receive hook would.
	RejectNative bool `json:"reject_native,omitempty"`
}

// AllowanceKey joins an asset and spender into the key used by Account.Allow.
func AllowanceKey(asset, spender string) string {
	return asset + "/" + spender
}

// BalanceOf returns the account's holding of asset.
func (a *Account) BalanceOf(asset string) uint64 {
	if asset == NativeAsset {
		return a.Balance
	}
	return a.Tokens[asset]
}

// Credit adds amount of asset, refusing to overflow.
func (a *Account) Credit(asset string, amount uint64) error {
	cur := a.BalanceOf(asset)
	sum, carry := bits.Add64(cur, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: balance overflow for %s", ErrTransfer, a.Address)
	}
	if asset == NativeAsset {
		a.Balance = sum
		return nil
	}
	if a.Tokens == nil {
		a.Tokens = make(map[string]uint64)
	}
	a.Tokens[asset] = sum
	return nil
}

// Debit removes amount of asset or fails without touching the account.
func (a *Account) Debit(asset string, amount uint64) error {
	cur := a.BalanceOf(asset)
	if cur < amount {
		return fmt.Errorf("%w: insufficient %s balance: have %d need %d", ErrTransfer, asset, cur, amount)
	}
	if asset == NativeAsset {
		a.Balance = cur - amount
		return nil
	}
	if cur == amount {
		delete(a.Tokens, asset)
		return nil
	}
	a.Tokens[asset] = cur - amount
	return nil
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Games
	GetGame(id uint64) (*Game, error)
	SetGame(g *Game) error
	// NextGameID advances and returns the game counter (first id is 1).
	NextGameID() (uint64, error)

	// Player statistics; a missing record reads as zero-valued stats.
	GetPlayerStats(address string) (*PlayerStats, error)
	SetPlayerStats(st *PlayerStats) error

	// Protocol parameters
	GetPolicy() (*Policy, error)
	SetPolicy(p *Policy) error

	// Allow-listed stake assets; ErrNotFound means not accepted.
	GetAssetMinimum(asset string) (uint64, error)
	SetAssetMinimum(asset string, minStake uint64) error
	DeleteAssetMinimum(asset string) error

	// Tournament delegation: authority → tournament id.
	GetTournamentAuthority(authority string) (string, error)
	SetTournamentAuthority(authority, tournamentID string) error
	DeleteTournamentAuthority(authority string) error

	// Pull-payment balances (native only); missing reads as zero.
	GetPendingWithdrawal(address string) (uint64, error)
	SetPendingWithdrawal(address string, amount uint64) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}
