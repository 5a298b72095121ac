package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// GenesisPolicy returns the initial policy described by g. Owner and oracle
// come from g, then g.Policy, then default to proposer.
func GenesisPolicy(g *GenesisConfig, proposer string) (*core.Policy, error) {
	var pol core.Policy
	if g.Policy != nil {
		pol = *g.Policy
	} else {
		pol = *core.DefaultPolicy("", "")
	}
	pol.Owner = firstNonEmpty(g.Owner, pol.Owner, proposer)
	pol.Oracle = firstNonEmpty(g.Oracle, pol.Oracle, proposer)
	if pol.PayoutMode == "" {
		pol.PayoutMode = core.PayoutPush
	}

	switch {
	case !crypto.IsPubKeyHex(pol.Owner):
		return nil, fmt.Errorf("genesis owner %q is not a public key", pol.Owner)
	case !crypto.IsPubKeyHex(pol.Oracle):
		return nil, fmt.Errorf("genesis oracle %q is not a public key", pol.Oracle)
	case pol.ProtocolFeeBps > core.MaxFeeBps || pol.DrawFeeBps > core.MaxFeeBps:
		return nil, fmt.Errorf("genesis fees exceed %d bps", core.MaxFeeBps)
	case pol.DisputeWindow < 0 || pol.DisputeWindow > core.MaxDisputeWindow:
		return nil, fmt.Errorf("genesis dispute window %s out of range", pol.DisputeWindow)
	case pol.UnstartedExpiry < 0 || pol.UnstartedExpiry > core.MaxUnstartedExpiry:
		return nil, fmt.Errorf("genesis unstarted expiry %s out of range", pol.UnstartedExpiry)
	case pol.MaxTurns == 0 || pol.MaxTurns > core.MaxTurnsCeiling:
		return nil, fmt.Errorf("genesis max turns %d out of range", pol.MaxTurns)
	case pol.PayoutMode != core.PayoutPush && pol.PayoutMode != core.PayoutPushPull:
		return nil, fmt.Errorf("genesis payout mode %q unknown", pol.PayoutMode)
	}
	pol.FeeVault = nil
	return &pol, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// CreateGenesisBlock builds and signs block #0: it writes the initial
// policy, allow-listed assets and balances to state and commits.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	proposerPub := proposerPriv.Public()
	g := &cfg.Genesis

	pol, err := GenesisPolicy(g, proposerPub.Hex())
	if err != nil {
		return nil, err
	}
	if err := state.SetPolicy(pol); err != nil {
		return nil, err
	}

	for asset, minStake := range g.AllowedAssets {
		if asset == "" || asset == core.NativeAsset || minStake == 0 {
			return nil, fmt.Errorf("genesis allowed asset %q: invalid listing", asset)
		}
		if err := state.SetAssetMinimum(asset, minStake); err != nil {
			return nil, err
		}
	}

	accounts := make(map[string]*core.Account)
	account := func(addr string) *core.Account {
		if acc, ok := accounts[addr]; ok {
			return acc
		}
		acc := &core.Account{Address: addr}
		accounts[addr] = acc
		return acc
	}
	for pubkeyHex, balance := range g.Alloc {
		account(pubkeyHex).Balance = balance
	}
	for pubkeyHex, tokens := range g.TokenAlloc {
		for asset, amount := range tokens {
			if asset == core.NativeAsset {
				return nil, fmt.Errorf("genesis token alloc for %s uses the native asset", pubkeyHex)
			}
			if err := account(pubkeyHex).Credit(asset, amount); err != nil {
				return nil, err
			}
		}
	}
	for _, acc := range accounts {
		if err := state.SetAccount(acc); err != nil {
			return nil, err
		}
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	ts := g.Timestamp
	if ts == 0 {
		ts = time.Now().UnixNano()
	}
	block := core.NewBlock(0, GenesisHash, proposerPub.Hex(), ts, nil)
	block.Header.StateRoot = stateRoot
	// TxRoot carries the chain ID hash so genesis blocks of different chains differ.
	block.Header.TxRoot = crypto.Hash([]byte(g.ChainID))
	block.Sign(proposerPriv)
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return strings.Count(h, "0") == len(h) && len(h) == 64
}
