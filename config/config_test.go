package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
	"github.com/tolelom/tolarena/internal/testutil"
)

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Genesis.ChainID, cfg.Genesis.ChainID)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.NodeID = "arena7"
	cfg.Validators = []string{"aa", "bb"}
	cfg.Genesis.AllowedAssets = map[string]uint64{"gold": 10}
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TOL_DATA_DIR", "/var/lib/arena")
	t.Setenv("TOL_RPC_PORT", "9000")
	t.Setenv("TOL_RPC_TOKEN", "secret")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "/var/lib/arena", cfg.DataDir)
	assert.Equal(t, 9000, cfg.RPCPort)
	assert.Equal(t, "secret", cfg.RPCAuthToken)

	t.Setenv("TOL_RPC_PORT", "not-a-port")
	assert.Error(t, ApplyEnv(DefaultConfig()))
}

func TestGenesisPolicy(t *testing.T) {
	_, proposer, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	_, oracle, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	t.Run("defaults to proposer", func(t *testing.T) {
		pol, err := GenesisPolicy(&GenesisConfig{}, proposer.Hex())
		require.NoError(t, err)
		assert.Equal(t, proposer.Hex(), pol.Owner)
		assert.Equal(t, proposer.Hex(), pol.Oracle)
		assert.Equal(t, uint64(50), pol.ProtocolFeeBps)
		assert.Equal(t, core.PayoutPush, pol.PayoutMode)
	})

	t.Run("explicit oracle wins", func(t *testing.T) {
		base := core.DefaultPolicy("", "")
		base.DisputeWindow = time.Minute
		base.FeeVault = map[string]uint64{core.NativeAsset: 5}
		pol, err := GenesisPolicy(&GenesisConfig{Oracle: oracle.Hex(), Policy: base}, proposer.Hex())
		require.NoError(t, err)
		assert.Equal(t, oracle.Hex(), pol.Oracle)
		assert.Equal(t, proposer.Hex(), pol.Owner)
		assert.Equal(t, time.Minute, pol.DisputeWindow)
		assert.Empty(t, pol.FeeVault)
	})

	invalid := map[string]func(p *core.Policy){
		"fee too high":    func(p *core.Policy) { p.ProtocolFeeBps = core.MaxFeeBps + 1 },
		"window too long": func(p *core.Policy) { p.DisputeWindow = core.MaxDisputeWindow + time.Second },
		"zero max turns":  func(p *core.Policy) { p.MaxTurns = 0 },
		"payout mode":     func(p *core.Policy) { p.PayoutMode = "carrier-pigeon" },
		"bad owner":       func(p *core.Policy) { p.Owner = "nobody" },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			pol := core.DefaultPolicy("", "")
			mutate(pol)
			_, err := GenesisPolicy(&GenesisConfig{Policy: pol}, proposer.Hex())
			assert.Error(t, err)
		})
	}
}

func TestCreateGenesisBlock(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Genesis.Timestamp = 42
	cfg.Genesis.Alloc = map[string]uint64{"alice": 500}
	cfg.Genesis.TokenAlloc = map[string]map[string]uint64{"alice": {"gold": 7}}
	cfg.Genesis.AllowedAssets = map[string]uint64{"gold": 3}

	state := testutil.NewStateDB()
	block, err := CreateGenesisBlock(cfg, state, priv)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block.Header.Height)
	assert.Equal(t, int64(42), block.Header.Timestamp)
	assert.True(t, IsGenesisHash(block.Header.PrevHash))
	assert.Equal(t, state.ComputeRoot(), block.Header.StateRoot)
	require.NoError(t, block.Verify(pub))

	acc, err := state.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acc.Balance)
	assert.Equal(t, uint64(7), acc.BalanceOf("gold"))

	minStake, err := state.GetAssetMinimum("gold")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), minStake)

	pol, err := state.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, pub.Hex(), pol.Owner)
}

func TestCreateGenesisBlockRejectsNativeListing(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Genesis.AllowedAssets = map[string]uint64{core.NativeAsset: 1}
	_, err = CreateGenesisBlock(cfg, testutil.NewStateDB(), priv)
	assert.Error(t, err)
}
