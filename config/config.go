package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/tolelom/tolarena/core"
)

// GenesisConfig describes the ledger's initial state.
type GenesisConfig struct {
	ChainID   string `json:"chain_id"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix nanos; 0 → wall clock at creation

	// Owner and Oracle default to the genesis proposer's key.
	Owner  string       `json:"owner,omitempty"`
	Oracle string       `json:"oracle,omitempty"`
	Policy *core.Policy `json:"policy,omitempty"` // nil → core.DefaultPolicy

	Alloc         map[string]uint64            `json:"alloc"`                    // pubkey hex → native balance
	TokenAlloc    map[string]map[string]uint64 `json:"token_alloc,omitempty"`    // pubkey hex → asset → balance
	AllowedAssets map[string]uint64            `json:"allowed_assets,omitempty"` // asset → minimum stake
}

// Config holds all node configuration.
type Config struct {
	NodeID       string        `json:"node_id"`
	DataDir      string        `json:"data_dir"`
	RPCPort      int           `json:"rpc_port"`
	RPCAuthToken string        `json:"rpc_auth_token,omitempty"` // empty disables bearer auth
	BlockTime    string        `json:"block_time"`               // time.ParseDuration format
	MaxBlockTxs  int           `json:"max_block_txs"`            // max transactions per block; 0 → 500
	Validators   []string      `json:"validators"`               // authorised proposer pubkey hexes
	Genesis      GenesisConfig `json:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "arena0",
		DataDir:     "./data",
		RPCPort:     8545,
		BlockTime:   "2s",
		MaxBlockTxs: 500,
		Genesis: GenesisConfig{
			ChainID: "tolarena-dev",
			Alloc:   map[string]uint64{},
		},
	}
}

// Load reads a JSON config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load that falls back to DefaultConfig when path does not
// exist. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("Config file not found, using defaults", "path", path)
		cfg, err = DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads a .env file when present and applies TOL_DATA_DIR,
// TOL_RPC_PORT and TOL_RPC_TOKEN over cfg.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, reading from environment variables")
	}
	if v, ok := os.LookupEnv("TOL_DATA_DIR"); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("TOL_RPC_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOL_RPC_PORT: %w", err)
		}
		cfg.RPCPort = port
	}
	if v, ok := os.LookupEnv("TOL_RPC_TOKEN"); ok {
		cfg.RPCAuthToken = v
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
