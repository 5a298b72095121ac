// Package node assembles a ledger node: storage, executor, consensus loop,
// indexer, metrics and the RPC server.
package node

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tolelom/tolarena/config"
	"github.com/tolelom/tolarena/consensus"
	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/indexer"
	"github.com/tolelom/tolarena/metrics"
	"github.com/tolelom/tolarena/rpc"
	"github.com/tolelom/tolarena/storage"
	"github.com/tolelom/tolarena/vm"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/tolelom/tolarena/vm/modules/admin"
	_ "github.com/tolelom/tolarena/vm/modules/economy"
	_ "github.com/tolelom/tolarena/vm/modules/escrow"
	_ "github.com/tolelom/tolarena/vm/modules/game"
	_ "github.com/tolelom/tolarena/vm/modules/tournament"
)

// Node is a single-validator ledger node.
type Node struct {
	cfg     *config.Config
	State   *storage.StateDB
	Chain   *core.Blockchain
	Mempool *core.Mempool
	Emitter *events.Emitter
	Indexer *indexer.Indexer
	Metrics *metrics.Service
	PoA     *consensus.PoA
	RPC     *rpc.Handler

	server *rpc.Server
	done   chan struct{}
	wg     sync.WaitGroup
}

// New wires a node over db. A fresh database gets a genesis block built
// from cfg. reg receives the node's metrics; pass a fresh registry in tests.
func New(cfg *config.Config, db storage.DB, privKey crypto.PrivateKey, reg *prometheus.Registry) (*Node, error) {
	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewLevelBlockStore(db))
	if err := bc.Init(); err != nil {
		return nil, fmt.Errorf("blockchain init: %w", err)
	}
	if bc.Tip() == nil {
		genesis, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}
		if err := bc.AddBlock(genesis); err != nil {
			return nil, fmt.Errorf("add genesis: %w", err)
		}
		log.Info("Genesis block committed", "hash", genesis.Hash, "chain", cfg.Genesis.ChainID)
	}

	if len(cfg.Validators) == 0 {
		cfg.Validators = []string{privKey.Public().Hex()}
	}

	emitter := events.NewEmitter()
	n := &Node{
		cfg:     cfg,
		State:   state,
		Chain:   bc,
		Mempool: core.NewMempool(cfg.Genesis.ChainID),
		Emitter: emitter,
		Indexer: indexer.New(db, emitter),
		Metrics: metrics.NewService(reg),
	}
	n.Metrics.Attach(emitter)
	exec := vm.NewExecutor(state, emitter)
	n.PoA = consensus.New(cfg, bc, state, n.Mempool, exec, emitter, privKey)
	n.RPC = rpc.NewHandler(bc, n.Mempool, state, n.Indexer, cfg.Genesis.ChainID)
	return n, nil
}

// Start serves RPC on the configured port and runs the consensus loop.
func (n *Node) Start(metricsHandler http.Handler) error {
	interval, err := time.ParseDuration(n.cfg.BlockTime)
	if err != nil || interval <= 0 {
		return fmt.Errorf("invalid block_time %q", n.cfg.BlockTime)
	}

	addr := fmt.Sprintf(":%d", n.cfg.RPCPort)
	n.server = rpc.NewServer(addr, n.RPC, n.cfg.RPCAuthToken, metricsHandler)
	if err := n.server.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	log.Info("RPC listening", "addr", addr, "auth", n.cfg.RPCAuthToken != "")

	n.done = make(chan struct{})
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.PoA.Run(interval, n.done)
	}()
	return nil
}

// Stop halts block production first, then the RPC server.
func (n *Node) Stop() {
	if n.done != nil {
		close(n.done)
		n.wg.Wait()
		n.done = nil
	}
	if n.server != nil {
		if err := n.server.Stop(); err != nil {
			log.Warn("RPC shutdown", "error", err)
		}
		n.server = nil
	}
}
