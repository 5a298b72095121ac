// Package consensus implements Proof-of-Authority block production.
// Validators propose blocks in round-robin order. Each block is signed by
// the proposer and its timestamp is the ledger clock for every transaction
// it contains.
package consensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tolelom/tolarena/config"
	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/vm"
)

// Discarder is implemented by state backends that can drop uncommitted writes.
type Discarder interface {
	Discard()
}

// PoA is the Proof-of-Authority consensus engine.
type PoA struct {
	cfg     *config.Config
	bc      *core.Blockchain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey

	// clock returns wall time in unix nanos; replaced in tests.
	clock func() int64
}

// New creates a PoA engine for the local validator identified by privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
) *PoA {
	return &PoA{
		cfg:     cfg,
		bc:      bc,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		pubKey:  privKey.Public(),
		clock:   func() int64 { return time.Now().UnixNano() },
	}
}

// SetClock overrides the wall clock used to stamp blocks.
func (p *PoA) SetClock(clock func() int64) {
	p.clock = clock
}

// IsProposer reports whether this node should propose the next block.
func (p *PoA) IsProposer() bool {
	if len(p.cfg.Validators) == 0 {
		return false
	}
	nextHeight := p.bc.Height() + 1
	idx := int(nextHeight) % len(p.cfg.Validators)
	return p.cfg.Validators[idx] == p.pubKey.Hex()
}

// ProduceBlock builds, executes, signs and commits the next block.
// Pending transactions that fail are logged and dropped from the mempool;
// they do not prevent the rest of the batch from being included.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	if !p.IsProposer() {
		return nil, errors.New("not the proposer for this round")
	}

	limit := p.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = 500
	}
	pending := p.mempool.Pending(limit)

	tip := p.bc.Tip()
	prevHash, nextHeight := config.GenesisHash, int64(1)
	ts := p.clock()
	if tip != nil {
		prevHash = tip.Hash
		nextHeight = tip.Header.Height + 1
		// The ledger clock never runs backwards.
		if ts < tip.Header.Timestamp {
			ts = tip.Header.Timestamp
		}
	}

	block := core.NewBlock(nextHeight, prevHash, p.pubKey.Hex(), ts, nil)
	var included []*core.Transaction
	var done []string
	for _, tx := range pending {
		done = append(done, tx.ID)
		if err := p.exec.ExecuteTx(block, tx); err != nil {
			log.Warn("Dropping failed transaction", "tx", tx.ID, "type", tx.Type, "error", err)
			continue
		}
		included = append(included, tx)
	}
	block.Transactions = included
	block.Header.TxRoot = core.ComputeTxRoot(included)

	// Compute root from the write buffer BEFORE flushing so that if AddBlock
	// fails the state has not yet been persisted and the node stays consistent.
	block.Header.StateRoot = p.state.ComputeRoot()
	block.Sign(p.privKey)

	if err := p.bc.AddBlock(block); err != nil {
		if d, ok := p.state.(Discarder); ok {
			d.Discard()
		}
		return nil, fmt.Errorf("add block: %w", err)
	}

	// Flush state only after the block is safely stored.
	if err := p.state.Commit(); err != nil {
		log.Fatal("Block stored but state commit failed", "height", block.Header.Height, "error", err)
	}

	// Emit after Sign() so block.Hash is set correctly.
	if p.emitter != nil {
		p.emitter.Emit(events.Event{
			Type:        events.EventBlockCommit,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"hash": block.Hash, "txs": len(block.Transactions), "dropped": len(done) - len(included)},
		})
	}

	p.mempool.Remove(done)
	return block, nil
}

// ValidateBlock checks that block was proposed by the expected validator.
func (p *PoA) ValidateBlock(block *core.Block) error {
	if len(p.cfg.Validators) == 0 {
		return errors.New("no validators configured")
	}
	idx := int(block.Header.Height) % len(p.cfg.Validators)
	expected := p.cfg.Validators[idx]
	if block.Header.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer, expected)
	}

	pub, err := crypto.PubKeyFromHex(block.Header.Proposer)
	if err != nil {
		return fmt.Errorf("invalid proposer pubkey: %w", err)
	}
	if err := block.Verify(pub); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}

	tip := p.bc.Tip()
	if tip == nil {
		if !config.IsGenesisHash(block.Header.PrevHash) {
			return errors.New("first block must reference genesis prev-hash")
		}
		return nil
	}
	if block.Header.PrevHash != tip.Hash {
		return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, tip.Hash)
	}
	if block.Header.Height != tip.Header.Height+1 {
		return fmt.Errorf("height mismatch: got %d want %d", block.Header.Height, tip.Header.Height+1)
	}
	if block.Header.Timestamp < tip.Header.Timestamp {
		return fmt.Errorf("timestamp %d precedes tip %d", block.Header.Timestamp, tip.Header.Timestamp)
	}
	return nil
}

// Run starts the block-production loop with the given interval. It blocks
// until done is closed. Empty rounds are skipped.
func (p *PoA) Run(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !p.IsProposer() || p.mempool.Size() == 0 {
				continue
			}
			block, err := p.ProduceBlock()
			if err != nil {
				log.Error("Produce block failed", "error", err)
				continue
			}
			log.Info("Block committed", "height", block.Header.Height, "txs", len(block.Transactions))
		}
	}
}
