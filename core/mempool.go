package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	maxMempoolSize = 10_000
	maxTxAge       = int64(time.Hour)       // reject txs older than 1 hour
	maxTxFuture    = int64(5 * time.Minute) // reject txs more than 5 min in the future
)

// Mempool holds signed transactions waiting for the next block.
type Mempool struct {
	mu      sync.RWMutex
	chainID string
	txs     map[string]*Transaction
	ord     []string // insertion-ordered IDs for deterministic pending iteration
}

// NewMempool creates an empty mempool accepting transactions for chainID.
func NewMempool(chainID string) *Mempool {
	return &Mempool{chainID: chainID, txs: make(map[string]*Transaction)}
}

// Add validates and inserts a transaction. Returns an error if the pool is
// full, the tx is already present, the chain ID or signature is invalid, or
// the timestamp is out of the acceptable window (-1 h / +5 min).
func (m *Mempool) Add(tx *Transaction) error {
	if tx.ChainID != m.chainID {
		return fmt.Errorf("chain ID mismatch: got %q want %q", tx.ChainID, m.chainID)
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("invalid tx signature: %w", err)
	}
	now := time.Now().UnixNano()
	if now-tx.Timestamp > maxTxAge {
		return errors.New("transaction expired")
	}
	if tx.Timestamp-now > maxTxFuture {
		return errors.New("transaction timestamp too far in the future")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) >= maxMempoolSize {
		return errors.New("mempool full")
	}
	if _, exists := m.txs[tx.ID]; exists {
		return errors.New("tx already in pool")
	}
	m.txs[tx.ID] = tx
	m.ord = append(m.ord, tx.ID)
	return nil
}

// Pending returns up to n transactions. Senders keep their arrival slots,
// but each sender's transactions fill those slots in nonce order, so a
// client that submits nonces out of order is not dropped for it.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	queues := make(map[string][]*Transaction)
	for _, id := range m.ord {
		tx := m.txs[id]
		queues[tx.From] = append(queues[tx.From], tx)
	}
	for _, q := range queues {
		sort.SliceStable(q, func(i, j int) bool { return q[i].Nonce < q[j].Nonce })
	}
	result := make([]*Transaction, 0, min(n, len(m.ord)))
	for _, id := range m.ord {
		if len(result) >= n {
			break
		}
		from := m.txs[id].From
		result = append(result, queues[from][0])
		queues[from] = queues[from][1:]
	}
	return result
}

// Remove deletes transactions by ID (called after block commit).
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		removed[id] = true
	}
	filtered := m.ord[:0]
	for _, id := range m.ord {
		if !removed[id] {
			filtered = append(filtered, id)
		}
	}
	m.ord = filtered
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
