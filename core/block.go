package core

import (
	"encoding/json"

	"github.com/tolelom/tolarena/crypto"
)

// BlockHeader contains the block metadata that is hashed and signed.
// Timestamp (unix nanoseconds) is the ledger clock: every time-window check
// inside the block's transactions reads it.
type BlockHeader struct {
	Height    int64  `json:"height"`
	PrevHash  string `json:"prev_hash"`
	StateRoot string `json:"state_root"` // hash of state after executing this block
	TxRoot    string `json:"tx_root"`    // hash of all transaction IDs
	Timestamp int64  `json:"timestamp"`
	Proposer  string `json:"proposer"` // proposer's pubkey hex
}

// Block is a collection of transactions with a signed header.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

// ComputeHash returns the SHA-256 hash of the serialised header.
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (b *Block) ComputeHash() string {
	data, err := json.Marshal(b.Header)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign sets Hash and signs the block with the proposer's private key.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// Verify checks the block signature against the given public key.
func (b *Block) Verify(pub crypto.PublicKey) error {
	return crypto.Verify(pub, []byte(b.Hash), b.Signature)
}

// ComputeTxRoot commits to the ordered transaction IDs of a block.
func ComputeTxRoot(txs []*Transaction) string {
	ids := make([][]byte, len(txs))
	for i, tx := range txs {
		ids[i] = []byte(tx.ID)
	}
	return crypto.HashFields(ids...)
}

// NewBlock creates an unsigned block stamped with timestamp.
func NewBlock(height int64, prevHash, proposer string, timestamp int64, txs []*Transaction) *Block {
	return &Block{
		Header: BlockHeader{
			Height:    height,
			PrevHash:  prevHash,
			TxRoot:    ComputeTxRoot(txs),
			Timestamp: timestamp,
			Proposer:  proposer,
		},
		Transactions: txs,
	}
}
