// Package indexer maintains secondary indexes fed by ledger events so
// clients can list payouts by recipient and games by tournament without
// scanning full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/events"
	"github.com/tolelom/tolarena/storage"
)

const (
	prefixRecipientPayouts = "idx:payout:"
	prefixTournamentGames  = "idx:tournament:"
)

// Payout is one settlement or refund credited to a recipient.
type Payout struct {
	GameID      uint64 `json:"game_id"`
	Asset       string `json:"asset"`
	Amount      uint64 `json:"amount"`
	Pending     bool   `json:"pending"` // credited as a pending withdrawal
	TxID        string `json:"tx_id"`
	BlockHeight int64  `json:"block_height"`
}

// Indexer subscribes to ledger events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventPayout, idx.onPayout)
	emitter.Subscribe(events.EventTournamentGames, idx.onTournamentGames)
	return idx
}

// GetPayoutsByRecipient returns every payout credited to recipient, oldest first.
func (idx *Indexer) GetPayoutsByRecipient(recipient string) ([]Payout, error) {
	var list []Payout
	err := idx.getList(prefixRecipientPayouts+recipient, &list)
	return list, err
}

// GetTournamentGames returns the ids of games created for tournamentID.
func (idx *Indexer) GetTournamentGames(tournamentID string) ([]uint64, error) {
	var list []uint64
	err := idx.getList(prefixTournamentGames+tournamentID, &list)
	return list, err
}

// ---- event handlers ----

func (idx *Indexer) onPayout(ev events.Event) {
	recipient, _ := ev.Data["recipient"].(string)
	if recipient == "" {
		return
	}
	p := Payout{TxID: ev.TxID, BlockHeight: ev.BlockHeight}
	p.GameID, _ = ev.Data["game_id"].(uint64)
	p.Asset, _ = ev.Data["asset"].(string)
	p.Amount, _ = ev.Data["amount"].(uint64)
	p.Pending, _ = ev.Data["pending"].(bool)

	var list []Payout
	if err := idx.getList(prefixRecipientPayouts+recipient, &list); err != nil {
		log.Error("Indexer read failed", "key", prefixRecipientPayouts+recipient, "error", err)
		return
	}
	idx.putList(prefixRecipientPayouts+recipient, append(list, p))
}

func (idx *Indexer) onTournamentGames(ev events.Event) {
	tid, _ := ev.Data["tournament_id"].(string)
	ids, _ := ev.Data["game_ids"].([]uint64)
	if tid == "" || len(ids) == 0 {
		return
	}
	var list []uint64
	if err := idx.getList(prefixTournamentGames+tid, &list); err != nil {
		log.Error("Indexer read failed", "key", prefixTournamentGames+tid, "error", err)
		return
	}
	idx.putList(prefixTournamentGames+tid, append(list, ids...))
}

// ---- list helpers ----

// getList decodes the JSON list at key into v; a missing key leaves v empty.
func (idx *Indexer) getList(key string, v any) error {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("indexer unmarshal: %w", err)
	}
	return nil
}

func (idx *Indexer) putList(key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = idx.db.Set([]byte(key), data)
	}
	if err != nil {
		log.Error("Indexer write failed", "key", key, "error", err)
	}
}
