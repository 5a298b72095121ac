package events

import (
	"sync"

	"github.com/charmbracelet/log"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit   EventType = "block_commit"
	EventTxExecuted    EventType = "tx_executed"
	EventTokenTransfer EventType = "token_transfer"

	EventGameCreated      EventType = "game_created"
	EventGameJoined       EventType = "game_joined"
	EventOutcomeSubmitted EventType = "outcome_submitted"
	EventDisputeRaised    EventType = "dispute_raised"
	EventCancelConsent    EventType = "cancel_consent"
	EventGameCancelled    EventType = "game_cancelled"
	EventGameSettled      EventType = "game_settled"

	EventPayout          EventType = "payout"
	EventWithdrawal      EventType = "withdrawal"
	EventFeesCollected   EventType = "fees_collected"
	EventPolicyChanged   EventType = "policy_changed"
	EventTournamentGames EventType = "tournament_games_created"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every event type.
func (e *Emitter) SubscribeAll(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[ev.Type])+len(e.all))
	handlers = append(handlers, e.handlers[ev.Type]...)
	handlers = append(handlers, e.all...)
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("event handler panicked", "event", ev.Type, "panic", r)
				}
			}()
			h(ev)
		}()
	}
}
