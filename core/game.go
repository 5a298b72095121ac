package core

import (
	"fmt"
	"time"
)

const (
	// NativeAsset identifies the chain's native currency in Game.Asset and
	// every asset-keyed map.
	NativeAsset = "native"

	// EscrowAddress is the custody account holding every staked game's funds.
	EscrowAddress = "escrow"

	// NoWinner is the winner sentinel recorded for a draw.
	NoWinner = ""
)

// Protocol ceilings enforced by the admin module.
const (
	BpsDenominator     = 10_000
	MaxFeeBps          = 100 // 1%
	MaxDisputeWindow   = time.Hour
	MaxUnstartedExpiry = 7 * 24 * time.Hour
	MaxTurnsCeiling    = 99
)

// GameState is a node in the lifecycle graph.
type GameState string

const (
	StateWaiting    GameState = "waiting"
	StateInProgress GameState = "in_progress"
	StateCompleted  GameState = "completed"
	StateDispute    GameState = "dispute"
	StateCancelled  GameState = "cancelled"
	StateSettled    GameState = "settled"
)

// Terminal reports whether no further transition is possible.
func (s GameState) Terminal() bool {
	return s == StateCancelled || s == StateSettled
}

// Choice is one participant's move in a single turn.
type Choice uint8

const (
	ChoiceNone Choice = iota // sentinel: no move recorded
	ChoiceRock
	ChoicePaper
	ChoiceScissors
)

// Valid reports whether c is a known move or the sentinel.
func (c Choice) Valid() bool {
	return c <= ChoiceScissors
}

// Beats reports whether c wins against other. A missing move loses to any move.
func (c Choice) Beats(other Choice) bool {
	switch {
	case c == ChoiceNone:
		return false
	case other == ChoiceNone:
		return true
	}
	return (c == ChoiceRock && other == ChoiceScissors) ||
		(c == ChoicePaper && other == ChoiceRock) ||
		(c == ChoiceScissors && other == ChoicePaper)
}

// Round is the pair of moves made in one turn.
type Round struct {
	Player1 Choice `json:"p1" msgpack:"p1"`
	Player2 Choice `json:"p2" msgpack:"p2"`
}

// Game is the escrowed two-party match record.
type Game struct {
	ID             uint64    `json:"id"`
	Player1        string    `json:"player1"`
	Player2        string    `json:"player2,omitempty"` // empty until joined unless pre-designated
	StakeAmount    uint64    `json:"stake_amount"`
	Asset          string    `json:"asset"` // NativeAsset, a fungible asset id, or "" for tournament games
	State          GameState `json:"state"`
	NumberOfTurns  uint32    `json:"number_of_turns"`
	Choices        []Round   `json:"choices"`
	Winner         string    `json:"winner"`
	OriginalWinner string    `json:"original_winner"` // winner as submitted, kept through disputes
	Player1Dispute bool      `json:"player1_dispute"`
	Player2Dispute bool      `json:"player2_dispute"`
	CreationTime   int64     `json:"creation_time"`
	LastActionTime int64     `json:"last_action_time"`
	TournamentID   string    `json:"tournament_id,omitempty"`
}

// IsParticipant reports whether addr is one of the seated players.
func (g *Game) IsParticipant(addr string) bool {
	return addr != "" && (addr == g.Player1 || addr == g.Player2)
}

// Opponent returns the other seated player, or "" if addr is not seated.
func (g *Game) Opponent(addr string) string {
	switch addr {
	case g.Player1:
		return g.Player2
	case g.Player2:
		return g.Player1
	}
	return ""
}

// Contributors returns the players whose stake is held for this game.
func (g *Game) Contributors() []string {
	if g.StakeAmount == 0 {
		return nil
	}
	if g.State == StateWaiting || g.Player2 == "" {
		return []string{g.Player1}
	}
	return []string{g.Player1, g.Player2}
}

// EmptyChoices returns turns rounds initialised to the no-choice sentinel.
func EmptyChoices(turns uint32) []Round {
	return make([]Round, turns)
}

// PlayerStats is the derived per-participant read model.
type PlayerStats struct {
	Address        string   `json:"address"`
	GamesPlayed    uint64   `json:"games_played"`
	GamesWon       uint64   `json:"games_won"`
	GamesLost      uint64   `json:"games_lost"`
	GamesDrawn     uint64   `json:"games_drawn"`
	GamesCancelled uint64   `json:"games_cancelled"`
	GameIDs        []uint64 `json:"game_ids"`
}

// Ruling is the arbiter's decision on a disputed game.
type Ruling string

const (
	RulingDraw                 Ruling = "draw"
	RulingOriginalWinnerStands Ruling = "original_winner_stands"
	RulingOtherPartyWins       Ruling = "other_party_wins"
)

// PayoutMode selects how settlement moves native funds to recipients.
type PayoutMode string

const (
	// PayoutPush transfers directly; a recipient refusing native funds aborts the call.
	PayoutPush PayoutMode = "push"
	// PayoutPushPull pushes, falling back to a pending withdrawal for refusing recipients.
	PayoutPushPull PayoutMode = "push_pull"
)

// Policy holds the mutable protocol parameters.
type Policy struct {
	Owner              string            `json:"owner"`
	Oracle             string            `json:"oracle"`
	ProtocolFeeBps     uint64            `json:"protocol_fee_bps"`
	DrawFeeBps         uint64            `json:"draw_fee_bps"`
	DisputeWindow      time.Duration     `json:"dispute_window"`
	UnstartedExpiry    time.Duration     `json:"unstarted_expiry"`
	MaxTurns           uint32            `json:"max_turns"`
	OddTurnsOnly       bool              `json:"odd_turns_only"`
	RequireAttestation bool              `json:"require_attestation"`
	PayoutMode         PayoutMode        `json:"payout_mode"`
	FeeVault           map[string]uint64 `json:"fee_vault,omitempty"` // asset → accrued fees
}

// DefaultPolicy returns the parameters a fresh ledger starts with.
func DefaultPolicy(owner, oracle string) *Policy {
	return &Policy{
		Owner:           owner,
		Oracle:          oracle,
		ProtocolFeeBps:  50,
		DrawFeeBps:      50,
		DisputeWindow:   10 * time.Minute,
		UnstartedExpiry: 24 * time.Hour,
		MaxTurns:        9,
		OddTurnsOnly:    true,
		PayoutMode:      PayoutPush,
	}
}

// ValidateTurns checks a turn count against the turn policy.
func (p *Policy) ValidateTurns(turns uint32) error {
	if turns == 0 || turns > p.MaxTurns {
		return fmt.Errorf("%w: turns must be in 1..%d, got %d", ErrValidation, p.MaxTurns, turns)
	}
	if p.OddTurnsOnly && turns%2 == 0 {
		return fmt.Errorf("%w: turns must be odd, got %d", ErrValidation, turns)
	}
	return nil
}
