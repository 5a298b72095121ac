package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/tolarena/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	// economy
	TxTransfer         TxType = "transfer"
	TxTokenTransfer    TxType = "token_transfer"
	TxApprove          TxType = "approve"
	TxSetReceivePolicy TxType = "set_receive_policy"

	// admin / policy
	TxSetOracle              TxType = "set_oracle"
	TxSetProtocolFee         TxType = "set_protocol_fee"
	TxSetDrawFee             TxType = "set_draw_fee"
	TxSetDisputeWindow       TxType = "set_dispute_window"
	TxSetUnstartedExpiry     TxType = "set_unstarted_expiry"
	TxSetTurnPolicy          TxType = "set_turn_policy"
	TxSetPayoutMode          TxType = "set_payout_mode"
	TxSetAttestationPolicy   TxType = "set_attestation_policy"
	TxAllowAsset             TxType = "allow_asset"
	TxDisallowAsset          TxType = "disallow_asset"
	TxRegisterTournamentAuth TxType = "register_tournament_authority"
	TxRevokeTournamentAuth   TxType = "revoke_tournament_authority"
	TxTransferOwnership      TxType = "transfer_ownership"

	// game lifecycle
	TxCreateGame        TxType = "create_game"
	TxJoinGame          TxType = "join_game"
	TxCancelUnstarted   TxType = "cancel_unstarted_game"
	TxCancelByAgreement TxType = "cancel_by_agreement"
	TxSubmitOutcome     TxType = "submit_outcome"
	TxRaiseDispute      TxType = "raise_dispute"
	TxApproveWinner     TxType = "approve_winner"
	TxResolveDispute    TxType = "resolve_dispute"

	// escrow
	TxWithdraw    TxType = "withdraw"
	TxCollectFees TxType = "collect_fees"

	// tournament
	TxCreateTournamentGames TxType = "create_tournament_games"
	TxSubmitTournamentGame  TxType = "submit_and_approve_tournament_game"
)

// Transaction is the atomic unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// Value is native currency attached to the call; a handler must claim it or
// the transaction is rejected. Signature covers all fields except ID and Signature.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Value     uint64          `json:"value,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Value     uint64          `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Value:     tx.Value,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee, value uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Value:     value,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// TransferPayload transfers native tokens.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// TokenTransferPayload transfers a fungible asset.
type TokenTransferPayload struct {
	Asset  string `json:"asset"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ApprovePayload authorises spender to pull up to Amount of Asset.
type ApprovePayload struct {
	Asset   string `json:"asset"`
	Spender string `json:"spender"` // defaults to EscrowAddress
	Amount  uint64 `json:"amount"`
}

// SetReceivePolicyPayload toggles whether the sender accepts native pushes.
type SetReceivePolicyPayload struct {
	RejectNative bool `json:"reject_native"`
}

// SetOraclePayload replaces the trusted oracle identity.
type SetOraclePayload struct {
	Oracle string `json:"oracle"`
}

// SetFeePayload sets a basis-point fee.
type SetFeePayload struct {
	Bps uint64 `json:"bps"`
}

// SetDurationPayload sets a window length.
type SetDurationPayload struct {
	Duration time.Duration `json:"duration"`
}

// SetTurnPolicyPayload bounds the number of turns accepted at creation.
type SetTurnPolicyPayload struct {
	MaxTurns     uint32 `json:"max_turns"`
	OddTurnsOnly bool   `json:"odd_turns_only"`
}

// SetPayoutModePayload picks push or push-with-pull-fallback settlement.
type SetPayoutModePayload struct {
	Mode PayoutMode `json:"mode"`
}

// SetAttestationPolicyPayload makes signed outcome digests mandatory or optional.
type SetAttestationPolicyPayload struct {
	Required bool `json:"required"`
}

// AllowAssetPayload allow-lists a fungible stake asset with a minimum stake.
type AllowAssetPayload struct {
	Asset    string `json:"asset"`
	MinStake uint64 `json:"min_stake"`
}

// DisallowAssetPayload removes an asset from the allow-list.
type DisallowAssetPayload struct {
	Asset string `json:"asset"`
}

// TournamentAuthorityPayload registers or revokes a tournament delegate.
type TournamentAuthorityPayload struct {
	Authority    string `json:"authority"`
	TournamentID string `json:"tournament_id,omitempty"`
}

// TransferOwnershipPayload hands the owner role to a new identity.
type TransferOwnershipPayload struct {
	NewOwner string `json:"new_owner"`
}

// CreateGamePayload opens a staked game. Native stakes travel in Transaction.Value.
type CreateGamePayload struct {
	Stake   uint64 `json:"stake"`
	Asset   string `json:"asset"`
	Turns   uint32 `json:"turns"`
	Player2 string `json:"player2,omitempty"` // optional pre-designated opponent
}

// GameIDPayload addresses an existing game.
type GameIDPayload struct {
	GameID uint64 `json:"game_id"`
}

// Attestation is the oracle's signature over an OutcomeDigest.
type Attestation struct {
	Digest    string `json:"digest"`    // hex
	Signature string `json:"signature"` // hex ed25519 signature over the digest string
}

// SubmitOutcomePayload records an oracle outcome.
type SubmitOutcomePayload struct {
	GameID      uint64       `json:"game_id"`
	Winner      string       `json:"winner"` // player pubkey or NoWinner for a draw
	Choices     []Round      `json:"choices"`
	Attestation *Attestation `json:"attestation,omitempty"`
}

// ResolveDisputePayload carries the arbiter's ruling.
type ResolveDisputePayload struct {
	GameID uint64 `json:"game_id"`
	Ruling Ruling `json:"ruling"`
}

// CollectFeesPayload moves the accrued fees of an asset out of the vault.
type CollectFeesPayload struct {
	Asset string `json:"asset"`
	To    string `json:"to"`
}

// CreateTournamentGamesPayload batch-creates zero-stake games.
type CreateTournamentGamesPayload struct {
	Player1s     []string `json:"player1s"`
	Player2s     []string `json:"player2s"`
	Turns        []uint32 `json:"turns"`
	TournamentID string   `json:"tournament_id"`
}
