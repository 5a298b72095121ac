package wallet

import (
	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/crypto"
)

// Wallet signs ledger transactions and outcome attestations for one identity.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the wallet's ledger identity.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// NewTx creates a signed transaction without attached value.
// chainID must match the target network; nonce should match the account's current nonce.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce, fee uint64, payload any) (*core.Transaction, error) {
	return w.NewValueTx(chainID, typ, nonce, fee, 0, payload)
}

// NewValueTx creates a signed transaction carrying value of native currency.
func (w *Wallet) NewValueTx(chainID string, typ core.TxType, nonce, fee, value uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.pub.Hex(), nonce, fee, value, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Transfer creates a signed transfer transaction.
func (w *Wallet) Transfer(chainID, to string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransfer, nonce, fee, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}

// CreateGame opens a staked game. Native stakes are attached as value;
// fungible stakes need a prior Approve for the escrow.
func (w *Wallet) CreateGame(chainID string, p core.CreateGamePayload, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewValueTx(chainID, core.TxCreateGame, nonce, fee, nativeValue(p.Asset, p.Stake), p)
}

// JoinGame joins game id, attaching stake when the game is staked in native currency.
func (w *Wallet) JoinGame(chainID string, g *core.Game, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewValueTx(chainID, core.TxJoinGame, nonce, fee, nativeValue(g.Asset, g.StakeAmount),
		core.GameIDPayload{GameID: g.ID})
}

// Approve lets the escrow pull up to amount of asset.
func (w *Wallet) Approve(chainID, asset string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxApprove, nonce, fee, core.ApprovePayload{
		Asset:   asset,
		Spender: core.EscrowAddress,
		Amount:  amount,
	})
}

// Attest signs the outcome digest for game id with this wallet's key.
func (w *Wallet) Attest(gameID uint64, choices []core.Round, winner string) (*core.Attestation, error) {
	digest, err := core.OutcomeDigest(gameID, choices, winner)
	if err != nil {
		return nil, err
	}
	return &core.Attestation{Digest: digest, Signature: crypto.Sign(w.priv, []byte(digest))}, nil
}

func nativeValue(asset string, stake uint64) uint64 {
	if asset == "" || asset == core.NativeAsset {
		return stake
	}
	return 0
}
