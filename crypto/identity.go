package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// PrivateKey is an ed25519 private key.
type PrivateKey []byte

// PublicKey is an ed25519 public key. Its hex form is a ledger identity:
// players, the oracle, the owner and tournament authorities are all named
// by it.
type PublicKey []byte

// ErrBadSignature is returned when a signature does not verify.
var ErrBadSignature = errors.New("signature verification failed")

// GenerateKeyPair returns a fresh ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Public derives the public half of priv.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

func (pub PublicKey) Hex() string { return hex.EncodeToString(pub) }

// PubKeyFromHex parses a ledger identity.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("identity %q: %w", s, err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity %q: want %d bytes, got %d", s, ed25519.PublicKeySize, len(b))
	}
	return PublicKey(b), nil
}

// IsPubKeyHex reports whether s is a well-formed identity.
func IsPubKeyHex(s string) bool {
	_, err := PubKeyFromHex(s)
	return err == nil
}

// Sign returns the hex ed25519 signature of data.
func Sign(priv PrivateKey, data []byte) string {
	return hex.EncodeToString(ed25519.Sign(ed25519.PrivateKey(priv), data))
}

// Verify checks a hex signature over data.
func Verify(pub PublicKey, data []byte, sigHex string) error {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("signature hex: %w", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return ErrBadSignature
	}
	return nil
}

// VerifyFrom is Verify for a signer named by its identity hex.
func VerifyFrom(pubHex string, data []byte, sigHex string) error {
	pub, err := PubKeyFromHex(pubHex)
	if err != nil {
		return err
	}
	return Verify(pub, data, sigHex)
}
