// Package crypto wraps the secp256k1/ECDSA and BLS primitives the rest of
// the module signs and verifies with. The digest and verification functions
// are pure — bytes in, bytes or bool out — so the action core can call them
// without pulling in I/O, randomness, or a clock; GenerateKey reads system
// randomness.
package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds one secp256k1 key pair. Action envelopes carry the signer's
// uncompressed public key explicitly, so the derived address is
// informational (client display, bridge-side mapping) and never an
// authorization input.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	address    common.Address
}

// GenerateKey creates a new random secp256k1 key pair.
func GenerateKey() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

// FromPrivateKeyHex loads a Signer from a hex-encoded private key, with or
// without a 0x prefix.
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

func fromPrivateKey(privateKey *ecdsa.PrivateKey) (*Signer, error) {
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("private key holds no ECDSA public key")
	}
	return &Signer{
		privateKey: privateKey,
		publicKey:  publicKey,
		address:    crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// Address returns the Ethereum-style address derived from the public key.
func (s *Signer) Address() common.Address {
	return s.address
}

// PublicKeyECDSA returns the signer's raw public key, for callers that
// need to pass it somewhere expecting an explicit verification key (e.g.
// an action envelope) rather than an address.
func (s *Signer) PublicKeyECDSA() *ecdsa.PublicKey {
	return s.publicKey
}

// PrivateKeyHex renders the private key as bare hex (no 0x prefix). Keep
// the result out of logs.
func (s *Signer) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// Sign signs a 32-byte digest, returning the 65-byte [R || S || V] form
// with V the raw recovery id (0 or 1). Verification against an explicit
// public key ignores V; it is carried so the same signature also works
// with recovery-based tooling.
func (s *Signer) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return signature, nil
}
