package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// CanonicalDigest hashes a domain tag and an ordered list of fields with
// SHA3-256. Every field is length-prefixed so no ambiguity can arise from
// concatenating variable-length byte strings (e.g. "ab"+"c" vs "a"+"bc").
// This is the single digest construction every action envelope signs over;
// it never changes shape across action kinds, only the field list does.
func CanonicalDigest(domain string, fields ...[]byte) [32]byte {
	h := sha3.New256()
	writeField(h, []byte(domain))
	for _, f := range fields {
		writeField(h, f)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func writeField(h interface{ Write([]byte) (int, error) }, f []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(f)))
	h.Write(lenBuf[:])
	h.Write(f)
}

// PublicKeyBytes returns the 65-byte uncompressed encoding of a public key.
func PublicKeyBytes(pub *ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(pub)
}

// VerifyWithPublicKey checks that signature (64 or 65 bytes, recovery byte
// optional) was produced over digest by the private key matching pubKey.
// Unlike VerifySignature it does not recover an address — it verifies
// directly against a caller-supplied key, matching an authorization model
// where the signer's public key travels with the envelope rather than being
// derived after the fact.
func VerifyWithPublicKey(pubKey []byte, digest [32]byte, signature []byte) bool {
	if len(pubKey) != 65 || len(digest) != 32 {
		return false
	}
	sig := signature
	if len(sig) == 65 {
		sig = sig[:64]
	}
	if len(sig) != 64 {
		return false
	}
	return crypto.VerifySignature(pubKey, digest[:], sig)
}

// ParsePublicKey validates and returns the 65-byte uncompressed form.
func ParsePublicKey(raw []byte) (*ecdsa.PublicKey, error) {
	pub, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}
