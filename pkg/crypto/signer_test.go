package crypto

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGenerateKeyRoundTripsThroughHex(t *testing.T) {
	signer1, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if signer1.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}

	privHex := signer1.PrivateKeyHex()
	if len(privHex) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(privHex))
	}

	signer2, err := FromPrivateKeyHex(privHex)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	if signer2.Address() != signer1.Address() {
		t.Errorf("address = %s, want %s", signer2.Address().Hex(), signer1.Address().Hex())
	}

	// A 0x prefix must load to the same key.
	signer3, err := FromPrivateKeyHex("0x" + privHex)
	if err != nil {
		t.Fatalf("load 0x-prefixed key: %v", err)
	}
	if signer3.Address() != signer1.Address() {
		t.Error("0x-prefixed key loaded to a different address")
	}
}

func TestSignAndVerifyWithPublicKey(t *testing.T) {
	signer, _ := GenerateKey()
	digest := CanonicalDigest("test.domain.v1", []byte("field-a"), []byte("field-b"))

	sig, err := signer.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	pub := PublicKeyBytes(signer.PublicKeyECDSA())
	if !VerifyWithPublicKey(pub, digest, sig) {
		t.Error("signature did not verify against the signer's own key")
	}
	// The recovery byte is optional for verification.
	if !VerifyWithPublicKey(pub, digest, sig[:64]) {
		t.Error("64-byte signature (no recovery byte) did not verify")
	}

	other, _ := GenerateKey()
	if VerifyWithPublicKey(PublicKeyBytes(other.PublicKeyECDSA()), digest, sig) {
		t.Error("signature verified against an unrelated key")
	}

	otherDigest := CanonicalDigest("test.domain.v1", []byte("field-a"), []byte("tampered"))
	if VerifyWithPublicKey(pub, otherDigest, sig) {
		t.Error("signature verified over a different digest")
	}
}

func TestCanonicalDigestSeparatesDomainsAndFieldBoundaries(t *testing.T) {
	a := CanonicalDigest("engine.place_order.v1", []byte("ab"), []byte("c"))
	b := CanonicalDigest("engine.cancel_order.v1", []byte("ab"), []byte("c"))
	if a == b {
		t.Error("same fields under different domains must not collide")
	}
	// Length prefixing means shifting bytes between adjacent fields
	// changes the digest.
	c := CanonicalDigest("engine.place_order.v1", []byte("a"), []byte("bc"))
	if a == c {
		t.Error("field boundary shift must change the digest")
	}
}

func TestSignRejectsNonDigestInput(t *testing.T) {
	signer, _ := GenerateKey()
	if _, err := signer.Sign([]byte("too short")); err == nil {
		t.Error("expected error signing a non-32-byte input")
	}
}

func TestVerifyWithPublicKeyRejectsMalformedInputs(t *testing.T) {
	signer, _ := GenerateKey()
	digest := CanonicalDigest("test.domain.v1", []byte("x"))
	sig, _ := signer.Sign(digest[:])
	pub := PublicKeyBytes(signer.PublicKeyECDSA())

	if VerifyWithPublicKey(pub[:64], digest, sig) {
		t.Error("truncated public key must not verify")
	}
	if VerifyWithPublicKey(pub, digest, sig[:10]) {
		t.Error("truncated signature must not verify")
	}
}

func TestAddressFromUncompressedPubMatchesSigner(t *testing.T) {
	signer, _ := GenerateKey()
	pub := PublicKeyBytes(signer.PublicKeyECDSA())

	got := AddressFromUncompressedPub(pub)
	want := signer.Address().Hex()
	if got != want {
		t.Errorf("derived address = %s, want %s", got, want)
	}

	if AddressFromUncompressedPub(pub[1:]) != "" {
		t.Error("expected empty result for malformed key")
	}
	if AddressFromUncompressedPub(bytes.Repeat([]byte{0x01}, 65)) != "" {
		t.Error("expected empty result for wrong key prefix")
	}
}
