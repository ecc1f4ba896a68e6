package commit

import (
	"bytes"
	"testing"

	"github.com/shadowbook/engine/pkg/crypto"
)

func TestAggregateAttestationVerifies(t *testing.T) {
	pre := [32]byte{1}
	post := [32]byte{2}
	msg := AttestationMessage(pre, post)

	signers := []*crypto.BLSSigner{
		crypto.NewBLSSignerFromSeed(bytes.Repeat([]byte{0x11}, 32)),
		crypto.NewBLSSignerFromSeed(bytes.Repeat([]byte{0x22}, 32)),
		crypto.NewBLSSignerFromSeed(bytes.Repeat([]byte{0x33}, 32)),
	}

	var atts []Attestation
	var pks []*crypto.BLSPubKey
	for _, s := range signers {
		sig := s.Sign(msg)
		if !crypto.VerifyBLS(s.Pubkey(), sig, msg) {
			t.Fatal("individual attestation signature did not verify")
		}
		atts = append(atts, Attestation{Validator: s.Pubkey(), Signature: sig})
		pks = append(pks, s.Pubkey())
	}

	agg, ok := Aggregate(atts)
	if !ok {
		t.Fatal("aggregation failed")
	}
	if !VerifyAggregate(pks, pre, post, agg) {
		t.Fatal("aggregate signature did not verify")
	}
	// Swapping pre/post changes the message, so the same aggregate must
	// not verify for it.
	if VerifyAggregate(pks, post, pre, agg) {
		t.Fatal("aggregate verified over a different pre/post pair")
	}
}

func TestAggregateEmptySetReportsNothingToSign(t *testing.T) {
	if agg, ok := Aggregate(nil); ok || agg != nil {
		t.Fatalf("expected (nil, false) for an empty attestation set, got (%v, %v)", agg, ok)
	}
}
