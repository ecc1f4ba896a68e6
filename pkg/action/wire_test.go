package action

import (
	"bytes"
	"testing"

	"github.com/shadowbook/engine/pkg/money"
)

func TestEnvelopeRoundTripWithdrawDestination(t *testing.T) {
	amt, _ := money.MulPriceQty(27500, 3)
	env := Envelope{
		Action: Withdraw{
			User: 7, Asset: 2, Amount: amt,
			Destination: WithdrawDestination{Kind: DestinationExternal, Network: "ethereum-mainnet", Address: "0xdeadbeef"},
			Nonce:       9,
		},
		PubKey:    bytes.Repeat([]byte{0x04}, 65),
		Signature: bytes.Repeat([]byte{0x01}, 65),
	}

	encoded, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEnvelope(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := decoded.Action.(Withdraw)
	if !ok {
		t.Fatalf("decoded action is %T, want Withdraw", decoded.Action)
	}
	want := env.Action.(Withdraw)
	if got.User != want.User || got.Asset != want.Asset || got.Nonce != want.Nonce {
		t.Fatalf("decoded = %+v, want %+v", got, want)
	}
	if got.Amount.Cmp(want.Amount) != 0 {
		t.Fatalf("amount = %s, want %s", got.Amount, want.Amount)
	}
	if got.Destination != want.Destination {
		t.Fatalf("destination = %+v, want %+v", got.Destination, want.Destination)
	}
	// The digest, which the signature covers, must survive the round trip.
	if Digest(got) != Digest(want) {
		t.Fatal("canonical digest changed across encode/decode")
	}
}

func TestEncodePads64ByteSignature(t *testing.T) {
	env := Envelope{
		Action:    CancelOrder{User: 1, Instrument: 1, SignedID: 1, Nonce: 0},
		PubKey:    bytes.Repeat([]byte{0x04}, 65),
		Signature: bytes.Repeat([]byte{0x02}, 64), // no recovery byte
	}
	encoded, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEnvelope(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Signature) != 65 {
		t.Fatalf("signature length = %d, want 65 (zero-padded recovery byte)", len(decoded.Signature))
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	if _, err := DecodeEnvelope([]byte{0xFF, 0x00}); err == nil {
		t.Fatal("expected error for an unknown action tag")
	}
}
