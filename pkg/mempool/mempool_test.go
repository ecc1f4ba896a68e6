package mempool

import (
	"strconv"
	"testing"

	"github.com/shadowbook/engine/pkg/action"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		env  action.Envelope
		want Bucket
	}{
		{"deposit", action.Envelope{Action: action.Deposit{}}, BucketNonOrder},
		{"add session key", action.Envelope{Action: action.AddSessionKey{}}, BucketNonOrder},
		{"create pair", action.Envelope{Action: action.CreatePair{}}, BucketNonOrder},
		{"cancel", action.Envelope{Action: action.CancelOrder{}}, BucketCancel},
		{"place order", action.Envelope{Action: action.PlaceOrder{}}, BucketOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.env); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectForProposalOrdersByBucketThenFIFO(t *testing.T) {
	m := New()

	order1 := action.Envelope{Action: action.PlaceOrder{SignedID: 1}}
	order2 := action.Envelope{Action: action.PlaceOrder{SignedID: 2}}
	cancel1 := action.Envelope{Action: action.CancelOrder{SignedID: 1}}
	cancel2 := action.Envelope{Action: action.CancelOrder{SignedID: 2}}
	deposit := action.Envelope{Action: action.Deposit{User: 1}}

	m.Push(order1)
	m.Push(cancel1)
	m.Push(order2)
	m.Push(cancel2)
	m.Push(deposit)

	out := m.SelectForProposal(0)
	if len(out) != 5 {
		t.Fatalf("expected 5 envelopes, got %d", len(out))
	}

	want := []string{"deposit:1", "cancel:1", "cancel:2", "order:1", "order:2"}
	for i, w := range want {
		if got := envelopeTag(out[i]); got != w {
			t.Errorf("position %d: got %q, want %q", i, got, w)
		}
	}
}

// envelopeTag identifies an envelope for test assertions without relying on
// struct equality (Envelope embeds slice fields and so is not comparable).
func envelopeTag(env action.Envelope) string {
	switch a := env.Action.(type) {
	case action.Deposit:
		return "deposit:1"
	case action.CancelOrder:
		return "cancel:" + strconv.FormatUint(uint64(a.SignedID), 10)
	case action.PlaceOrder:
		return "order:" + strconv.FormatUint(uint64(a.SignedID), 10)
	default:
		return "other"
	}
}

func TestSelectForProposalRespectsMax(t *testing.T) {
	m := New()
	m.Push(action.Envelope{Action: action.Deposit{User: 1}})
	m.Push(action.Envelope{Action: action.Deposit{User: 2}})
	m.Push(action.Envelope{Action: action.Deposit{User: 3}})

	out := m.SelectForProposal(2)
	if len(out) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(out))
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 envelope remaining, got %d", m.Len())
	}
}
