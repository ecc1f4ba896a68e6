package loadgen

import (
	"testing"

	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/money"
)

func testMarket() Market {
	return Market{Instrument: 1, Tick: 1, Lot: 10, CenterPrice: 1000, Spread: 5}
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	acct, err := NewAccount(money.UserID(1))
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	return acct
}

func TestGenerateOne_ProducesVerifiableSignature(t *testing.T) {
	acct := newTestAccount(t)
	gen := New([]*Account{acct}, DefaultConfig([]Market{testMarket()}), 1)

	for i := 0; i < 20; i++ {
		env, err := gen.GenerateOne()
		if err != nil {
			t.Fatalf("GenerateOne: %v", err)
		}
		digest := action.Digest(env.Action)
		if !crypto.VerifyWithPublicKey(env.PubKey, digest, env.Signature) {
			t.Fatalf("generated envelope %d has an invalid signature", i)
		}
	}
}

func TestGenerateOne_OrdersRespectTickAndLot(t *testing.T) {
	acct := newTestAccount(t)
	mkt := testMarket()
	gen := New([]*Account{acct}, Config{Markets: []Market{mkt}, CancelChance: 0, MarketChance: 0}, 2)

	for i := 0; i < 50; i++ {
		env, err := gen.GenerateOne()
		if err != nil {
			t.Fatalf("GenerateOne: %v", err)
		}
		order, ok := env.Action.(action.PlaceOrder)
		if !ok {
			t.Fatalf("expected a PlaceOrder with CancelChance=0, got %T", env.Action)
		}
		if order.Price%mkt.Tick != 0 {
			t.Fatalf("price %d is not a multiple of tick %d", order.Price, mkt.Tick)
		}
		if order.Qty%mkt.Lot != 0 {
			t.Fatalf("qty %d is not a multiple of lot %d", order.Qty, mkt.Lot)
		}
		if order.Type != money.Limit {
			t.Fatalf("expected only limit orders with MarketChance=0, got %v", order.Type)
		}
	}
}

func TestGenerateCancel_OnlyTargetsLiveOrders(t *testing.T) {
	acct := newTestAccount(t)
	gen := New([]*Account{acct}, Config{Markets: []Market{testMarket()}, CancelChance: 1, MarketChance: 0}, 3)

	// The first call can't be a cancel since nothing is resting yet.
	first, err := gen.GenerateOne()
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	placed, ok := first.Action.(action.PlaceOrder)
	if !ok {
		t.Fatalf("expected the first generated action to be a PlaceOrder, got %T", first.Action)
	}

	second, err := gen.GenerateOne()
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	cancel, ok := second.Action.(action.CancelOrder)
	if !ok {
		t.Fatalf("expected the second generated action to be a CancelOrder, got %T", second.Action)
	}
	if cancel.SignedID != placed.SignedID {
		t.Fatalf("cancel targeted signed id %d, want %d", cancel.SignedID, placed.SignedID)
	}
}

func TestGenerateBatch_ReturnsRequestedCount(t *testing.T) {
	acct := newTestAccount(t)
	gen := New([]*Account{acct}, DefaultConfig([]Market{testMarket()}), 4)
	batch := gen.GenerateBatch(25)
	if len(batch) != 25 {
		t.Fatalf("expected 25 envelopes, got %d", len(batch))
	}
}
