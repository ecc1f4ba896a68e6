package action

import (
	"testing"

	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/event"
	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/state"
)

const (
	usdc money.AssetID = 1
	btc  money.AssetID = 2
	spot money.InstrumentID = 1
)

func newHarness(t *testing.T) (*state.State, *event.Log) {
	t.Helper()
	s := state.New()
	s.Assets[usdc] = state.Asset{ID: usdc, Symbol: "USDC", Decimals: 6}
	s.Assets[btc] = state.Asset{ID: btc, Symbol: "BTC", Decimals: 8}
	s.Instruments[spot] = state.Instrument{ID: spot, Base: btc, Quote: usdc, Tick: 1, Lot: 1, Status: state.Active}
	s.Book(spot)
	return s, event.NewLog()
}

func sign(t *testing.T, signer *crypto.Signer, a Action) Envelope {
	t.Helper()
	digest := Digest(a)
	sig, err := signer.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return Envelope{Action: a, PubKey: crypto.PublicKeyBytes(signer.PublicKeyECDSA()), Signature: sig}
}

func mustSigner(t *testing.T) *crypto.Signer {
	t.Helper()
	signer, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return signer
}

func registerRootKey(t *testing.T, s *state.State, log *event.Log, user money.UserID, signer *crypto.Signer) {
	t.Helper()
	env := sign(t, signer, AddSessionKey{User: user, PubKey: crypto.PublicKeyBytes(signer.PublicKeyECDSA()), Expiration: 0})
	if err := Dispatch(s, log, env, 0, nil); err != nil {
		t.Fatalf("register root key: %v", err)
	}
}

func TestDepositCreditsLedger(t *testing.T) {
	s, log := newHarness(t)
	amt, _ := money.MulPriceQty(1, 1000)
	if err := Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil); err != nil {
		t.Fatalf("deposit rejected: %v", err)
	}
	got := s.Ledger.Get(1, usdc)
	if got.Total.Cmp(amt) != 0 {
		t.Fatalf("total = %s, want %s", got.Total, amt)
	}
}

func TestDepositUnknownAssetRejected(t *testing.T) {
	s, log := newHarness(t)
	err := Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: 99, Amount: money.FromUint64(1)}}, 0, nil)
	if err == nil || err.Code != CodeUnknownAsset {
		t.Fatalf("expected CodeUnknownAsset, got %v", err)
	}
}

func TestPlaceOrderRequiresSignature(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)

	amt, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	env := Envelope{Action: place, PubKey: crypto.PublicKeyBytes(signer.PublicKeyECDSA()), Signature: make([]byte, 65)}
	err := Dispatch(s, log, env, 0, nil)
	if err == nil || err.Code != CodeBadSignature {
		t.Fatalf("expected CodeBadSignature, got %v", err)
	}
}

func TestPlaceOrderRestsAndReserves(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)

	amt, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	if err := Dispatch(s, log, sign(t, signer, place), 0, nil); err != nil {
		t.Fatalf("place order rejected: %v", err)
	}

	bal := s.Ledger.Get(1, usdc)
	if bal.Reserved.Cmp(amt) != 0 {
		t.Fatalf("reserved = %s, want %s", bal.Reserved, amt)
	}
	if _, ok := s.Book(spot).BySignedID(1, 1); !ok {
		t.Fatal("order did not rest in the book")
	}
}

func TestNonceReplayRejected(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)
	amt, _ := money.MulPriceQty(100, 20)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	if err := Dispatch(s, log, sign(t, signer, place), 0, nil); err != nil {
		t.Fatalf("first place rejected: %v", err)
	}
	// Replaying the same nonce must fail even with a different signed id.
	replay := PlaceOrder{User: 1, Instrument: spot, SignedID: 2, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	err := Dispatch(s, log, sign(t, signer, replay), 0, nil)
	if err == nil || err.Code != CodeNonceReplay {
		t.Fatalf("expected CodeNonceReplay, got %v", err)
	}
}

func TestWithdrawDebitsAndEmitsDestination(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: money.FromUint64(100)}}, 0, nil)

	withdraw := Withdraw{
		User: 1, Asset: usdc, Amount: money.FromUint64(40),
		Destination: WithdrawDestination{Kind: DestinationExternal, Network: "ethereum-mainnet", Address: "0xabc"},
		Nonce:       0,
	}
	if err := Dispatch(s, log, sign(t, signer, withdraw), 0, nil); err != nil {
		t.Fatalf("withdraw rejected: %v", err)
	}

	if got := s.Ledger.Get(1, usdc).Total; got.Cmp(money.FromUint64(60)) != 0 {
		t.Fatalf("total = %s, want 60", got)
	}
	if s.Users[1].Nonce != 1 {
		t.Fatalf("nonce = %d, want 1", s.Users[1].Nonce)
	}

	var found bool
	for _, e := range log.All() {
		if e.Kind == event.KindWithdraw {
			found = true
		}
	}
	if !found {
		t.Fatal("no Withdraw event in the log")
	}
}

func TestWithdrawExternalRequiresAddress(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: money.FromUint64(100)}}, 0, nil)

	withdraw := Withdraw{
		User: 1, Asset: usdc, Amount: money.FromUint64(40),
		Destination: WithdrawDestination{Kind: DestinationExternal, Network: "hyli"},
		Nonce:       0,
	}
	err := Dispatch(s, log, sign(t, signer, withdraw), 0, nil)
	if err == nil || err.Code != CodeBadDestination {
		t.Fatalf("expected CodeBadDestination, got %v", err)
	}
}

func TestRejectedActionLeavesNoTrace(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)
	// No deposit: the reservation must fail on insufficient balance.

	eventsBefore := log.Len()
	nonceBefore := s.Users[1].Nonce

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	err := Dispatch(s, log, sign(t, signer, place), 0, nil)
	if err == nil || err.Code != CodeInsufficientBalance {
		t.Fatalf("expected CodeInsufficientBalance, got %v", err)
	}

	if log.Len() != eventsBefore {
		t.Fatalf("rejected action appended %d events", log.Len()-eventsBefore)
	}
	if s.Users[1].Nonce != nonceBefore {
		t.Fatalf("rejected action advanced the nonce to %d", s.Users[1].Nonce)
	}
	if bal := s.Ledger.Get(1, usdc); !bal.Reserved.IsZero() {
		t.Fatalf("rejected action left a reservation of %s", bal.Reserved)
	}
	if _, ok := s.Book(spot).BySignedID(1, 1); ok {
		t.Fatal("rejected order reached the book")
	}
}

func TestPartialFillKeepsRemainderReserved(t *testing.T) {
	s, log := newHarness(t)
	seller := mustSigner(t)
	buyer := mustSigner(t)
	registerRootKey(t, s, log, 1, seller)
	registerRootKey(t, s, log, 2, buyer)

	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: btc, Amount: money.FromUint64(3)}}, 0, nil)
	cost, _ := money.MulPriceQty(100, 1)
	Dispatch(s, log, Envelope{Action: Deposit{User: 2, Asset: usdc, Amount: cost}}, 0, nil)

	ask := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Sell, Type: money.Limit, Price: 100, Qty: 3, Nonce: 0}
	if err := Dispatch(s, log, sign(t, seller, ask), 0, nil); err != nil {
		t.Fatalf("ask rejected: %v", err)
	}
	bid := PlaceOrder{User: 2, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 1, Nonce: 0}
	if err := Dispatch(s, log, sign(t, buyer, bid), 0, nil); err != nil {
		t.Fatalf("bid rejected: %v", err)
	}

	// 1 of 3 filled: the ask stays at the head of its level with exactly
	// its unfilled quantity still reserved.
	ord, ok := s.Book(spot).ByID(0)
	if !ok || ord.OpenQty != 2 {
		t.Fatalf("expected resting ask with OpenQty=2, got %+v", ord)
	}
	if got := s.Ledger.Get(1, btc).Reserved; got.Cmp(money.FromUint64(2)) != 0 {
		t.Fatalf("seller btc reserved = %s, want 2", got)
	}
	if got := s.Ledger.Get(1, usdc).Total; got.Cmp(cost) != 0 {
		t.Fatalf("seller usdc total = %s, want %s", got, cost)
	}
}

func TestMatchingFillsCreditsBothSides(t *testing.T) {
	s, log := newHarness(t)
	seller := mustSigner(t)
	buyer := mustSigner(t)
	registerRootKey(t, s, log, 1, seller)
	registerRootKey(t, s, log, 2, buyer)

	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: btc, Amount: money.FromUint64(10)}}, 0, nil)
	cost, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 2, Asset: usdc, Amount: cost}}, 0, nil)

	ask := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Sell, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	if err := Dispatch(s, log, sign(t, seller, ask), 0, nil); err != nil {
		t.Fatalf("ask rejected: %v", err)
	}
	bid := PlaceOrder{User: 2, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	if err := Dispatch(s, log, sign(t, buyer, bid), 0, nil); err != nil {
		t.Fatalf("bid rejected: %v", err)
	}

	if got := s.Ledger.Get(2, btc).Total; got.Cmp(money.FromUint64(10)) != 0 {
		t.Fatalf("buyer btc total = %s, want 10", got)
	}
	if got := s.Ledger.Get(1, usdc).Total; got.Cmp(cost) != 0 {
		t.Fatalf("seller usdc total = %s, want %s", got, cost)
	}
	if got := s.Ledger.Get(1, btc).Reserved; !got.IsZero() {
		t.Fatalf("seller btc reserved = %s, want 0", got)
	}

	// One cross produces one Trade and one OrderFilled per side, and the
	// trade's parties are never the same user.
	var trades []event.Trade
	var filled int
	for i := 0; i < log.Len(); i++ {
		e := log.At(i)
		if tr, ok := event.DecodeTrade(e); ok {
			trades = append(trades, tr)
		}
		if e.Kind == event.KindOrderFilled {
			filled++
		}
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 Trade event, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Price != 100 || tr.Qty != 10 || tr.TakerSide != money.Buy {
		t.Fatalf("unexpected trade: %+v", tr)
	}
	if tr.TakerUser == tr.MakerUser {
		t.Fatal("trade matched a user against itself")
	}
	if filled != 2 {
		t.Fatalf("expected 2 OrderFilled events (one per side), got %d", filled)
	}
}

func TestMarketBuyPriceImprovementRefunded(t *testing.T) {
	s, log := newHarness(t)
	seller := mustSigner(t)
	buyer := mustSigner(t)
	registerRootKey(t, s, log, 1, seller)
	registerRootKey(t, s, log, 2, buyer)

	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: btc, Amount: money.FromUint64(5)}}, 0, nil)
	worstCase, _ := money.MulPriceQty(200, 5) // buyer's worst-case cap, well above the resting ask
	Dispatch(s, log, Envelope{Action: Deposit{User: 2, Asset: usdc, Amount: worstCase}}, 0, nil)

	ask := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Sell, Type: money.Limit, Price: 100, Qty: 5, Nonce: 0}
	Dispatch(s, log, sign(t, seller, ask), 0, nil)

	bid := PlaceOrder{User: 2, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Market, Price: 200, Qty: 5, Nonce: 0}
	if err := Dispatch(s, log, sign(t, buyer, bid), 0, nil); err != nil {
		t.Fatalf("market buy rejected: %v", err)
	}

	actualCost, _ := money.MulPriceQty(100, 5)
	bal := s.Ledger.Get(2, usdc)
	want, _ := worstCase.Sub(actualCost)
	if bal.Total.Cmp(want) != 0 {
		t.Fatalf("buyer usdc total = %s, want %s", bal.Total, want)
	}
	if !bal.Reserved.IsZero() {
		t.Fatalf("buyer usdc reserved = %s, want 0", bal.Reserved)
	}
}

func TestMarketBuyMissingCapRejected(t *testing.T) {
	s, log := newHarness(t)
	buyer := mustSigner(t)
	registerRootKey(t, s, log, 1, buyer)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: money.FromUint64(1000)}}, 0, nil)

	bid := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Market, Price: 0, Qty: 5, Nonce: 0}
	err := Dispatch(s, log, sign(t, buyer, bid), 0, nil)
	if err == nil || err.Code != CodeMissingMarketCap {
		t.Fatalf("expected CodeMissingMarketCap, got %v", err)
	}
}

func TestSelfTradeCancelsRestingOrder(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: btc, Amount: money.FromUint64(10)}}, 0, nil)
	amt, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	ask := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Sell, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	Dispatch(s, log, sign(t, signer, ask), 0, nil)

	bid := PlaceOrder{User: 1, Instrument: spot, SignedID: 2, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 1}
	if err := Dispatch(s, log, sign(t, signer, bid), 0, nil); err != nil {
		t.Fatalf("bid rejected: %v", err)
	}

	if _, ok := s.Book(spot).BySignedID(1, 1); ok {
		t.Fatal("resting ask should have been self-trade cancelled")
	}
	if _, ok := s.Book(spot).BySignedID(1, 2); !ok {
		t.Fatal("bid should now rest since its cross was cancelled, not filled")
	}
	if got := s.Ledger.Get(1, btc).Reserved; got.Cmp(money.Zero) != 0 {
		t.Fatalf("base reservation should be released with the cancelled ask, got %s", got)
	}
	for i := 0; i < log.Len(); i++ {
		if tr, ok := event.DecodeTrade(log.At(i)); ok && tr.TakerUser == tr.MakerUser {
			t.Fatalf("trade matched a user against itself: %+v", tr)
		}
	}
}

func TestCancelOrderReleasesReservation(t *testing.T) {
	s, log := newHarness(t)
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)
	amt, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	Dispatch(s, log, sign(t, signer, place), 0, nil)

	cancel := CancelOrder{User: 1, Instrument: spot, SignedID: 1, Nonce: 1}
	if err := Dispatch(s, log, sign(t, signer, cancel), 0, nil); err != nil {
		t.Fatalf("cancel rejected: %v", err)
	}
	bal := s.Ledger.Get(1, usdc)
	if !bal.Reserved.IsZero() {
		t.Fatalf("reserved = %s, want 0", bal.Reserved)
	}
}

func TestCancelOrderNotOwnerRejected(t *testing.T) {
	s, log := newHarness(t)
	owner := mustSigner(t)
	other := mustSigner(t)
	registerRootKey(t, s, log, 1, owner)
	registerRootKey(t, s, log, 2, other)
	amt, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	Dispatch(s, log, sign(t, owner, place), 0, nil)

	cancel := CancelOrder{User: 2, Instrument: spot, SignedID: 1, Nonce: 0}
	err := Dispatch(s, log, sign(t, other, cancel), 0, nil)
	if err == nil || err.Code != CodeOrderNotFound {
		t.Fatalf("expected CodeOrderNotFound (scoped by user+signed id), got %v", err)
	}
}

func TestSessionKeyExpiryRejectsPlaceOrder(t *testing.T) {
	s, log := newHarness(t)
	root := mustSigner(t)
	session := mustSigner(t)
	registerRootKey(t, s, log, 1, root)

	addKey := AddSessionKey{User: 1, PubKey: crypto.PublicKeyBytes(session.PublicKeyECDSA()), Expiration: 100}
	if err := Dispatch(s, log, sign(t, root, addKey), 0, nil); err != nil {
		t.Fatalf("add session key rejected: %v", err)
	}

	amt, _ := money.MulPriceQty(100, 10)
	Dispatch(s, log, Envelope{Action: Deposit{User: 1, Asset: usdc, Amount: amt}}, 0, nil)

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	// asOf before expiration succeeds.
	if err := Dispatch(s, log, sign(t, session, place), 50, nil); err != nil {
		t.Fatalf("place with live session key rejected: %v", err)
	}
	// asOf at/after expiration fails.
	place2 := PlaceOrder{User: 1, Instrument: spot, SignedID: 2, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 1}
	err := Dispatch(s, log, sign(t, session, place2), 100, nil)
	if err == nil || err.Code != CodeSessionKeyExpired {
		t.Fatalf("expected CodeSessionKeyExpired, got %v", err)
	}
}

func TestCreatePairRequiresAdminKey(t *testing.T) {
	s, log := newHarness(t)
	admin := mustSigner(t)
	impostor := mustSigner(t)
	adminPub := crypto.PublicKeyBytes(admin.PublicKeyECDSA())

	create := CreatePair{Instrument: 2, Base: btc, Quote: usdc, Tick: 1, Lot: 1}
	err := Dispatch(s, log, sign(t, impostor, create), 0, adminPub)
	if err == nil || err.Code != CodeNotAuthorized {
		t.Fatalf("expected CodeNotAuthorized, got %v", err)
	}

	if err := Dispatch(s, log, sign(t, admin, create), 0, adminPub); err != nil {
		t.Fatalf("admin-signed create_pair rejected: %v", err)
	}
	if _, ok := s.Instruments[2]; !ok {
		t.Fatal("instrument was not registered")
	}
}

func TestAddSessionKeyIdempotentNoNonce(t *testing.T) {
	s, log := newHarness(t)
	root := mustSigner(t)
	session := mustSigner(t)
	registerRootKey(t, s, log, 1, root)

	addKey := AddSessionKey{User: 1, PubKey: crypto.PublicKeyBytes(session.PublicKeyECDSA()), Expiration: 1000}
	if err := Dispatch(s, log, sign(t, root, addKey), 0, nil); err != nil {
		t.Fatalf("first registration rejected: %v", err)
	}
	// Re-submitting the identical registration must succeed again: no nonce
	// is consumed, so this is not a replay.
	if err := Dispatch(s, log, sign(t, root, addKey), 0, nil); err != nil {
		t.Fatalf("idempotent re-registration rejected: %v", err)
	}
}

func TestSetInstrumentStatusRequiresAdminKey(t *testing.T) {
	s, log := newHarness(t)
	admin := mustSigner(t)
	impostor := mustSigner(t)
	adminPub := crypto.PublicKeyBytes(admin.PublicKeyECDSA())

	pause := SetInstrumentStatus{Instrument: spot, Status: uint8(state.Paused)}
	if err := Dispatch(s, log, sign(t, impostor, pause), 0, adminPub); err == nil || err.Code != CodeNotAuthorized {
		t.Fatalf("expected CodeNotAuthorized, got %v", err)
	}

	if err := Dispatch(s, log, sign(t, admin, pause), 0, adminPub); err != nil {
		t.Fatalf("admin-signed status change rejected: %v", err)
	}
	if s.Instruments[spot].Status != state.Paused {
		t.Fatalf("instrument status = %v, want Paused", s.Instruments[spot].Status)
	}
}

func TestSetInstrumentStatusRejectsInvalidTransition(t *testing.T) {
	s, log := newHarness(t)
	admin := mustSigner(t)
	adminPub := crypto.PublicKeyBytes(admin.PublicKeyECDSA())

	settle := SetInstrumentStatus{Instrument: spot, Status: uint8(state.Settled)}
	err := Dispatch(s, log, sign(t, admin, settle), 0, adminPub)
	if err == nil || err.Code != CodeInvalidStatusTransition {
		t.Fatalf("expected CodeInvalidStatusTransition, got %v", err)
	}
	if s.Instruments[spot].Status != state.Active {
		t.Fatalf("instrument status changed despite rejected transition: %v", s.Instruments[spot].Status)
	}
}

func TestPlaceOrderRejectedWhenInstrumentPaused(t *testing.T) {
	s, log := newHarness(t)
	admin := mustSigner(t)
	adminPub := crypto.PublicKeyBytes(admin.PublicKeyECDSA())
	signer := mustSigner(t)
	registerRootKey(t, s, log, 1, signer)

	pause := SetInstrumentStatus{Instrument: spot, Status: uint8(state.Paused)}
	if err := Dispatch(s, log, sign(t, admin, pause), 0, adminPub); err != nil {
		t.Fatalf("pause rejected: %v", err)
	}

	place := PlaceOrder{User: 1, Instrument: spot, SignedID: 1, Side: money.Buy, Type: money.Limit, Price: 100, Qty: 10, Nonce: 0}
	err := Dispatch(s, log, sign(t, signer, place), 0, adminPub)
	if err == nil || err.Code != CodeInstrumentNotActive {
		t.Fatalf("expected CodeInstrumentNotActive, got %v", err)
	}
}
