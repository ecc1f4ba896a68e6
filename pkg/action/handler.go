package action

import (
	"bytes"

	"github.com/shadowbook/engine/pkg/book"
	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/event"
	"github.com/shadowbook/engine/pkg/ledger"
	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/state"
)

// Dispatch is the sole entry point from a verified-at-the-edge envelope to
// state mutation: one exhaustive switch over the action kinds, no
// reflection or dynamic lookup. adminPubKey authorizes CreatePair and
// SetInstrumentStatus; asOf is the caller-supplied logical time used only
// to check session-key expiration (never a local clock read — the fast
// path passes wall-clock millis at admission, replay passes the block's
// declared timestamp, and both paths must agree byte-for-byte).
//
// Every handler is transactional: all fallible checks run before the first
// mutation or event append, so a rejected action leaves no trace at all —
// no state change, no nonce advance, no log entry. A replay that only sees
// accepted envelopes therefore reproduces the live run exactly.
func Dispatch(s *state.State, log *event.Log, env Envelope, asOf money.Seq, adminPubKey []byte) *Error {
	switch a := env.Action.(type) {
	case Deposit:
		return dispatchDeposit(s, log, a)
	case PlaceOrder:
		return dispatchPlaceOrder(s, log, env, a, asOf)
	case CancelOrder:
		return dispatchCancelOrder(s, log, env, a, asOf)
	case Withdraw:
		return dispatchWithdraw(s, log, env, a, asOf)
	case AddSessionKey:
		return dispatchAddSessionKey(s, log, env, a)
	case CreatePair:
		return dispatchCreatePair(s, log, env, a, adminPubKey)
	case SetInstrumentStatus:
		return dispatchSetInstrumentStatus(s, log, env, a, adminPubKey)
	default:
		return ValidationError(CodeBadSignature, "unrecognized action type", nil)
	}
}

func accept(log *event.Log, actionSeq money.Seq, user money.UserID, nonce money.Nonce, hash [32]byte) {
	log.Append(event.ActionAccepted{ActionSeq: actionSeq, User: user, Nonce: nonce, ActionHash: hash})
}

func commit(log *event.Log, actionSeq money.Seq) {
	log.Append(event.ActionCommitted{ActionSeq: actionSeq})
}

// emitBalance appends a BalanceUpdated event reflecting the ledger's
// current view for (user, asset).
func emitBalance(log *event.Log, l *ledger.Ledger, user money.UserID, asset money.AssetID) {
	b := l.Get(user, asset)
	log.Append(event.BalanceUpdated{User: user, Asset: asset, Total: b.Total, Reserved: b.Reserved})
}

func dispatchDeposit(s *state.State, log *event.Log, a Deposit) *Error {
	if _, ok := s.Assets[a.Asset]; !ok {
		return StateError(CodeUnknownAsset, "deposit references unknown asset", nil)
	}
	if err := s.Ledger.Credit(a.User, a.Asset, a.Amount); err != nil {
		return BalanceError(CodeOverflow, "deposit overflowed ledger width", err)
	}
	// Materialize the user record so the state-root traversal, which walks
	// balances per known user, can see this credit.
	s.User(a.User)

	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, a.User, 0, Digest(a))
	log.Append(event.Deposit{User: a.User, Asset: a.Asset, Amount: a.Amount})
	emitBalance(log, s.Ledger, a.User, a.Asset)
	commit(log, actionSeq)
	return nil
}

func dispatchWithdraw(s *state.State, log *event.Log, env Envelope, a Withdraw, asOf money.Seq) *Error {
	if authErr := verifySignerKey(s, env, a.User, asOf); authErr != nil {
		return authErr
	}
	if _, ok := s.Assets[a.Asset]; !ok {
		return StateError(CodeUnknownAsset, "withdraw references unknown asset", nil)
	}
	if a.Destination.Kind == DestinationExternal && a.Destination.Address == "" {
		return ValidationError(CodeBadDestination, "external destination requires an address", nil)
	}
	if nonceErr := checkNonce(s, a.User, a.Nonce); nonceErr != nil {
		return nonceErr
	}
	if err := s.Ledger.Debit(a.User, a.Asset, a.Amount); err != nil {
		return BalanceError(CodeInsufficientBalance, "withdraw exceeds available balance", err)
	}

	consumeNonce(s, a.User)
	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, a.User, a.Nonce, Digest(env.Action))
	log.Append(event.Withdraw{
		User: a.User, Asset: a.Asset, Amount: a.Amount,
		DestinationKind: uint8(a.Destination.Kind),
		Network:         a.Destination.Network,
		Address:         a.Destination.Address,
	})
	emitBalance(log, s.Ledger, a.User, a.Asset)
	commit(log, actionSeq)
	return nil
}

// dispatchAddSessionKey registers or re-registers a delegated signing key.
// Only the user's root key may authorize this; the very first envelope
// ever seen for a user becomes its root key, mirroring a lazily-created
// account that bootstraps off its first signature.
func dispatchAddSessionKey(s *state.State, log *event.Log, env Envelope, a AddSessionKey) *Error {
	digest := Digest(env.Action)
	if !crypto.VerifyWithPublicKey(env.PubKey, digest, env.Signature) {
		return AuthError(CodeBadSignature, "signature does not verify", nil)
	}
	if existing, ok := s.Users[a.User]; ok && len(existing.RootPubKey) > 0 && !bytes.Equal(existing.RootPubKey, env.PubKey) {
		return AuthError(CodeNotAuthorized, "only the root key may add session keys", nil)
	}

	u := s.User(a.User)
	if len(u.RootPubKey) == 0 {
		u.RootPubKey = append([]byte(nil), env.PubKey...)
	}
	u.SessionKeys[state.SessionKeyIndex(a.PubKey)] = state.SessionKey{
		PubKey:     append([]byte(nil), a.PubKey...),
		Expiration: a.Expiration,
	}

	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, a.User, 0, digest)
	log.Append(event.SessionKeyAdded{User: a.User, PubKey: a.PubKey, Expiration: a.Expiration})
	commit(log, actionSeq)
	return nil
}

func dispatchCreatePair(s *state.State, log *event.Log, env Envelope, a CreatePair, adminPubKey []byte) *Error {
	digest := Digest(env.Action)
	if !bytes.Equal(env.PubKey, adminPubKey) || !crypto.VerifyWithPublicKey(env.PubKey, digest, env.Signature) {
		return AuthError(CodeNotAuthorized, "create_pair requires the admin key", nil)
	}
	if _, exists := s.Instruments[a.Instrument]; exists {
		return StateError(CodeAlreadyExists, "instrument id already registered", nil)
	}
	if _, ok := s.Assets[a.Base]; !ok {
		return StateError(CodeUnknownAsset, "base asset unknown", nil)
	}
	if _, ok := s.Assets[a.Quote]; !ok {
		return StateError(CodeUnknownAsset, "quote asset unknown", nil)
	}

	s.Instruments[a.Instrument] = state.Instrument{
		ID: a.Instrument, Base: a.Base, Quote: a.Quote,
		Tick: a.Tick, Lot: a.Lot, Status: state.Active,
	}
	s.Book(a.Instrument)

	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, 0, 0, digest)
	log.Append(event.InstrumentCreated{Instrument: a.Instrument, Base: a.Base, Quote: a.Quote})
	commit(log, actionSeq)
	return nil
}

// dispatchSetInstrumentStatus transitions an instrument's trading
// lifecycle (Active/Paused/Settling/Settled). Authorized the same way as
// CreatePair: the configured admin key, not a per-user nonce.
func dispatchSetInstrumentStatus(s *state.State, log *event.Log, env Envelope, a SetInstrumentStatus, adminPubKey []byte) *Error {
	digest := Digest(env.Action)
	if !bytes.Equal(env.PubKey, adminPubKey) || !crypto.VerifyWithPublicKey(env.PubKey, digest, env.Signature) {
		return AuthError(CodeNotAuthorized, "set_instrument_status requires the admin key", nil)
	}
	inst, ok := s.Instruments[a.Instrument]
	if !ok {
		return StateError(CodeUnknownInstrument, "unknown instrument", nil)
	}
	if err := state.ValidateStatusTransition(inst.Status, state.InstrumentStatus(a.Status)); err != nil {
		return StateError(CodeInvalidStatusTransition, err.Error(), err)
	}

	from, err := s.SetInstrumentStatus(a.Instrument, state.InstrumentStatus(a.Status))
	if err != nil {
		return StateError(CodeInvalidStatusTransition, err.Error(), err)
	}

	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, 0, 0, digest)
	log.Append(event.InstrumentStatusChanged{Instrument: a.Instrument, From: uint8(from), To: a.Status})
	commit(log, actionSeq)
	return nil
}

func dispatchPlaceOrder(s *state.State, log *event.Log, env Envelope, a PlaceOrder, asOf money.Seq) *Error {
	if authErr := verifySignerKey(s, env, a.User, asOf); authErr != nil {
		return authErr
	}
	inst, ok := s.Instruments[a.Instrument]
	if !ok {
		return StateError(CodeUnknownInstrument, "unknown instrument", nil)
	}
	if inst.Status != state.Active {
		return StateError(CodeInstrumentNotActive, "instrument is not active", nil)
	}
	if err := inst.ValidateQty(a.Qty); err != nil {
		return ValidationError(CodeInvalidQty, err.Error(), err)
	}
	if a.Type == money.Limit {
		if err := inst.ValidatePrice(a.Price); err != nil {
			return ValidationError(CodeInvalidPrice, err.Error(), err)
		}
	} else if a.Side == money.Buy && a.Price == 0 {
		return ValidationError(CodeMissingMarketCap, "market buy requires a price cap", book.ErrMissingMarketCap)
	}
	if _, dup := s.Book(a.Instrument).BySignedID(a.User, a.SignedID); dup {
		return StateError(CodeSignedIDReused, "signed id already used by a live order for this user", nil)
	}
	if nonceErr := checkNonce(s, a.User, a.Nonce); nonceErr != nil {
		return nonceErr
	}
	reserveAsset, reserveAmt, reserveErr := orderReservation(inst, a.Side, a.Price, a.Qty)
	if reserveErr != nil {
		return reserveErr
	}
	if err := s.Ledger.Reserve(a.User, reserveAsset, reserveAmt); err != nil {
		return BalanceError(CodeInsufficientBalance, "insufficient balance to reserve order", err)
	}

	ord := &book.Order{
		ID:         s.NextOrderID(),
		SignedID:   a.SignedID,
		User:       a.User,
		Instrument: a.Instrument,
		Side:       a.Side,
		Type:       a.Type,
		Price:      a.Price,
		Qty:        a.Qty,
		OpenQty:    a.Qty,
		CreatedAt:  s.NextOrderSeq(),
	}

	b := s.Book(a.Instrument)
	res, matchErr := b.Match(ord)
	if matchErr != nil {
		// The cap was validated above, so this cannot happen; unwind the
		// reservation rather than leaving it dangling if it ever does.
		s.Ledger.Release(a.User, reserveAsset, reserveAmt)
		return ValidationError(CodeMissingMarketCap, matchErr.Error(), matchErr)
	}

	consumeNonce(s, a.User)
	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, a.User, a.Nonce, Digest(env.Action))
	emitBalance(log, s.Ledger, a.User, reserveAsset)

	for _, maker := range res.SelfTradeCancelled {
		releaseResting(s, log, inst, maker)
		log.Append(event.OrderCancelled{OrderID: maker.ID, User: maker.User, Reason: uint8(book.CancelSelfTrade)})
	}

	for _, f := range res.Fills {
		settleFill(s, log, inst, ord, f)
	}

	if res.Rested {
		log.Append(event.OrderRested{
			OrderID: ord.ID, User: ord.User, Instrument: ord.Instrument,
			Side: ord.Side, Price: ord.Price, Qty: ord.OpenQty,
		})
	} else if res.UnfilledQty > 0 {
		asset, amt, err := orderReservation(inst, ord.Side, ord.Price, res.UnfilledQty)
		if err == nil {
			s.Ledger.Release(ord.User, asset, amt)
			emitBalance(log, s.Ledger, ord.User, asset)
		}
		log.Append(event.MarketUnfilled{OrderID: ord.ID, User: ord.User, Qty: res.UnfilledQty})
	}

	commit(log, actionSeq)
	return nil
}

func dispatchCancelOrder(s *state.State, log *event.Log, env Envelope, a CancelOrder, asOf money.Seq) *Error {
	if authErr := verifySignerKey(s, env, a.User, asOf); authErr != nil {
		return authErr
	}
	inst, ok := s.Instruments[a.Instrument]
	if !ok {
		return StateError(CodeUnknownInstrument, "unknown instrument", nil)
	}
	b := s.Book(a.Instrument)
	// Ownership is enforced by the lookup itself: signed ids are scoped
	// per user, so this can only ever resolve to the caller's own order
	// and a cross-user cancel attempt lands here as not-found.
	orderID, ok := b.BySignedID(a.User, a.SignedID)
	if !ok {
		return StateError(CodeOrderNotFound, "no resting order with that signed id", nil)
	}
	ord, ok := b.ByID(orderID)
	if !ok {
		return StateError(CodeOrderNotFound, "order already left the book", nil)
	}
	if nonceErr := checkNonce(s, a.User, a.Nonce); nonceErr != nil {
		return nonceErr
	}

	consumeNonce(s, a.User)
	actionSeq := s.NextActionSeq()
	accept(log, actionSeq, a.User, a.Nonce, Digest(env.Action))

	b.Cancel(orderID)
	releaseResting(s, log, inst, ord)
	log.Append(event.OrderCancelled{OrderID: ord.ID, User: ord.User, Reason: uint8(book.CancelByUser)})
	commit(log, actionSeq)
	return nil
}

// orderReservation returns the asset and amount a resting or placed order
// of the given side/price/qty holds against the ledger: quote for a buy
// (worst-case price * qty), base for a sell (qty only — a sell's downside
// is the asset itself, not its price).
func orderReservation(inst state.Instrument, side money.Side, price, qty uint64) (money.AssetID, money.Amount, *Error) {
	if side == money.Sell {
		return inst.Base, money.FromUint64(qty), nil
	}
	amt, err := money.MulPriceQty(price, qty)
	if err != nil {
		return 0, money.Zero, BalanceError(CodeOverflow, "price*qty overflowed ledger width", err)
	}
	return inst.Quote, amt, nil
}

// releaseResting frees whatever a still-open resting order holds in
// reserve, used when it leaves the book by cancellation or self-trade
// prevention without ever filling.
func releaseResting(s *state.State, log *event.Log, inst state.Instrument, o *book.Order) {
	asset, amt, err := orderReservation(inst, o.Side, o.Price, o.OpenQty)
	if err != nil {
		return
	}
	s.Ledger.Release(o.User, asset, amt)
	emitBalance(log, s.Ledger, o.User, asset)
}

// settleFill moves one match's quantities between the two parties. The
// resting (maker) order always transacts at its own quoted price, so its
// reservation — base qty for a selling maker, price*qty for a buying
// maker — is exactly consumed. A buying taker, whose reservation was set
// aside at its own (possibly worse) cap, gets the unused difference
// released back to its available balance.
func settleFill(s *state.State, log *event.Log, inst state.Instrument, taker *book.Order, f book.Fill) {
	notional, err := money.MulPriceQty(f.Price, f.Qty)
	if err != nil {
		return
	}
	baseAmt := money.FromUint64(f.Qty)

	var buyerID, sellerID money.UserID
	if taker.Side == money.Buy {
		buyerID, sellerID = taker.User, f.MakerUser
	} else {
		buyerID, sellerID = f.MakerUser, taker.User
	}

	s.Ledger.SettleOut(sellerID, inst.Base, baseAmt)
	s.Ledger.SettleIn(sellerID, inst.Quote, notional)
	emitBalance(log, s.Ledger, sellerID, inst.Base)
	emitBalance(log, s.Ledger, sellerID, inst.Quote)

	s.Ledger.SettleOut(buyerID, inst.Quote, notional)
	s.Ledger.SettleIn(buyerID, inst.Base, baseAmt)
	emitBalance(log, s.Ledger, buyerID, inst.Quote)
	emitBalance(log, s.Ledger, buyerID, inst.Base)

	if taker.Side == money.Buy && taker.Price > f.Price {
		refund, err := money.MulPriceQty(taker.Price-f.Price, f.Qty)
		if err == nil && !refund.IsZero() {
			s.Ledger.Release(buyerID, inst.Quote, refund)
			emitBalance(log, s.Ledger, buyerID, inst.Quote)
		}
	}

	// One Trade per cross, then an OrderFilled for each side. The trade's
	// Seq mirrors the log position it is about to receive (Len is the next
	// sequence on a log that never truncates).
	log.Append(event.Trade{
		Instrument: inst.ID,
		Price:      f.Price,
		Qty:        f.Qty,
		TakerSide:  taker.Side,
		TakerOrder: f.TakerID,
		MakerOrder: f.MakerID,
		TakerUser:  taker.User,
		MakerUser:  f.MakerUser,
		Seq:        money.Seq(log.Len()),
	})
	log.Append(event.OrderFilled{
		Instrument: inst.ID, OrderID: f.TakerID, User: taker.User, Side: taker.Side,
		Price: f.Price, Qty: f.Qty, OpenQty: f.TakerOpen,
	})
	log.Append(event.OrderFilled{
		Instrument: inst.ID, OrderID: f.MakerID, User: f.MakerUser, Side: f.MakerSide,
		Price: f.Price, Qty: f.Qty, OpenQty: f.MakerOpen,
	})
}
