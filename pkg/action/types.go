// Package action implements the six user-facing action types plus one
// admin-authorized governance action, their authorization rules, and
// Dispatch: the single entry point that turns a verified action into
// ledger/book mutations and event-log entries. The control flow (verify
// signature, check nonce, validate, mutate, emit) is the same shape for
// every action kind, generalized from a single place/cancel pair to the
// full action set.
package action

import (
	"github.com/shadowbook/engine/pkg/money"
)

// Kind identifies which concrete action an envelope carries.
type Kind uint8

const (
	KindDeposit Kind = iota
	KindPlaceOrder
	KindCancelOrder
	KindWithdraw
	KindAddSessionKey
	KindCreatePair
	KindSetInstrumentStatus
)

// Action is implemented by every concrete action payload. CanonicalFields
// returns the ordered, length-prefixed field list that goes into the
// signed digest (see pkg/crypto.CanonicalDigest) — everything the signer
// committed to, in a fixed order that never depends on struct field layout
// or a serialization library's defaults.
type Action interface {
	Kind() Kind
	// ConsumesNonce reports whether applying this action must check and
	// increment the acting user's nonce.
	ConsumesNonce() bool
	CanonicalFields() [][]byte
}

// Deposit credits a user's balance. It is originated by a trusted external
// collaborator (the chain bridge, pkg/bridge) that has already verified the
// underlying on-chain transfer; it carries no user signature because the
// user did not initiate it by signing anything the core understands.
type Deposit struct {
	User   money.UserID
	Asset  money.AssetID
	Amount money.Amount
}

func (Deposit) Kind() Kind           { return KindDeposit }
func (Deposit) ConsumesNonce() bool  { return false }
func (d Deposit) CanonicalFields() [][]byte {
	amt := d.Amount.Bytes32()
	return [][]byte{
		u64(uint64(d.User)),
		u32(uint32(d.Asset)),
		amt[:],
	}
}

// PlaceOrder submits a new limit or market order.
type PlaceOrder struct {
	User       money.UserID
	Instrument money.InstrumentID
	SignedID   money.OrderSignedID
	Side       money.Side
	Type       money.OrderType
	Price      uint64 // worst acceptable price; required > 0 for a market buy
	Qty        uint64
	Nonce      money.Nonce
}

func (PlaceOrder) Kind() Kind          { return KindPlaceOrder }
func (PlaceOrder) ConsumesNonce() bool { return true }
func (p PlaceOrder) CanonicalFields() [][]byte {
	return [][]byte{
		u64(uint64(p.User)),
		u32(uint32(p.Instrument)),
		u64(uint64(p.SignedID)),
		{byte(p.Side)},
		{byte(p.Type)},
		u64(p.Price),
		u64(p.Qty),
		u64(uint64(p.Nonce)),
	}
}

// CancelOrder requests that a resting order be removed from the book.
type CancelOrder struct {
	User       money.UserID
	Instrument money.InstrumentID
	SignedID   money.OrderSignedID
	Nonce      money.Nonce
}

func (CancelOrder) Kind() Kind          { return KindCancelOrder }
func (CancelOrder) ConsumesNonce() bool { return true }
func (c CancelOrder) CanonicalFields() [][]byte {
	return [][]byte{
		u64(uint64(c.User)),
		u32(uint32(c.Instrument)),
		u64(uint64(c.SignedID)),
		u64(uint64(c.Nonce)),
	}
}

// DestinationKind tags where a withdrawal is released.
type DestinationKind uint8

const (
	// DestinationLocal keeps the funds on the settlement network the
	// exchange itself settles to; no bridge action follows.
	DestinationLocal DestinationKind = iota
	// DestinationExternal hands the withdrawal to the bridge for an
	// external network named by Network/Address.
	DestinationExternal
)

// WithdrawDestination is the typed target a withdrawal names. The core
// only checks that an external destination carries a non-empty address;
// semantic validation of address formats belongs to the bridge.
type WithdrawDestination struct {
	Kind    DestinationKind
	Network string // e.g. "hyli", "ethereum-mainnet"; empty for Local
	Address string // non-empty for External
}

// Withdraw debits a user's balance, earmarked for release to Destination.
// The emitted event carries the destination so the bridge can act on it
// after settlement.
type Withdraw struct {
	User        money.UserID
	Asset       money.AssetID
	Amount      money.Amount
	Destination WithdrawDestination
	Nonce       money.Nonce
}

func (Withdraw) Kind() Kind          { return KindWithdraw }
func (Withdraw) ConsumesNonce() bool { return true }
func (w Withdraw) CanonicalFields() [][]byte {
	amt := w.Amount.Bytes32()
	return [][]byte{
		u64(uint64(w.User)),
		u32(uint32(w.Asset)),
		amt[:],
		{byte(w.Destination.Kind)},
		[]byte(w.Destination.Network),
		[]byte(w.Destination.Address),
		u64(uint64(w.Nonce)),
	}
}

// AddSessionKey registers (or re-registers) a delegated signing key for a
// user. It does not consume a nonce: re-submitting the same registration is
// idempotent rather than a replay (see Dispatch in handler.go).
type AddSessionKey struct {
	User       money.UserID
	PubKey     []byte
	Expiration money.Seq
}

func (AddSessionKey) Kind() Kind          { return KindAddSessionKey }
func (AddSessionKey) ConsumesNonce() bool { return false }
func (a AddSessionKey) CanonicalFields() [][]byte {
	return [][]byte{
		u64(uint64(a.User)),
		a.PubKey,
		u64(uint64(a.Expiration)),
	}
}

// CreatePair registers a new tradable instrument. It is a governance
// action authorized by a configured admin key, not a per-user nonce.
type CreatePair struct {
	Instrument money.InstrumentID
	Base       money.AssetID
	Quote      money.AssetID
	Tick       uint64
	Lot        uint64
}

func (CreatePair) Kind() Kind          { return KindCreatePair }
func (CreatePair) ConsumesNonce() bool { return false }
func (c CreatePair) CanonicalFields() [][]byte {
	return [][]byte{
		u32(uint32(c.Instrument)),
		u32(uint32(c.Base)),
		u32(uint32(c.Quote)),
		u64(c.Tick),
		u64(c.Lot),
	}
}

// SetInstrumentStatus transitions an instrument's trading lifecycle
// (Active/Paused/Settling/Settled). It is a governance action authorized
// by the same admin key as CreatePair, not a per-user nonce.
type SetInstrumentStatus struct {
	Instrument money.InstrumentID
	Status     uint8 // mirrors state.InstrumentStatus
}

func (SetInstrumentStatus) Kind() Kind          { return KindSetInstrumentStatus }
func (SetInstrumentStatus) ConsumesNonce() bool { return false }
func (s SetInstrumentStatus) CanonicalFields() [][]byte {
	return [][]byte{
		u32(uint32(s.Instrument)),
		{s.Status},
	}
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	for i := 3; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
