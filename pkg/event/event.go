// Package event implements the append-only event log: a dense, monotonic
// sequence of typed records framed by ActionAccepted/ActionCommitted
// markers, with a canonical fixed-order binary encoding used by the
// commitment hash chain. Framed with an explicit preamble/terminator
// wrapping an opaque payload, the same shape as a consensus block header
// wrapping its body.
package event

import (
	"encoding/binary"

	"github.com/shadowbook/engine/pkg/money"
)

// Kind identifies the concrete shape of an Event's payload.
type Kind uint8

const (
	KindActionAccepted Kind = iota
	KindActionCommitted
	KindDeposit
	KindWithdraw
	KindBalanceUpdated
	KindOrderRested
	KindTrade
	KindOrderFilled
	KindOrderCancelled
	KindMarketUnfilled
	KindSessionKeyAdded
	KindInstrumentCreated
	KindInstrumentStatusChanged
)

// Event is one entry in the log. Payload is the kind-specific body,
// produced by the Encode methods below and opaque to the log itself.
type Event struct {
	Seq     money.Seq
	Kind    Kind
	Payload []byte
}

// Encoder is implemented by every concrete event payload type.
type Encoder interface {
	Kind() Kind
	Encode() []byte
}

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// ActionAccepted marks the start of the event block produced by one
// dispatched action. ActionHash is the canonical digest of the action that
// produced the block, binding every event in it to the exact signed bytes.
// User is zero for governance actions, which act for no particular user.
type ActionAccepted struct {
	ActionSeq  money.Seq
	User       money.UserID
	Nonce      money.Nonce
	ActionHash [32]byte
}

func (e ActionAccepted) Kind() Kind { return KindActionAccepted }
func (e ActionAccepted) Encode() []byte {
	buf := make([]byte, 0, 56)
	buf = putUint64(buf, uint64(e.ActionSeq))
	buf = putUint64(buf, uint64(e.User))
	buf = putUint64(buf, uint64(e.Nonce))
	return append(buf, e.ActionHash[:]...)
}

// ActionCommitted marks the end of a successfully applied action's block.
type ActionCommitted struct {
	ActionSeq money.Seq
}

func (e ActionCommitted) Kind() Kind { return KindActionCommitted }
func (e ActionCommitted) Encode() []byte {
	return putUint64(nil, uint64(e.ActionSeq))
}

// Deposit reports an external credit landing on a user's balance.
type Deposit struct {
	User   money.UserID
	Asset  money.AssetID
	Amount money.Amount
}

func (e Deposit) Kind() Kind { return KindDeposit }
func (e Deposit) Encode() []byte {
	buf := putUint64(nil, uint64(e.User))
	buf = putUint32(buf, uint32(e.Asset))
	amt := e.Amount.Bytes32()
	return append(buf, amt[:]...)
}

// Withdraw reports a debit leaving the exchange, carrying the typed
// destination so the bridge can release the funds after settlement.
type Withdraw struct {
	User            money.UserID
	Asset           money.AssetID
	Amount          money.Amount
	DestinationKind uint8  // mirrors action.DestinationKind
	Network         string // empty for a local destination
	Address         string
}

func (e Withdraw) Kind() Kind { return KindWithdraw }
func (e Withdraw) Encode() []byte {
	buf := putUint64(nil, uint64(e.User))
	buf = putUint32(buf, uint32(e.Asset))
	amt := e.Amount.Bytes32()
	buf = append(buf, amt[:]...)
	buf = append(buf, e.DestinationKind)
	buf = putUint32(buf, uint32(len(e.Network)))
	buf = append(buf, []byte(e.Network)...)
	buf = putUint32(buf, uint32(len(e.Address)))
	return append(buf, []byte(e.Address)...)
}

// BalanceUpdated reports one ledger-primitive application.
type BalanceUpdated struct {
	User     money.UserID
	Asset    money.AssetID
	Total    money.Amount
	Reserved money.Amount
}

func (e BalanceUpdated) Kind() Kind { return KindBalanceUpdated }
func (e BalanceUpdated) Encode() []byte {
	buf := make([]byte, 0, 80)
	buf = putUint64(buf, uint64(e.User))
	buf = putUint32(buf, uint32(e.Asset))
	tb := e.Total.Bytes32()
	rb := e.Reserved.Bytes32()
	buf = append(buf, tb[:]...)
	buf = append(buf, rb[:]...)
	return buf
}

// OrderRested reports that an order now sits in the book.
type OrderRested struct {
	OrderID    money.OrderID
	User       money.UserID
	Instrument money.InstrumentID
	Side       money.Side
	Price      uint64
	Qty        uint64
}

func (e OrderRested) Kind() Kind { return KindOrderRested }
func (e OrderRested) Encode() []byte {
	buf := make([]byte, 0, 40)
	buf = putUint64(buf, uint64(e.OrderID))
	buf = putUint64(buf, uint64(e.User))
	buf = putUint32(buf, uint32(e.Instrument))
	buf = append(buf, byte(e.Side))
	buf = putUint64(buf, e.Price)
	buf = putUint64(buf, e.Qty)
	return buf
}

// Trade is the cross itself, one per successful match, emitted ahead of
// the two per-side OrderFilled events it settles into. Seq mirrors the
// enclosing Event's sequence so the payload alone identifies the trade.
type Trade struct {
	Instrument money.InstrumentID
	Price      uint64
	Qty        uint64
	TakerSide  money.Side
	TakerOrder money.OrderID
	MakerOrder money.OrderID
	TakerUser  money.UserID
	MakerUser  money.UserID
	Seq        money.Seq
}

func (e Trade) Kind() Kind { return KindTrade }
func (e Trade) Encode() []byte {
	buf := make([]byte, 0, 64)
	buf = putUint32(buf, uint32(e.Instrument))
	buf = putUint64(buf, e.Price)
	buf = putUint64(buf, e.Qty)
	buf = append(buf, byte(e.TakerSide))
	buf = putUint64(buf, uint64(e.TakerOrder))
	buf = putUint64(buf, uint64(e.MakerOrder))
	buf = putUint64(buf, uint64(e.TakerUser))
	buf = putUint64(buf, uint64(e.MakerUser))
	buf = putUint64(buf, uint64(e.Seq))
	return buf
}

// OrderFilled reports one side of a Trade: how much of this order the
// cross consumed and what remains open afterwards.
type OrderFilled struct {
	Instrument money.InstrumentID
	OrderID    money.OrderID
	User       money.UserID
	Side       money.Side
	Price      uint64
	Qty        uint64 // quantity this cross filled
	OpenQty    uint64 // quantity still unfilled afterwards
}

func (e OrderFilled) Kind() Kind { return KindOrderFilled }
func (e OrderFilled) Encode() []byte {
	buf := make([]byte, 0, 48)
	buf = putUint32(buf, uint32(e.Instrument))
	buf = putUint64(buf, uint64(e.OrderID))
	buf = putUint64(buf, uint64(e.User))
	buf = append(buf, byte(e.Side))
	buf = putUint64(buf, e.Price)
	buf = putUint64(buf, e.Qty)
	buf = putUint64(buf, e.OpenQty)
	return buf
}

// OrderCancelled reports an order leaving the book, by user request or by
// self-trade prevention.
type OrderCancelled struct {
	OrderID money.OrderID
	User    money.UserID
	Reason  uint8 // mirrors book.CancelReason
}

func (e OrderCancelled) Kind() Kind { return KindOrderCancelled }
func (e OrderCancelled) Encode() []byte {
	buf := putUint64(nil, uint64(e.OrderID))
	buf = putUint64(buf, uint64(e.User))
	return append(buf, e.Reason)
}

// MarketUnfilled reports the quantity a market order could not fill.
type MarketUnfilled struct {
	OrderID money.OrderID
	User    money.UserID
	Qty     uint64
}

func (e MarketUnfilled) Kind() Kind { return KindMarketUnfilled }
func (e MarketUnfilled) Encode() []byte {
	buf := putUint64(nil, uint64(e.OrderID))
	buf = putUint64(buf, uint64(e.User))
	buf = putUint64(buf, e.Qty)
	return buf
}

// SessionKeyAdded reports a (re)registered session key.
type SessionKeyAdded struct {
	User       money.UserID
	PubKey     []byte
	Expiration money.Seq
}

func (e SessionKeyAdded) Kind() Kind { return KindSessionKeyAdded }
func (e SessionKeyAdded) Encode() []byte {
	buf := putUint64(nil, uint64(e.User))
	buf = putUint32(buf, uint32(len(e.PubKey)))
	buf = append(buf, e.PubKey...)
	buf = putUint64(buf, uint64(e.Expiration))
	return buf
}

// InstrumentCreated reports a new tradable instrument.
type InstrumentCreated struct {
	Instrument money.InstrumentID
	Base       money.AssetID
	Quote      money.AssetID
}

func (e InstrumentCreated) Kind() Kind { return KindInstrumentCreated }
func (e InstrumentCreated) Encode() []byte {
	buf := putUint32(nil, uint32(e.Instrument))
	buf = putUint32(buf, uint32(e.Base))
	buf = putUint32(buf, uint32(e.Quote))
	return buf
}

// InstrumentStatusChanged reports an instrument's trading lifecycle moving
// from one status to another (e.g. Active to Paused, or Settling to
// Settled).
type InstrumentStatusChanged struct {
	Instrument money.InstrumentID
	From       uint8
	To         uint8
}

func (e InstrumentStatusChanged) Kind() Kind { return KindInstrumentStatusChanged }
func (e InstrumentStatusChanged) Encode() []byte {
	buf := putUint32(nil, uint32(e.Instrument))
	buf = append(buf, e.From, e.To)
	return buf
}
