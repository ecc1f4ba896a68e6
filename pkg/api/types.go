// Package api is a thin, read-only query adapter over the core: it never
// mutates state.State directly (an incoming signed order still goes
// through pkg/action.Dispatch on the fast path's own goroutine), and it
// carries no invariant of its own. It exists so a UI or load generator has
// somewhere to read a snapshot and somewhere to submit a signed envelope.
package api

import (
	"strconv"

	"github.com/shadowbook/engine/pkg/money"
)

// InstrumentInfo is an instrument's static configuration.
type InstrumentInfo struct {
	ID     uint32 `json:"instrument"`
	Base   uint32 `json:"base"`
	Quote  uint32 `json:"quote"`
	Tick   uint64 `json:"tick"`
	Lot    uint64 `json:"lot"`
	Status string `json:"status"`
}

// PriceLevel is a [price, size] point on a ladder snapshot.
type PriceLevel struct {
	Price uint64 `json:"price"`
	Size  uint64 `json:"size"`
}

// OrderbookSnapshot is the current resting state of one instrument.
type OrderbookSnapshot struct {
	Instrument uint32       `json:"instrument"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	Height     uint64       `json:"height"`
}

// TradeInfo is one historical fill, read back out of the event log.
type TradeInfo struct {
	Instrument uint32 `json:"instrument"`
	Price      uint64 `json:"price"`
	Qty        uint64 `json:"qty"`
	TakerUser  uint64 `json:"takerUser"`
	MakerUser  uint64 `json:"makerUser"`
	Seq        uint64 `json:"seq"`
}

// BalanceInfo is one user's holding of one asset.
type BalanceInfo struct {
	Asset     uint32 `json:"asset"`
	Total     string `json:"total"` // decimal string; Amount is too wide for JSON number
	Reserved  string `json:"reserved"`
	Available string `json:"available"`
}

// OrderInfo is one resting order.
type OrderInfo struct {
	Instrument uint32 `json:"instrument"`
	SignedID   uint64 `json:"signedId"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Price      uint64 `json:"price"`
	Qty        uint64 `json:"qty"`
	OpenQty    uint64 `json:"openQty"`
}

// ChainStatus reports where the fast path currently stands.
type ChainStatus struct {
	ActionSeq uint64 `json:"actionSeq"`
	StateRoot string `json:"stateRoot"` // hex
	EventTip  string `json:"eventTip"`  // hex
}

// SubmitResult is the response to a submitted envelope.
type SubmitResult struct {
	Accepted bool   `json:"accepted"`
	Code     string `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ErrorResponse is returned for any handler-level failure (bad request
// shape, unknown instrument/user) — distinct from a rejected action, which
// returns SubmitResult{Accepted:false} with the core's own error code.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Engine is the read/submit surface the fast path exposes to this package.
// Implementations serialize each call themselves (fastpath.Node takes its
// single-writer lock inside every method); Server adds no locking of its
// own.
type Engine interface {
	Instruments() []InstrumentInfo
	Orderbook(inst money.InstrumentID) (OrderbookSnapshot, bool)
	RecentTrades(inst money.InstrumentID, limit int) []TradeInfo
	Balances(user money.UserID) []BalanceInfo
	Orders(user money.UserID) []OrderInfo
	Status() ChainStatus
	Submit(envelopeBytes []byte) SubmitResult
}

// WSMessage is the envelope every push over the WebSocket feed uses.
type WSMessage struct {
	Type string      `json:"type"` // "orderbook" | "trade"
	Data interface{} `json:"data"`
}

// WSSubscribeRequest is sent by a client to (un)subscribe to channels,
// e.g. {"op":"subscribe","channels":["orderbook:1","trades:1"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

func channelOrderbook(inst money.InstrumentID) string {
	return "orderbook:" + strconv.FormatUint(uint64(inst), 10)
}

func channelTrades(inst money.InstrumentID) string {
	return "trades:" + strconv.FormatUint(uint64(inst), 10)
}
