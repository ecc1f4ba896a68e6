// Package book implements the order record, its indices, and the matching
// engine: FIFO price-level queues, a container/heap best-price index, and
// an O(1) cancel-by-id index, generalized to an arbitrary spot instrument
// and extended with self-trade prevention and an explicit market-order cap
// policy.
package book

import "github.com/shadowbook/engine/pkg/money"

// Order is a resting or historical limit/market order.
type Order struct {
	ID         money.OrderID
	SignedID   money.OrderSignedID
	User       money.UserID
	Instrument money.InstrumentID
	Side       money.Side
	Type       money.OrderType

	// Price is the worst acceptable execution price. For a Limit order it
	// is the caller's limit. For a Market order it still bounds execution:
	// a Sell may leave it at 0 (no floor), but a Buy must set a positive
	// cap — an unbounded market buy is rejected before it ever reaches the
	// book (see ErrMissingMarketCap in matcher.go).
	Price uint64

	Qty     uint64 // original quantity at placement
	OpenQty uint64 // quantity still unfilled

	CreatedAt money.Seq // FIFO tie-break within a price level
}

// Remaining reports whether the order still has quantity to fill.
func (o *Order) Remaining() bool { return o.OpenQty > 0 }

// PriceLevel is the FIFO queue of resting orders at one price.
type PriceLevel struct {
	Price  uint64
	Orders []*Order
}

// TotalQty sums OpenQty across every order resting at this level.
func (pl *PriceLevel) TotalQty() uint64 {
	var total uint64
	for _, o := range pl.Orders {
		total += o.OpenQty
	}
	return total
}

// Fill is one match between a taker and a resting maker order. MakerUser
// and the post-fill open quantities are carried explicitly because a
// fully-filled maker is deindexed from the book before the caller can look
// it back up, and the taker's OpenQty keeps moving across later fills.
type Fill struct {
	TakerID   money.OrderID
	MakerID   money.OrderID
	MakerUser money.UserID
	MakerSide money.Side
	Price     uint64
	Qty       uint64
	TakerOpen uint64 // taker's unfilled quantity after this fill
	MakerOpen uint64 // maker's unfilled quantity after this fill
}

// CancelReason distinguishes why an order left the book.
type CancelReason uint8

const (
	CancelByUser CancelReason = iota
	CancelSelfTrade
)
