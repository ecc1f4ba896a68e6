package book

import (
	"errors"

	"github.com/shadowbook/engine/pkg/money"
)

// ErrMissingMarketCap is returned when a market buy is submitted with no
// worst-price cap. A market sell needs no cap (0 is a valid floor); an
// uncapped market buy has unbounded downside and is rejected rather than
// executed against an unbounded price.
var ErrMissingMarketCap = errors.New("book: market buy requires a price cap")

// MatchResult reports everything that happened while placing one order.
type MatchResult struct {
	Fills []Fill
	// SelfTradeCancelled holds resting orders removed from the book
	// because they would have crossed with their own owner.
	SelfTradeCancelled []*Order
	// Rested is true if the (remaining) order now sits in the book.
	Rested bool
	// UnfilledQty is the quantity a market order could not fill and that
	// will never rest; callers must release any ledger reservation held
	// against it.
	UnfilledQty uint64
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func crosses(side money.Side, takerPrice, bookPrice uint64) bool {
	if side == money.Buy {
		return bookPrice <= takerPrice
	}
	return bookPrice >= takerPrice
}

// Match attempts to cross taker against the opposite ladder using strict
// price-time priority, then (for Limit orders only) rests any remainder.
// taker.OpenQty must already be set to the quantity to fill. The order is
// not indexed into the book until/unless it rests.
func (b *Book) Match(taker *Order) (MatchResult, error) {
	if taker.Type == money.Market && taker.Side == money.Buy && taker.Price == 0 {
		return MatchResult{}, ErrMissingMarketCap
	}

	var res MatchResult

	var bestPeek func() (uint64, bool)
	var levels map[uint64]*PriceLevel
	if taker.Side == money.Buy {
		bestPeek = b.BestAsk
		levels = b.asks
	} else {
		bestPeek = b.BestBid
		levels = b.bids
	}

	for taker.OpenQty > 0 {
		price, ok := bestPeek()
		if !ok || !crosses(taker.Side, taker.Price, price) {
			break
		}
		lvl := levels[price]
		if lvl == nil || len(lvl.Orders) == 0 {
			// the heap and the level map are kept in lockstep by rest/
			// removeFromLevel, so this should be unreachable; guard it
			// anyway rather than looping forever on a stale peek.
			break
		}
		maker := lvl.Orders[0]

		if maker.User == taker.User {
			b.removeFromLevel(maker, 0)
			b.deindex(maker)
			res.SelfTradeCancelled = append(res.SelfTradeCancelled, maker)
			continue
		}

		qty := min(taker.OpenQty, maker.OpenQty)
		taker.OpenQty -= qty
		maker.OpenQty -= qty
		res.Fills = append(res.Fills, Fill{
			TakerID:   taker.ID,
			MakerID:   maker.ID,
			MakerUser: maker.User,
			MakerSide: maker.Side,
			Price:     price,
			Qty:       qty,
			TakerOpen: taker.OpenQty,
			MakerOpen: maker.OpenQty,
		})
		if maker.OpenQty == 0 {
			b.removeFromLevel(maker, 0)
			b.deindex(maker)
		}
	}

	if taker.OpenQty > 0 {
		if taker.Type == money.Limit {
			b.rest(taker)
			res.Rested = true
		} else {
			res.UnfilledQty = taker.OpenQty
		}
	}

	return res, nil
}
