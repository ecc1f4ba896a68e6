package book

import (
	"container/heap"

	"github.com/shadowbook/engine/pkg/money"
)

type signedKey struct {
	user money.UserID
	id   money.OrderSignedID
}

// Book holds both ladders of a single instrument plus three indices:
// primary (by internal id), per-user, and per (user, signed_id). Every
// exported mutation keeps all three consistent.
type Book struct {
	Instrument money.InstrumentID

	bidHeap MaxPriceHeap
	askHeap MinPriceHeap
	bids    map[uint64]*PriceLevel
	asks    map[uint64]*PriceLevel

	byID       map[money.OrderID]*Order
	byUser     map[money.UserID]map[money.OrderID]struct{}
	bySignedID map[signedKey]money.OrderID
}

// New returns an empty book for the given instrument.
func New(instrument money.InstrumentID) *Book {
	b := &Book{
		Instrument: instrument,
		bids:       make(map[uint64]*PriceLevel),
		asks:       make(map[uint64]*PriceLevel),
		byID:       make(map[money.OrderID]*Order),
		byUser:     make(map[money.UserID]map[money.OrderID]struct{}),
		bySignedID: make(map[signedKey]money.OrderID),
	}
	heap.Init(&b.bidHeap)
	heap.Init(&b.askHeap)
	return b
}

// BestBid returns the highest resting bid price.
func (b *Book) BestBid() (uint64, bool) { return b.bidHeap.Peek() }

// BestAsk returns the lowest resting ask price.
func (b *Book) BestAsk() (uint64, bool) { return b.askHeap.Peek() }

// ByID looks up a resting order by its internal id.
func (b *Book) ByID(id money.OrderID) (*Order, bool) {
	o, ok := b.byID[id]
	return o, ok
}

// BySignedID resolves a caller-chosen id, scoped to its owner, to the
// internal order id — the lookup CancelOrder uses.
func (b *Book) BySignedID(user money.UserID, signed money.OrderSignedID) (money.OrderID, bool) {
	id, ok := b.bySignedID[signedKey{user, signed}]
	return id, ok
}

// UserOrders returns every order id currently resting for a user.
func (b *Book) UserOrders(user money.UserID) []money.OrderID {
	set := b.byUser[user]
	out := make([]money.OrderID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// BidLevels returns every bid level sorted best-first (descending price).
// Intended for read-only snapshot/query use; the matching engine never
// calls this (it uses the heap for O(1) best-price access).
func (b *Book) BidLevels() []*PriceLevel {
	return sortedLevels(b.bids, true)
}

// AskLevels returns every ask level sorted best-first (ascending price).
func (b *Book) AskLevels() []*PriceLevel {
	return sortedLevels(b.asks, false)
}

func sortedLevels(m map[uint64]*PriceLevel, descending bool) []*PriceLevel {
	out := make([]*PriceLevel, 0, len(m))
	for _, lvl := range m {
		out = append(out, lvl)
	}
	// insertion sort is fine here: levels are called for snapshots/state
	// hashing, not the hot matching path, and instrument books rarely hold
	// more than a few hundred distinct price levels.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 {
			less := out[j].Price < out[j-1].Price
			if descending {
				less = out[j].Price > out[j-1].Price
			}
			if !less {
				break
			}
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

func (b *Book) rest(o *Order) {
	var levels map[uint64]*PriceLevel
	if o.Side == money.Buy {
		levels = b.bids
	} else {
		levels = b.asks
	}
	lvl, ok := levels[o.Price]
	if !ok {
		lvl = &PriceLevel{Price: o.Price}
		levels[o.Price] = lvl
		if o.Side == money.Buy {
			heap.Push(&b.bidHeap, o.Price)
		} else {
			heap.Push(&b.askHeap, o.Price)
		}
	}
	lvl.Orders = append(lvl.Orders, o)
	b.index(o)
}

func (b *Book) index(o *Order) {
	b.byID[o.ID] = o
	if b.byUser[o.User] == nil {
		b.byUser[o.User] = make(map[money.OrderID]struct{})
	}
	b.byUser[o.User][o.ID] = struct{}{}
	b.bySignedID[signedKey{o.User, o.SignedID}] = o.ID
}

func (b *Book) deindex(o *Order) {
	delete(b.byID, o.ID)
	delete(b.byUser[o.User], o.ID)
	if len(b.byUser[o.User]) == 0 {
		delete(b.byUser, o.User)
	}
	delete(b.bySignedID, signedKey{o.User, o.SignedID})
}

// removeFromLevel drops order at position i from its price level, removing
// the level (and its heap entry) if it becomes empty. i must be valid.
func (b *Book) removeFromLevel(o *Order, i int) {
	if o.Side == money.Buy {
		lvl := b.bids[o.Price]
		lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
		if len(lvl.Orders) == 0 {
			delete(b.bids, o.Price)
			for j, p := range b.bidHeap {
				if p == o.Price {
					heap.Remove(&b.bidHeap, j)
					break
				}
			}
		}
		return
	}
	lvl := b.asks[o.Price]
	lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
	if len(lvl.Orders) == 0 {
		delete(b.asks, o.Price)
		for j, p := range b.askHeap {
			if p == o.Price {
				heap.Remove(&b.askHeap, j)
				break
			}
		}
	}
}

// Cancel removes a resting order by internal id. Reports false if the id is
// not currently resting (already filled or cancelled).
func (b *Book) Cancel(id money.OrderID) (*Order, bool) {
	o, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	var levels map[uint64]*PriceLevel
	if o.Side == money.Buy {
		levels = b.bids
	} else {
		levels = b.asks
	}
	lvl, ok := levels[o.Price]
	if !ok {
		return nil, false
	}
	for i, resting := range lvl.Orders {
		if resting.ID == id {
			b.removeFromLevel(o, i)
			b.deindex(o)
			return o, true
		}
	}
	return nil, false
}
