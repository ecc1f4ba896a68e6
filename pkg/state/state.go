package state

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/shadowbook/engine/pkg/book"
	"github.com/shadowbook/engine/pkg/ledger"
	"github.com/shadowbook/engine/pkg/money"
)

// State is the entire world the matching/ledger/action core operates on.
// It is not concurrency-safe: every caller must serialize access (the fast
// path does this with the mutex in fastpath.Node; the replay harness does
// it by construction, one action at a time).
type State struct {
	Assets      map[money.AssetID]Asset
	Instruments map[money.InstrumentID]Instrument
	Users       map[money.UserID]*User
	Ledger      *ledger.Ledger
	Books       map[money.InstrumentID]*book.Book

	nextOrderID   money.OrderID
	nextOrderSeq  money.Seq
	nextActionSeq money.Seq
}

// New returns an empty state with no genesis assets or instruments; callers
// (typically params.Genesis) populate those before accepting actions.
func New() *State {
	return &State{
		Assets:      make(map[money.AssetID]Asset),
		Instruments: make(map[money.InstrumentID]Instrument),
		Users:       make(map[money.UserID]*User),
		Ledger:      ledger.New(),
		Books:       make(map[money.InstrumentID]*book.Book),
	}
}

// NextOrderID allocates the next monotonic internal order id.
func (s *State) NextOrderID() money.OrderID {
	id := s.nextOrderID
	s.nextOrderID++
	return id
}

// NextOrderSeq allocates the next monotonic order creation sequence, used
// as the FIFO tie-break key within a price level (Order.CreatedAt).
func (s *State) NextOrderSeq() money.Seq {
	seq := s.nextOrderSeq
	s.nextOrderSeq++
	return seq
}

// NextActionSeq allocates the next monotonic action sequence number, used
// to frame one action's event block with ActionAccepted/ActionCommitted.
func (s *State) NextActionSeq() money.Seq {
	seq := s.nextActionSeq
	s.nextActionSeq++
	return seq
}

// User returns the user record, creating one (with nonce 0, no session
// keys) on first reference.
func (s *State) User(id money.UserID) *User {
	u, ok := s.Users[id]
	if !ok {
		u = &User{ID: id, SessionKeys: make(map[string]SessionKey)}
		s.Users[id] = u
	}
	return u
}

// Book returns the order book for an instrument, creating an empty one if
// the instrument is registered but has never seen an order.
func (s *State) Book(id money.InstrumentID) *book.Book {
	b, ok := s.Books[id]
	if !ok {
		b = book.New(id)
		s.Books[id] = b
	}
	return b
}

// SetInstrumentStatus validates and applies a lifecycle transition for an
// already-registered instrument, returning the status it moved from.
func (s *State) SetInstrumentStatus(id money.InstrumentID, to InstrumentStatus) (InstrumentStatus, error) {
	inst, ok := s.Instruments[id]
	if !ok {
		return 0, fmt.Errorf("state: unknown instrument %d", id)
	}
	if err := ValidateStatusTransition(inst.Status, to); err != nil {
		return inst.Status, err
	}
	from := inst.Status
	inst.Status = to
	s.Instruments[id] = inst
	return from, nil
}

// SessionKeyIndex renders a public key as the map key used in
// User.SessionKeys.
func SessionKeyIndex(pub []byte) string { return hex.EncodeToString(pub) }

// SortedAssetIDs returns every asset id in ascending order, for a canonical
// state-root traversal that must be independent of Go's randomized map
// iteration.
func (s *State) SortedAssetIDs() []money.AssetID {
	ids := make([]money.AssetID, 0, len(s.Assets))
	for id := range s.Assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedInstrumentIDs returns every instrument id in ascending order.
func (s *State) SortedInstrumentIDs() []money.InstrumentID {
	ids := make([]money.InstrumentID, 0, len(s.Instruments))
	for id := range s.Instruments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedUserIDs returns every known user id in ascending order.
func (s *State) SortedUserIDs() []money.UserID {
	ids := make([]money.UserID, 0, len(s.Users))
	for id := range s.Users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
