// Package commit computes the two canonical hashes that the fast path and
// the zkVM replay path must agree on bit-for-bit: the state root (a
// snapshot of every asset, instrument, user, balance and resting order) and
// the event tip (a hash chain over every event ever appended). Agreement
// between a fast-path run and a replay run over the same input envelopes is
// the base case that every trust claim this system makes rests on.
package commit

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/shadowbook/engine/pkg/book"
	"github.com/shadowbook/engine/pkg/event"
	"github.com/shadowbook/engine/pkg/state"
)

func writeU8(h sha3Hash, v uint8) { h.Write([]byte{v}) }

func writeU32(h sha3Hash, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	h.Write(b[:])
}

func writeU64(h sha3Hash, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h.Write(b[:])
}

// writeBytes length-prefixes f before writing it, so a sequence of
// variable-length fields can never be reinterpreted by shifting where one
// field ends and the next begins.
func writeBytes(h sha3Hash, f []byte) {
	writeU64(h, uint64(len(f)))
	h.Write(f)
}

// sha3Hash is the narrow interface the helpers above need; sha3.New256
// satisfies it.
type sha3Hash interface {
	Write(p []byte) (int, error)
}

// StateRoot hashes a canonical traversal of the entire world: assets and
// instruments by ascending id, users by ascending id (nonce, root key,
// session keys sorted by index, then non-zero balances by ascending
// asset id), and every order book by ascending instrument id with its bid
// and ask ladders each walked best-price-first and FIFO within a level.
// The traversal order is fixed independently of Go's randomized map
// iteration, so two runs over identical state always hash identically.
func StateRoot(s *state.State) [32]byte {
	h := sha3.New256()

	for _, aid := range s.SortedAssetIDs() {
		a := s.Assets[aid]
		writeU32(h, uint32(aid))
		writeBytes(h, []byte(a.Symbol))
		writeU8(h, a.Decimals)
	}

	for _, iid := range s.SortedInstrumentIDs() {
		inst := s.Instruments[iid]
		writeU32(h, uint32(iid))
		writeU32(h, uint32(inst.Base))
		writeU32(h, uint32(inst.Quote))
		writeU64(h, inst.Tick)
		writeU64(h, inst.Lot)
		writeU8(h, uint8(inst.Status))
	}

	assetIDs := s.SortedAssetIDs()
	for _, uid := range s.SortedUserIDs() {
		u := s.Users[uid]
		writeU64(h, uint64(uid))
		writeU64(h, uint64(u.Nonce))
		writeBytes(h, u.RootPubKey)

		indices := make([]string, 0, len(u.SessionKeys))
		for idx := range u.SessionKeys {
			indices = append(indices, idx)
		}
		sort.Strings(indices)
		writeU64(h, uint64(len(indices)))
		for _, idx := range indices {
			sk := u.SessionKeys[idx]
			writeBytes(h, sk.PubKey)
			writeU64(h, uint64(sk.Expiration))
		}

		for _, aid := range assetIDs {
			bal := s.Ledger.Get(uid, aid)
			if bal.Total.IsZero() && bal.Reserved.IsZero() {
				continue
			}
			writeU32(h, uint32(aid))
			tb := bal.Total.Bytes32()
			rb := bal.Reserved.Bytes32()
			h.Write(tb[:])
			h.Write(rb[:])
		}
	}

	for _, iid := range s.SortedInstrumentIDs() {
		b, ok := s.Books[iid]
		if !ok {
			continue
		}
		writeU32(h, uint32(iid))
		writeLevels(h, b.BidLevels())
		writeLevels(h, b.AskLevels())
	}

	var out [32]byte
	h.Sum(out[:0])
	return out
}

func writeLevels(h sha3Hash, levels []*book.PriceLevel) {
	writeU64(h, uint64(len(levels)))
	for _, lvl := range levels {
		writeU64(h, lvl.Price)
		writeU64(h, uint64(len(lvl.Orders)))
		for _, o := range lvl.Orders {
			writeU64(h, uint64(o.ID))
			writeU64(h, uint64(o.SignedID))
			writeU64(h, uint64(o.User))
			h.Write([]byte{byte(o.Side)})
			h.Write([]byte{byte(o.Type)})
			writeU64(h, o.Price)
			writeU64(h, o.Qty)
			writeU64(h, o.OpenQty)
			writeU64(h, uint64(o.CreatedAt))
		}
	}
}

// EventTip folds every event in the log into a hash chain: starting from
// the all-zero tip, tip = H(tip || seq || kind || payload) for each event
// in Seq order. A consumer holding a prior tip can extend it with only
// the events appended since (ExtendTip) instead of re-hashing the log.
func EventTip(log *event.Log) [32]byte {
	return ExtendTip([32]byte{}, log.All())
}

// ExtendTip advances tip over events, in order.
func ExtendTip(tip [32]byte, events []event.Event) [32]byte {
	for _, e := range events {
		h := sha3.New256()
		h.Write(tip[:])
		writeU64(h, uint64(e.Seq))
		writeU8(h, uint8(e.Kind))
		writeBytes(h, e.Payload)
		h.Sum(tip[:0])
	}
	return tip
}
