// Package fastpath is the in-memory execution path: it serializes
// submissions behind one lock, runs each envelope through commit.Apply, and
// exposes the result to everything off-path (the query API, the bridge,
// the load generator). Its Submit path and the zkVM replay harness share
// the same commit.Apply call — this package only adds the admission
// bookkeeping (sequencing, checkpointing, the WAL) that replay doesn't
// need, never a second copy of the matching/ledger logic.
package fastpath

import (
	"encoding/hex"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/api"
	"github.com/shadowbook/engine/pkg/commit"
	"github.com/shadowbook/engine/pkg/event"
	"github.com/shadowbook/engine/pkg/mempool"
	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/state"
	"github.com/shadowbook/engine/pkg/storage"
	"github.com/shadowbook/engine/pkg/util"
)

// Node owns the single mutable state.State plus the event.Log derived from
// it, and serializes every mutation behind one lock — the "global
// exclusive lock on the matching state" the dual-execution model requires,
// so a fast-path run and a zkVM replay run over the same envelope stream
// are both single-threaded in the one place determinism actually depends
// on. Everything under mu is the core; everything outside it (storage,
// logging, broadcast) is ambient.
type Node struct {
	mu sync.Mutex

	state *state.State
	log   *event.Log
	clock util.Clock

	adminPubKey []byte

	height    uint64
	stateRoot [32]byte
	eventTip  [32]byte

	checkpoints *storage.PebbleStore
	wal         storage.WAL

	logger *zap.Logger

	// broadcaster is notified after every accepted PlaceOrder/CancelOrder so
	// it can push updated book/trade snapshots to WebSocket subscribers. It
	// is optional — a Node used from tests or the load generator need not
	// set one.
	broadcaster Broadcaster
}

// Broadcaster is the subset of *api.Server a Node pushes to after a
// dispatch touches an instrument's book. Expressed as an interface so
// fastpath never imports net/http and a test can supply a no-op.
type Broadcaster interface {
	BroadcastOrderbook(inst money.InstrumentID)
	BroadcastTrade(t api.TradeInfo)
}

// Config gathers what a Node needs beyond genesis state: the admin key
// authorized to CreatePair, and optional persistence. A nil PebbleStore or
// WAL disables that form of durability — useful for tests and for the load
// generator's throwaway instances.
type Config struct {
	AdminPubKey []byte
	Checkpoints *storage.PebbleStore
	WAL         storage.WAL
	Clock       util.Clock
	Logger      *zap.Logger
}

// New wraps an already-populated genesis state (see params.Genesis) in a
// Node ready to accept actions. If cfg.Checkpoints holds a prior run's
// checkpoint, callers should replay its WAL before trusting Node.Status —
// New itself starts from whatever s/log already contain and does not
// replay anything on its own.
func New(s *state.State, log *event.Log, cfg Config) *Node {
	wal := cfg.WAL
	if wal == nil {
		wal = storage.NewNopWAL()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = util.RealClock{}
	}
	n := &Node{
		state:       s,
		log:         log,
		clock:       clk,
		adminPubKey: cfg.AdminPubKey,
		checkpoints: cfg.Checkpoints,
		wal:         wal,
		logger:      cfg.Logger,
	}
	n.stateRoot = commit.StateRoot(s)
	n.eventTip = commit.EventTip(log)
	return n
}

// SetBroadcaster wires a query-API server in after construction, avoiding
// an import cycle between fastpath and api at package-init time.
func (n *Node) SetBroadcaster(b Broadcaster) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcaster = b
}

// SubmitEnvelope is the one path every caller — the HTTP API, the bridge,
// the load generator, a direct in-process caller — uses to get a signed
// action applied. asOf is read once from the node's injected clock in Seq
// units (wall-clock millis) and threaded into commit.Apply, keeping the
// single source of "now" at the boundary instead of buried in the core.
func (n *Node) SubmitEnvelope(env action.Envelope) *action.Error {
	n.mu.Lock()
	defer n.mu.Unlock()

	instBefore, touchesBook := instrumentOf(env)
	asOf := money.Seq(n.clock.Now().UnixMilli())
	logLenBefore := n.log.Len()

	res := commit.Apply(n.state, n.log, []action.Envelope{env}, asOf, n.adminPubKey)

	var outErr *action.Error
	if len(res.Rejected) > 0 {
		// A rejected dispatch mutates nothing, so the cached commitment and
		// height stay exactly where they were.
		outErr = res.Rejected[0].Err
	} else {
		n.stateRoot = res.StateRoot
		n.eventTip = res.EventTip
		n.height++
		if encoded, err := action.EncodeEnvelope(env); err == nil {
			n.wal.Append(n.height, uint64(asOf), encoded)
		}
		if n.checkpoints != nil {
			_ = n.checkpoints.SaveCheckpoint(storage.Checkpoint{
				Height: n.height, StateRoot: n.stateRoot, EventTip: n.eventTip,
			})
		}
	}

	if n.logger != nil {
		if outErr != nil {
			n.logger.Info("action rejected", zap.Uint64("height", n.height), zap.String("code", string(outErr.Code)))
		} else {
			n.logger.Debug("action committed", zap.Uint64("height", n.height))
		}
	}

	if outErr == nil && touchesBook && n.broadcaster != nil {
		n.broadcaster.BroadcastOrderbook(instBefore)
		n.broadcastNewFills(instBefore, logLenBefore)
	}
	return outErr
}

// SubmitBatch admits a burst of envelopes together — the shape a bridge
// poll or a load generator's batch naturally produces — reordering them
// through pkg/mempool's three-bucket FIFO before dispatch, so a non-order
// action or a cancel caught up in the same burst as new orders still
// settles ahead of the risk those orders would add, the same priority a
// single envelope at a time gives for free. Each envelope is still applied
// one at a time under the node's lock; only the dispatch order changes.
func (n *Node) SubmitBatch(envs []action.Envelope) []*action.Error {
	mp := mempool.New()
	for _, env := range envs {
		mp.Push(env)
	}
	ordered := mp.SelectForProposal(0)

	out := make([]*action.Error, len(ordered))
	for i, env := range ordered {
		out[i] = n.SubmitEnvelope(env)
	}
	return out
}

// instrumentOf reports the instrument a PlaceOrder or CancelOrder touches,
// so Submit knows which book to push after a successful dispatch. Other
// action kinds never move a book and are reported as not touching one.
func instrumentOf(env action.Envelope) (money.InstrumentID, bool) {
	switch a := env.Action.(type) {
	case action.PlaceOrder:
		return a.Instrument, true
	case action.CancelOrder:
		return a.Instrument, true
	default:
		return 0, false
	}
}

// broadcastNewFills walks the events the dispatch just appended (from the
// pre-dispatch log length onward) for Trade events on inst and pushes
// each to trade subscribers.
func (n *Node) broadcastNewFills(inst money.InstrumentID, from int) {
	all := n.log.All()
	for i := from; i < len(all); i++ {
		e, ok := event.DecodeTrade(all[i])
		if !ok || e.Instrument != inst {
			continue
		}
		n.broadcaster.BroadcastTrade(api.TradeInfo{
			Instrument: uint32(e.Instrument),
			Price:      e.Price,
			Qty:        e.Qty,
			TakerUser:  uint64(e.TakerUser),
			MakerUser:  uint64(e.MakerUser),
			Seq:        uint64(e.Seq),
		})
	}
}

// Submit implements api.Engine: it decodes a wire-canonical envelope and
// runs it through SubmitEnvelope, translating the result into the HTTP
// layer's own response shape instead of its own action.Error.
func (n *Node) Submit(envelopeBytes []byte) api.SubmitResult {
	env, err := action.DecodeEnvelope(envelopeBytes)
	if err != nil {
		return api.SubmitResult{Accepted: false, Code: "BadEnvelope", Detail: err.Error()}
	}
	if actErr := n.SubmitEnvelope(env); actErr != nil {
		return api.SubmitResult{Accepted: false, Code: string(actErr.Code), Detail: actErr.Detail}
	}
	return api.SubmitResult{Accepted: true}
}

// Instruments implements api.Engine.
func (n *Node) Instruments() []api.InstrumentInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]api.InstrumentInfo, 0, len(n.state.Instruments))
	for _, id := range n.state.SortedInstrumentIDs() {
		inst := n.state.Instruments[id]
		out = append(out, api.InstrumentInfo{
			ID: uint32(inst.ID), Base: uint32(inst.Base), Quote: uint32(inst.Quote),
			Tick: inst.Tick, Lot: inst.Lot, Status: inst.Status.String(),
		})
	}
	return out
}

// Orderbook implements api.Engine.
func (n *Node) Orderbook(inst money.InstrumentID) (api.OrderbookSnapshot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.state.Instruments[inst]; !ok {
		return api.OrderbookSnapshot{}, false
	}
	b := n.state.Book(inst)
	snap := api.OrderbookSnapshot{Instrument: uint32(inst), Height: n.height}
	for _, lvl := range b.BidLevels() {
		snap.Bids = append(snap.Bids, api.PriceLevel{Price: lvl.Price, Size: lvl.TotalQty()})
	}
	for _, lvl := range b.AskLevels() {
		snap.Asks = append(snap.Asks, api.PriceLevel{Price: lvl.Price, Size: lvl.TotalQty()})
	}
	return snap, true
}

// RecentTrades implements api.Engine by scanning the event log backward
// for Trade events on inst, stopping once limit have been collected.
// Trade history indexing belongs to the external indexer; a deployment
// that outgrows this scan keeps a per-instrument ring buffer instead.
func (n *Node) RecentTrades(inst money.InstrumentID, limit int) []api.TradeInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	all := n.log.All()
	out := make([]api.TradeInfo, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		e, ok := event.DecodeTrade(all[i])
		if !ok || e.Instrument != inst {
			continue
		}
		out = append(out, api.TradeInfo{
			Instrument: uint32(e.Instrument), Price: e.Price, Qty: e.Qty,
			TakerUser: uint64(e.TakerUser), MakerUser: uint64(e.MakerUser), Seq: uint64(e.Seq),
		})
	}
	return out
}

// Balances implements api.Engine.
func (n *Node) Balances(user money.UserID) []api.BalanceInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]api.BalanceInfo, 0)
	for _, aid := range n.state.SortedAssetIDs() {
		bal := n.state.Ledger.Get(user, aid)
		if bal.Total.IsZero() && bal.Reserved.IsZero() {
			continue
		}
		avail, err := bal.Available()
		availStr := "0"
		if err == nil {
			availStr = avail.String()
		}
		out = append(out, api.BalanceInfo{
			Asset: uint32(aid), Total: bal.Total.String(), Reserved: bal.Reserved.String(), Available: availStr,
		})
	}
	return out
}

// Orders implements api.Engine by walking every instrument's book for
// orders resting under user — acceptable at the scale a single fast-path
// process targets; see RecentTrades for the same tradeoff.
func (n *Node) Orders(user money.UserID) []api.OrderInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []api.OrderInfo
	for _, iid := range n.state.SortedInstrumentIDs() {
		b := n.state.Book(iid)
		for _, oid := range b.UserOrders(user) {
			o, ok := b.ByID(oid)
			if !ok {
				continue
			}
			out = append(out, api.OrderInfo{
				Instrument: uint32(iid), SignedID: uint64(o.SignedID),
				Side: o.Side.String(), Type: o.Type.String(),
				Price: o.Price, Qty: o.Qty, OpenQty: o.OpenQty,
			})
		}
	}
	return out
}

// Status implements api.Engine.
func (n *Node) Status() api.ChainStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return api.ChainStatus{
		ActionSeq: n.height,
		StateRoot: hex.EncodeToString(n.stateRoot[:]),
		EventTip:  hex.EncodeToString(n.eventTip[:]),
	}
}

// RestoreFromWAL replays every line a prior run's FileWAL recorded — each
// against the asOf it was originally accepted under, so session-key
// expiry checks land the same way on replay as they did live — bringing n
// back to the state and event log the crashed run had reached. It is the
// fast path's own recovery procedure, not something the zkVM replay
// harness needs: that path always starts from a declared genesis and a
// declared envelope stream, never from a checkpoint.
func RestoreFromWAL(n *Node, lines []storage.WALLine) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, line := range lines {
		env, err := action.DecodeEnvelope(line.EnvelopeBytes)
		if err != nil {
			return fmt.Errorf("fastpath: restore: decode envelope at seq %d: %w", line.ActionSeq, err)
		}
		res := commit.Apply(n.state, n.log, []action.Envelope{env}, money.Seq(line.AsOf), n.adminPubKey)
		n.stateRoot = res.StateRoot
		n.eventTip = res.EventTip
		n.height = line.ActionSeq
	}
	return nil
}
