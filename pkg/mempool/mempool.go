// Package mempool buffers admitted envelopes ahead of dispatch, ordering
// them into three priority buckets the way a real venue prioritizes
// risk-reducing actions over new risk: non-order actions first, then
// cancels, then new orders. Within a bucket, admission order (FIFO) is
// preserved.
package mempool

import (
	"sync"

	"github.com/shadowbook/engine/pkg/action"
)

// Bucket classifies an envelope's action for proposal ordering.
type Bucket int

const (
	BucketNonOrder Bucket = iota
	BucketCancel
	BucketOrder
)

// Classify returns the bucket an envelope's action belongs in.
func Classify(env action.Envelope) Bucket {
	switch env.Action.(type) {
	case action.CancelOrder:
		return BucketCancel
	case action.PlaceOrder:
		return BucketOrder
	default:
		return BucketNonOrder
	}
}

// Mempool holds admitted-but-not-yet-dispatched envelopes in three FIFO
// queues, pulled in BucketNonOrder, BucketCancel, BucketOrder order when a
// batch is selected.
type Mempool struct {
	mu       sync.Mutex
	nonOrder []action.Envelope
	cancel   []action.Envelope
	order    []action.Envelope
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Push classifies and enqueues one envelope.
func (m *Mempool) Push(env action.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch Classify(env) {
	case BucketCancel:
		m.cancel = append(m.cancel, env)
	case BucketOrder:
		m.order = append(m.order, env)
	default:
		m.nonOrder = append(m.nonOrder, env)
	}
}

// SelectForProposal drains up to max envelopes in priority order,
// removing them from the mempool. max <= 0 drains everything.
func (m *Mempool) SelectForProposal(max int) []action.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []action.Envelope
	pull := func(q *[]action.Envelope) {
		for len(*q) > 0 {
			if max > 0 && len(out) >= max {
				return
			}
			out = append(out, (*q)[0])
			*q = (*q)[1:]
		}
	}
	pull(&m.nonOrder)
	pull(&m.cancel)
	pull(&m.order)
	return out
}

// Len reports the total number of envelopes pending across all buckets.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nonOrder) + len(m.cancel) + len(m.order)
}
