package loadgen

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shadowbook/engine/pkg/action"
)

// Submitter is satisfied by pkg/fastpath.Node (direct dispatch) or by
// anything that just wants to queue envelopes for later draining, e.g. a
// pkg/mempool.Mempool's Push method adapted to this signature.
type Submitter interface {
	SubmitEnvelope(env action.Envelope) *action.Error
}

// BatchSubmitter is an optional capability a Submitter may also implement
// (pkg/fastpath.Node does) to admit a whole generated batch through a
// priority mempool instead of one envelope at a time.
type BatchSubmitter interface {
	SubmitBatch(envs []action.Envelope) []*action.Error
}

// FeederConfig controls submission rate: every Interval, a batch of
// BatchSize envelopes is generated and handed to the submitter.
type FeederConfig struct {
	BatchSize int
	Interval  time.Duration
}

// DefaultFeederConfig submits 10 envelopes every 100ms (100/sec).
func DefaultFeederConfig() FeederConfig {
	return FeederConfig{BatchSize: 10, Interval: 100 * time.Millisecond}
}

// HighLoadFeederConfig submits 100 envelopes every 100ms (1000/sec).
func HighLoadFeederConfig() FeederConfig {
	return FeederConfig{BatchSize: 100, Interval: 100 * time.Millisecond}
}

// StartFeeder runs a background goroutine that generates and submits
// batches on a ticker until ctx is cancelled, returning a CancelFunc the
// caller can use to stop it early. Every rejection is counted but not
// logged individually — a load generator expects some of its own cancels
// to race against already-filled orders; that is a normal outcome, not a
// fault.
func StartFeeder(ctx context.Context, gen *Generator, submit Submitter, cfg FeederConfig, logger *zap.Logger) context.CancelFunc {
	feedCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		var submitted, rejected int

		for {
			select {
			case <-feedCtx.Done():
				if logger != nil {
					elapsed := time.Since(start)
					logger.Info("loadgen feeder stopped",
						zap.Int("submitted", submitted), zap.Int("rejected", rejected),
						zap.Duration("elapsed", elapsed))
				}
				return
			case <-ticker.C:
				batch := gen.GenerateBatch(cfg.BatchSize)
				for _, env := range batch {
					if err := submit.SubmitEnvelope(env); err != nil {
						rejected++
					} else {
						submitted++
					}
				}
			}
		}
	}()

	return cancel
}
