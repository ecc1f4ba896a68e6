package loadgen

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shadowbook/engine/pkg/action"
)

type countingSubmitter struct {
	mu    sync.Mutex
	count int
}

func (s *countingSubmitter) SubmitEnvelope(action.Envelope) *action.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *countingSubmitter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestStartFeeder_SubmitsBatchesUntilCancelled(t *testing.T) {
	acct, err := NewAccount(1)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	gen := New([]*Account{acct}, DefaultConfig([]Market{testMarket()}), 5)
	sub := &countingSubmitter{}

	cancel := StartFeeder(context.Background(), gen, sub, FeederConfig{BatchSize: 3, Interval: 10 * time.Millisecond}, zap.NewNop())
	time.Sleep(55 * time.Millisecond)
	cancel()

	// Allow the goroutine's final select to observe cancellation before we
	// read the final count.
	time.Sleep(10 * time.Millisecond)
	if sub.Count() == 0 {
		t.Fatal("expected at least one batch to have been submitted")
	}

	countAfterCancel := sub.Count()
	time.Sleep(30 * time.Millisecond)
	if sub.Count() != countAfterCancel {
		t.Fatal("feeder kept submitting after cancel")
	}
}
