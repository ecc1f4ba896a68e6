// Package storage gives the fast path a restart-without-replay-from-genesis
// convenience: a Pebble-backed log of (height, state_root, event_tip)
// checkpoints, plus a flat-file WAL of the raw envelope bytes that produced
// each one. Neither is the core's source of truth — commit.Apply run fresh
// against genesis and the same envelope stream reproduces identical
// commitments regardless of whether a checkpoint ever existed.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Checkpoint is one row of the fast path's restart log: the commitment
// pair commit.Apply produced after height-many accepted actions.
type Checkpoint struct {
	Height    uint64
	StateRoot [32]byte
	EventTip  [32]byte
}

// PebbleStore persists Checkpoint rows keyed by height, so a restarted
// fast path can find the newest one without scanning from height zero.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveCheckpoint persists one height's commitment pair.
func (s *PebbleStore) SaveCheckpoint(c Checkpoint) error {
	val, err := encodeGob(c)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := s.db.Set(heightKey(c.Height), val, pebble.Sync); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the highest-height checkpoint on disk, or
// (Checkpoint{}, false) if none has ever been written.
func (s *PebbleStore) LatestCheckpoint() (Checkpoint, bool, error) {
	upper := append(append([]byte{}, checkpointPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: checkpointPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return Checkpoint{}, false, err
	}
	defer iter.Close()

	if !iter.Last() {
		return Checkpoint{}, false, nil
	}
	var out Checkpoint
	if err := decodeGob(iter.Value(), &out); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return out, true, nil
}

// CheckpointAt returns the checkpoint saved at an exact height.
func (s *PebbleStore) CheckpointAt(height uint64) (Checkpoint, bool, error) {
	val, closer, err := s.db.Get(heightKey(height))
	if err == pebble.ErrNotFound {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	defer closer.Close()
	var out Checkpoint
	if err := decodeGob(val, &out); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return out, true, nil
}
