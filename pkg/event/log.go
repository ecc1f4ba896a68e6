package event

import "github.com/shadowbook/engine/pkg/money"

// Log is the append-only sequence of events for one state instance. Seq
// values are dense and strictly increasing from 0; nothing is ever removed
// or reordered.
type Log struct {
	events []Event
	next   money.Seq
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append assigns the next Seq to enc and appends it, returning the
// constructed Event.
func (l *Log) Append(enc Encoder) Event {
	e := Event{Seq: l.next, Kind: enc.Kind(), Payload: enc.Encode()}
	l.events = append(l.events, e)
	l.next++
	return e
}

// Len returns the number of events appended so far.
func (l *Log) Len() int { return len(l.events) }

// At returns the event at position i (not by Seq — the two coincide only if
// nothing has ever been truncated, which this log never does, so At(i) and
// lookup-by-seq are equivalent here).
func (l *Log) At(i int) Event { return l.events[i] }

// Tail returns every event with Seq >= from, for incremental consumers
// (e.g. a WebSocket feed resuming after a reconnect).
func (l *Log) Tail(from money.Seq) []Event {
	if from >= l.next {
		return nil
	}
	return append([]Event(nil), l.events[from:]...)
}

// All returns every event in the log. Callers must not mutate the result.
func (l *Log) All() []Event { return l.events }
