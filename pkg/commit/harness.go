package commit

import (
	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/event"
	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/state"
)

// Outcome is Dispatch's own *action.Error, recorded per envelope so a
// caller can tell which of a batch were rejected without re-running it.
type Outcome struct {
	Index int
	Err   *action.Error
}

// Result is everything produced by running a batch of envelopes through
// Apply: the resulting commitment and every non-nil dispatch error, in
// submission order.
type Result struct {
	StateRoot [32]byte
	EventTip  [32]byte
	Rejected  []Outcome
}

// Apply drives every envelope through action.Dispatch, in order, against s
// and log, then computes the resulting commitment. It is the one function
// both the fast path and the zkVM replay path call — called with identical
// (s, log, envs, asOf, adminPubKey) they are required to return an
// identical Result, and that equality is the whole of what replay proves.
func Apply(s *state.State, log *event.Log, envs []action.Envelope, asOf money.Seq, adminPubKey []byte) Result {
	var res Result
	for i, env := range envs {
		if err := action.Dispatch(s, log, env, asOf, adminPubKey); err != nil {
			res.Rejected = append(res.Rejected, Outcome{Index: i, Err: err})
		}
	}
	res.StateRoot = StateRoot(s)
	res.EventTip = EventTip(log)
	return res
}
