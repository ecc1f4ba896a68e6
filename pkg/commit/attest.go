// attest.go adds an optional co-signing step on top of a Result: before
// the bridge posts a (pre_commit, post_commit) pair to the settlement
// network, a configured validator set can each sign it with BLS and have
// their signatures folded into one aggregate. The core's correctness
// never depends on this running — Apply already produced a final Result
// — attestation is a downstream consumer the way the proof layer is.
package commit

import (
	"github.com/shadowbook/engine/pkg/crypto"
)

// AttestationMessage is what each validator actually signs: the
// concatenation of pre- and post-commit so a signature over one Result
// can never be replayed against another height's pre/post pair.
func AttestationMessage(pre, post [32]byte) []byte {
	msg := make([]byte, 0, 64)
	msg = append(msg, pre[:]...)
	msg = append(msg, post[:]...)
	return msg
}

// Attestation is one validator's signature over an AttestationMessage.
type Attestation struct {
	Validator *crypto.BLSPubKey
	Signature []byte
}

// Aggregate folds a same-message attestation set into one aggregate BLS
// signature, or returns (nil, false) if none were supplied.
func Aggregate(attestations []Attestation) ([]byte, bool) {
	if len(attestations) == 0 {
		return nil, false
	}
	sigs := make([][]byte, 0, len(attestations))
	for _, a := range attestations {
		sigs = append(sigs, a.Signature)
	}
	agg := crypto.Aggregate(sigs)
	if agg == nil {
		return nil, false
	}
	return agg, true
}

// VerifyAggregate checks an aggregate signature against every validator in
// the set, all over the same (pre, post) pair — the quorum check the
// bridge runs before it trusts a commitment enough to post it onward.
func VerifyAggregate(validators []*crypto.BLSPubKey, pre, post [32]byte, aggSig []byte) bool {
	return crypto.VerifyAggregateSameMsg(validators, AttestationMessage(pre, post), aggSig)
}
