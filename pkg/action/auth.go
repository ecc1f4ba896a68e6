package action

import (
	"bytes"

	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/state"
)

// domainTag returns the fixed ASCII tag mixed into the signed digest for
// each action kind, so a signature over one action kind can never be
// replayed as a different kind even if their field encodings happened to
// collide.
func domainTag(k Kind) string {
	switch k {
	case KindDeposit:
		return "engine.deposit.v1"
	case KindPlaceOrder:
		return "engine.place_order.v1"
	case KindCancelOrder:
		return "engine.cancel_order.v1"
	case KindWithdraw:
		return "engine.withdraw.v1"
	case KindAddSessionKey:
		return "engine.add_session_key.v1"
	case KindCreatePair:
		return "engine.create_pair.v1"
	case KindSetInstrumentStatus:
		return "engine.set_instrument_status.v1"
	default:
		return "engine.unknown"
	}
}

// Digest computes the canonical SHA3-256 digest an envelope's signature
// must cover.
func Digest(a Action) [32]byte {
	return crypto.CanonicalDigest(domainTag(a.Kind()), a.CanonicalFields()...)
}

// Envelope pairs a signed action with the explicit public key that signed
// it. The key travels with the envelope rather than being recovered from
// the signature.
type Envelope struct {
	Action    Action
	PubKey    []byte
	Signature []byte
}

// verifySignerKey checks that PubKey/Signature are a valid signature over
// Action's digest, and that PubKey is currently authorized to act for the
// action's user: either the user's root key, or a session key registered to
// that user that has not expired as of asOf.
func verifySignerKey(s *state.State, env Envelope, user money.UserID, asOf money.Seq) *Error {
	digest := Digest(env.Action)
	if !crypto.VerifyWithPublicKey(env.PubKey, digest, env.Signature) {
		return AuthError(CodeBadSignature, "signature does not verify", nil)
	}

	// Plain map lookup, not state.User: a rejected envelope must not leave
	// a lazily-created user record behind.
	u, ok := s.Users[user]
	if !ok {
		return AuthError(CodeUnknownSigner, "no keys registered for user", nil)
	}
	if len(u.RootPubKey) > 0 && bytes.Equal(u.RootPubKey, env.PubKey) {
		return nil
	}
	key, ok := u.SessionKeys[state.SessionKeyIndex(env.PubKey)]
	if !ok {
		return AuthError(CodeUnknownSigner, "public key is not the user's root key or an active session key", nil)
	}
	if key.Expiration != 0 && asOf >= key.Expiration {
		return AuthError(CodeSessionKeyExpired, "session key has expired", nil)
	}
	return nil
}

// checkNonce enforces strict per-user monotonic nonces without mutating
// anything: the action's nonce must equal the user's next expected value.
// Callers consume the nonce with consumeNonce only once every other check
// on the action has passed, so a rejected action never advances it.
func checkNonce(s *state.State, user money.UserID, nonce money.Nonce) *Error {
	u, ok := s.Users[user]
	if !ok || nonce != u.Nonce {
		return AuthError(CodeNonceReplay, "nonce does not match expected value", nil)
	}
	return nil
}

// consumeNonce advances the user's nonce by exactly one. Call only after
// checkNonce and every other fallible check have passed.
func consumeNonce(s *state.State, user money.UserID) {
	s.Users[user].Nonce++
}
