// Package state owns the single mutable world the core operates on: the
// asset and instrument registries, user/session-key records, the balance
// ledger, and one order book per instrument. Nothing in this package reads
// a clock, touches a file, or spawns a goroutine — every mutation is a
// direct call from pkg/action's Dispatch, keeping the core single-writer
// and free of I/O.
package state

import (
	"errors"
	"fmt"

	"github.com/shadowbook/engine/pkg/money"
)

// InstrumentStatus tracks an instrument's trading lifecycle.
type InstrumentStatus uint8

const (
	Active InstrumentStatus = iota
	Paused
	Settling
	Settled
)

func (s InstrumentStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Settling:
		return "settling"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

var ErrInvalidStatusTransition = errors.New("state: invalid instrument status transition")

// validTransitions: Settled is terminal, and an instrument can move to
// Settling from either Active or Paused but never back out of it.
var validTransitions = map[InstrumentStatus]map[InstrumentStatus]bool{
	Active:   {Paused: true, Settling: true},
	Paused:   {Active: true, Settling: true},
	Settling: {Settled: true},
	Settled:  {},
}

// ValidateStatusTransition reports whether moving from one instrument
// status to another is allowed. A no-op transition (from == to) is always
// allowed; Settled is terminal.
func ValidateStatusTransition(from, to InstrumentStatus) error {
	if from == to {
		return nil
	}
	if validTransitions[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

// Instrument is a tradable (base, quote) pair with its tick/lot grid.
type Instrument struct {
	ID     money.InstrumentID
	Base   money.AssetID
	Quote  money.AssetID
	Tick   uint64 // minimum price increment
	Lot    uint64 // minimum quantity increment
	Status InstrumentStatus
}

// ValidatePrice reports whether price is a non-zero multiple of Tick. The
// action handler applies it to limit prices only; a market order's cap is
// not checked against the tick grid.
func (i Instrument) ValidatePrice(price uint64) error {
	if price == 0 {
		return errors.New("state: price must be positive")
	}
	if i.Tick == 0 || price%i.Tick != 0 {
		return fmt.Errorf("state: price %d is not a multiple of tick %d", price, i.Tick)
	}
	return nil
}

// ValidateQty reports whether qty is a non-zero multiple of Lot.
func (i Instrument) ValidateQty(qty uint64) error {
	if qty == 0 {
		return errors.New("state: qty must be positive")
	}
	if i.Lot == 0 || qty%i.Lot != 0 {
		return fmt.Errorf("state: qty %d is not a multiple of lot %d", qty, i.Lot)
	}
	return nil
}

// Asset is a settlement currency or token.
type Asset struct {
	ID       money.AssetID
	Symbol   string
	Decimals uint8
}

// SessionKey is a delegated signer bound to a user and valid until
// Expiration (compared against the caller-supplied asOf sequence, never a
// local clock — see pkg/action).
type SessionKey struct {
	PubKey     []byte
	Expiration money.Seq
}

// User holds auth/nonce state for one account. Balances live in the
// ledger, keyed by UserID, not here.
type User struct {
	ID          money.UserID
	Nonce       money.Nonce
	RootPubKey  []byte
	SessionKeys map[string]SessionKey // keyed by hex-encoded pubkey
}
