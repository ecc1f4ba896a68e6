package money

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned whenever an arithmetic operation would produce a
// value outside the ledger's representable range. The core never saturates
// or wraps silently — every overflow is a rejected action.
var ErrOverflow = errors.New("money: amount overflow")

// ErrUnderflow is returned whenever a subtraction would produce a negative
// result. Balances and reservations are never negative.
var ErrUnderflow = errors.New("money: amount underflow")

// ledgerMax is 2^128 - 1. Amount is backed by a 256-bit integer (so that
// price * qty, each up to 2^64-1, can be multiplied without intermediate
// overflow) but every value actually stored on a balance or reservation is
// bound to 128 bits, matching the amount's canonical 32-byte wire encoding.
var ledgerMax = func() *uint256.Int {
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, 128)
	return new(uint256.Int).Sub(shifted, one)
}()

// Amount is a non-negative integer bound to [0, 2^128-1]. The zero value is
// zero. Amount is a value type; all operations return a new Amount and an
// error rather than mutating in place.
type Amount struct {
	v uint256.Int
}

// Zero is the additive identity.
var Zero = Amount{}

// FromUint64 builds an Amount from a plain machine integer.
func FromUint64(n uint64) Amount {
	return Amount{v: *uint256.NewInt(n)}
}

// MulPriceQty computes price*qty with a wide intermediate and rejects the
// result if it does not fit the ledger width. price and qty are both raw
// integer-scaled quantities (ticks and lots respectively); the caller is
// responsible for any decimal scaling implied by an instrument's
// price_scale/qty_scale.
func MulPriceQty(price, qty uint64) (Amount, error) {
	p, q := uint256.NewInt(price), uint256.NewInt(qty)
	prod, overflow := new(uint256.Int).MulOverflow(p, q)
	if overflow || prod.Gt(ledgerMax) {
		return Amount{}, fmt.Errorf("%w: %d * %d", ErrOverflow, price, qty)
	}
	return Amount{v: *prod}, nil
}

// Add returns a+b, or ErrOverflow if the sum exceeds the ledger width.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, overflow := new(uint256.Int).AddOverflow(&a.v, &b.v)
	if overflow || sum.Gt(ledgerMax) {
		return Amount{}, ErrOverflow
	}
	return Amount{v: *sum}, nil
}

// Sub returns a-b, or ErrUnderflow if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Amount{}, ErrUnderflow
	}
	return Amount{v: *new(uint256.Int).Sub(&a.v, &b.v)}, nil
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.Gt(&b.v) }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// String renders the amount in decimal, with no scaling applied.
func (a Amount) String() string { return a.v.Dec() }

// Bytes32 renders the amount as a big-endian 32-byte array, the canonical
// wire form used by the event log and commitment hash.
func (a Amount) Bytes32() [32]byte {
	return a.v.Bytes32()
}

// AmountFromBytes32 parses the canonical wire form produced by Bytes32.
func AmountFromBytes32(b [32]byte) Amount {
	return Amount{v: *new(uint256.Int).SetBytes32(b[:])}
}
