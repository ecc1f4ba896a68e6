// Package ledger implements the balance ledger: per-(user, asset) total and
// reserved amounts, and the six primitive operations that keep
// reserved <= total at every step. Generalized from a single-asset balance
// plus locked-collateral pair into a map keyed by asset.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shadowbook/engine/pkg/money"
)

// ErrInsufficientAvailable is returned by Reserve or Debit when the
// requested amount exceeds what is currently unreserved.
var ErrInsufficientAvailable = errors.New("ledger: insufficient available balance")

// ErrInsufficientReserved is returned by Release or SettleOut when the
// requested amount exceeds what is currently reserved.
var ErrInsufficientReserved = errors.New("ledger: insufficient reserved balance")

// Balance holds one user's holdings of one asset.
type Balance struct {
	Total    money.Amount
	Reserved money.Amount
}

// Available returns Total - Reserved, the amount free to withdraw or spend.
func (b Balance) Available() (money.Amount, error) {
	return b.Total.Sub(b.Reserved)
}

type key struct {
	user  money.UserID
	asset money.AssetID
}

// Ledger holds every user's balance across every asset. It is not
// concurrency-safe by itself; the owning state applies a single-writer
// discipline on top of it.
type Ledger struct {
	balances map[key]*Balance
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[key]*Balance)}
}

// Get returns the balance for (user, asset), or the zero balance if none
// exists yet. The returned value is a copy; use the mutating methods below
// to change state.
func (l *Ledger) Get(user money.UserID, asset money.AssetID) Balance {
	if b, ok := l.balances[key{user, asset}]; ok {
		return *b
	}
	return Balance{}
}

func (l *Ledger) entry(user money.UserID, asset money.AssetID) *Balance {
	k := key{user, asset}
	b, ok := l.balances[k]
	if !ok {
		b = &Balance{}
		l.balances[k] = b
	}
	return b
}

// Credit increases Total unconditionally (e.g. a verified deposit or an
// incoming trade settlement). It never fails on its own arithmetic unless
// the ledger width would overflow.
func (l *Ledger) Credit(user money.UserID, asset money.AssetID, amt money.Amount) error {
	b := l.entry(user, asset)
	newTotal, err := b.Total.Add(amt)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	b.Total = newTotal
	return nil
}

// Debit decreases Total, failing if the requested amount exceeds what is
// currently available (Total - Reserved). Used for direct withdrawals.
func (l *Ledger) Debit(user money.UserID, asset money.AssetID, amt money.Amount) error {
	b := l.entry(user, asset)
	avail, err := b.Available()
	if err != nil {
		return err
	}
	if avail.LessThan(amt) {
		return ErrInsufficientAvailable
	}
	newTotal, err := b.Total.Sub(amt)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	b.Total = newTotal
	return nil
}

// Reserve moves amt from available into Reserved, without changing Total.
// Fails if amt exceeds Available().
func (l *Ledger) Reserve(user money.UserID, asset money.AssetID, amt money.Amount) error {
	b := l.entry(user, asset)
	avail, err := b.Available()
	if err != nil {
		return err
	}
	if avail.LessThan(amt) {
		return ErrInsufficientAvailable
	}
	newReserved, err := b.Reserved.Add(amt)
	if err != nil {
		return fmt.Errorf("reserve: %w", err)
	}
	b.Reserved = newReserved
	return nil
}

// Release moves amt from Reserved back into available, without changing
// Total. Used when an order is cancelled or a market order's unfilled
// remainder is discarded.
func (l *Ledger) Release(user money.UserID, asset money.AssetID, amt money.Amount) error {
	b := l.entry(user, asset)
	if b.Reserved.LessThan(amt) {
		return ErrInsufficientReserved
	}
	newReserved, err := b.Reserved.Sub(amt)
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	b.Reserved = newReserved
	return nil
}

// SettleOut removes amt from both Total and Reserved: the reserved leg of a
// fill, paid out to the counterparty.
func (l *Ledger) SettleOut(user money.UserID, asset money.AssetID, amt money.Amount) error {
	b := l.entry(user, asset)
	if b.Reserved.LessThan(amt) {
		return ErrInsufficientReserved
	}
	newReserved, err := b.Reserved.Sub(amt)
	if err != nil {
		return fmt.Errorf("settle out: %w", err)
	}
	newTotal, err := b.Total.Sub(amt)
	if err != nil {
		return fmt.Errorf("settle out: %w", err)
	}
	b.Reserved = newReserved
	b.Total = newTotal
	return nil
}

// SettleIn adds amt to Total only: the receiving leg of a fill. It never
// touches Reserved — the asset a party receives from a trade was never
// reserved on their own balance in the first place.
func (l *Ledger) SettleIn(user money.UserID, asset money.AssetID, amt money.Amount) error {
	return l.Credit(user, asset, amt)
}
