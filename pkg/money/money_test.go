package money

import "testing"

func TestMulPriceQtyFitsLedgerWidth(t *testing.T) {
	cases := []struct {
		name  string
		price uint64
		qty   uint64
	}{
		{"small", 100, 5},
		{"zero qty", 12345, 0},
		{"max price one qty", ^uint64(0), 1},
		// (2^64-1)^2 = 2^128 - 2^65 + 1, which still fits the 128-bit
		// ledger width; the overflow rejection guards the width itself,
		// not any pair of 64-bit inputs.
		{"max both", ^uint64(0), ^uint64(0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := MulPriceQty(c.price, c.qty); err != nil {
				t.Fatalf("MulPriceQty(%d,%d): %v", c.price, c.qty, err)
			}
		})
	}
}

func TestAddOverflowsAtLedgerWidth(t *testing.T) {
	var all [32]byte
	for i := 16; i < len(all); i++ {
		all[i] = 0xff
	}
	max := AmountFromBytes32(all) // 2^128 - 1, the largest storable balance
	if _, err := max.Add(FromUint64(1)); err != ErrOverflow {
		t.Fatalf("expected overflow adding past the ledger width, got %v", err)
	}
	if _, err := max.Add(Zero); err != nil {
		t.Fatalf("adding zero at the cap must not overflow: %v", err)
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := FromUint64(100)
	b := FromUint64(40)

	sum, err := a.Add(b)
	if err != nil || sum.Cmp(FromUint64(140)) != 0 {
		t.Fatalf("Add got %v err %v", sum, err)
	}

	diff, err := a.Sub(b)
	if err != nil || diff.Cmp(FromUint64(60)) != 0 {
		t.Fatalf("Sub got %v err %v", diff, err)
	}

	if _, err := b.Sub(a); err != ErrUnderflow {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestAmountBytes32RoundTrip(t *testing.T) {
	a, err := MulPriceQty(123456789, 987654321)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := AmountFromBytes32(a.Bytes32())
	if a.Cmp(b) != 0 {
		t.Fatalf("round trip mismatch: %s vs %s", a, b)
	}
}

func TestZeroIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatal("Zero.IsZero() = false")
	}
	if FromUint64(0).Cmp(Zero) != 0 {
		t.Fatal("FromUint64(0) != Zero")
	}
}
