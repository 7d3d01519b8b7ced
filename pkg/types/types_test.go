package types

import "testing"

func TestAddressLess(t *testing.T) {
	t.Parallel()

	var a, b Address
	a[19] = 1
	b[19] = 2

	if !a.Less(b) {
		t.Errorf("expected %v < %v", a, b)
	}
	if b.Less(a) {
		t.Errorf("did not expect %v < %v", b, a)
	}
	if a.Less(a) {
		t.Errorf("address must not be less than itself")
	}
}

func TestOrderKeyLess(t *testing.T) {
	t.Parallel()

	var owner1, owner2 Address
	owner1[19] = 1
	owner2[19] = 2

	k1 := OrderKey{Owner: owner1, ID: 5}
	k2 := OrderKey{Owner: owner1, ID: 6}
	k3 := OrderKey{Owner: owner2, ID: 0}

	if !k1.Less(k2) {
		t.Errorf("expected same-owner lower id to sort first")
	}
	if !k2.Less(k3) {
		t.Errorf("expected lower owner to sort first regardless of id")
	}
}

func TestOrderActiveAt(t *testing.T) {
	t.Parallel()

	o := Order{
		PriceNumerator:   NewAmount(10),
		PriceDenominator: NewAmount(100),
		RemainingAmount:  NewAmount(50),
		ValidFrom:        5,
		ValidUntil:       10,
	}

	if o.ActiveAt(4) {
		t.Errorf("order should not be active before ValidFrom")
	}
	if !o.ActiveAt(5) {
		t.Errorf("order should be active at ValidFrom")
	}
	if !o.ActiveAt(10) {
		t.Errorf("order should be active at ValidUntil")
	}
	if o.ActiveAt(11) {
		t.Errorf("order should not be active after ValidUntil")
	}

	o.RemainingAmount = NewAmount(5)
	if o.ActiveAt(7) {
		t.Errorf("order with remaining amount below its numerator should not be active")
	}

	o.RemainingAmount = Zero
	if o.ActiveAt(7) {
		t.Errorf("fully filled order should not be active")
	}
}

func TestFeeDenominator(t *testing.T) {
	t.Parallel()

	f := Fee{Token: FeeTokenID, Ratio: 0.001}
	if got := f.Denominator(); got != 1000 {
		t.Errorf("Denominator() = %d, want 1000", got)
	}

	zero := Fee{}
	if got := zero.Denominator(); got != 1 {
		t.Errorf("zero-ratio fee Denominator() = %d, want 1", got)
	}
}

func TestTrivialSolution(t *testing.T) {
	t.Parallel()

	s := TrivialSolution()
	if !s.IsTrivial() {
		t.Errorf("TrivialSolution() should report IsTrivial")
	}

	s.Prices[FeeTokenID] = NewAmount(1)
	if s.IsTrivial() {
		t.Errorf("solution with a price entry should not be trivial")
	}
}
