package types

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Amount is a non-negative token quantity or price component. The domain
// uses u128-range balances and order amounts, but multiplies two such
// values together during matching (§4.6), which can overflow 128 bits —
// so Amount is backed by uint256 throughout, not a narrower type, to
// give headroom for that intermediate arithmetic without ever wrapping.
type Amount struct {
	v uint256.Int
}

// Zero is the additive identity.
var Zero = Amount{}

// NewAmount builds an Amount from a uint64, the common case for test
// fixtures and small balances.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// AmountFromBig builds an Amount from a big.Int. It panics if b is
// negative or exceeds 256 bits — callers at the system boundary (codec,
// RPC decoding) are expected to validate range before this point.
func AmountFromBig(b *big.Int) Amount {
	if b.Sign() < 0 {
		panic(fmt.Sprintf("types: amount %s is negative", b))
	}
	var a Amount
	overflow := a.v.SetFromBig(b)
	if overflow {
		panic(fmt.Sprintf("types: amount %s overflows 256 bits", b))
	}
	return a
}

// Big returns the value as a big.Int, for interop with go-ethereum APIs
// that take *big.Int (abi encoding, eth_call arguments).
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// AmountFromBytesBE builds an Amount from a 32-byte big-endian buffer.
// Balance fields are 32 bytes on the wire (§4.1); the codec left-pads the
// 16-byte price fields to 32 bytes before calling this.
func AmountFromBytesBE(b [32]byte) Amount {
	var a Amount
	a.v.SetBytes(b[:])
	return a
}

// BytesBE32 renders the amount as a 32-byte big-endian buffer, the
// inverse of AmountFromBytesBE, used by the codec's round-trip encoder.
func (a Amount) BytesBE32() [32]byte {
	return a.v.Bytes32()
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares two amounts: -1, 0, or 1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Add returns a+b. Panics on overflow past 256 bits, which never happens
// for in-domain values (balances and amounts are bounded well below that).
func (a Amount) Add(b Amount) Amount {
	var r Amount
	_, overflow := r.v.AddOverflow(&a.v, &b.v)
	if overflow {
		panic("types: amount addition overflow")
	}
	return r
}

// Sub returns a-b. Panics if b > a; callers must check via Cmp first,
// matching the orderbook's balance invariant that withdrawals/fills never
// exceed the available balance (§4.3).
func (a Amount) Sub(b Amount) Amount {
	if a.Cmp(b) < 0 {
		panic("types: amount subtraction underflow")
	}
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r
}

// MulDiv computes floor(a*b/c) using a 512-bit intermediate product via
// uint256's MulDivOverflow, the primitive §4.6 step 1 and step 5 require
// ("256-bit arithmetic... the naive multiply-then-divide overflows 128
// bits for realistic order sizes"). c must be non-zero.
func MulDiv(a, b, c Amount) Amount {
	if c.v.IsZero() {
		panic("types: MulDiv division by zero")
	}
	var r Amount
	r.v.MulDivOverflow(&a.v, &b.v, &c.v)
	return r
}

// Uint64 returns the value truncated to a uint64. Used only where the
// caller already knows the amount fits (e.g. fee denominators), never on
// raw balances.
func (a Amount) Uint64() uint64 {
	return a.v.Uint64()
}

// MulDivCeil computes ceil(a*b/c) using the same 512-bit intermediate
// product as MulDiv, rounding up instead of down. Used by the matcher's
// fee-buffering and price-normalization steps (§4.6 steps 2 and 4), which
// round in the direction that keeps the post-fee limit satisfied.
func MulDivCeil(a, b, c Amount) Amount {
	q := MulDiv(a, b, c)
	var rem uint256.Int
	rem.MulMod(&a.v, &b.v, &c.v)
	if !rem.IsZero() {
		q = q.Add(NewAmount(1))
	}
	return q
}

// maxUint128 is the largest value representable in 128 bits — the
// overflow ceiling §4.6 step 4 checks prices against.
var maxUint128 = func() Amount {
	one := new(big.Int).Lsh(big.NewInt(1), 128)
	one.Sub(one, big.NewInt(1))
	return AmountFromBig(one)
}()

// FitsUint128 reports whether a is representable in 128 bits, the range
// every on-chain price and amount field is stored in.
func (a Amount) FitsUint128() bool {
	return a.Cmp(maxUint128) <= 0
}

// String renders the amount in base 10.
func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalJSON renders the amount as a JSON string to avoid float64
// precision loss for values beyond 2^53, the same convention the
// observability surface uses for every other 256-bit-range field.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("types: invalid amount %q: %w", s, err)
	}
	a.v = *v
	return nil
}
