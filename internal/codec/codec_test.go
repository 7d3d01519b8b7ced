package codec

import (
	"errors"
	"testing"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

func TestDecodePageRoundTrip(t *testing.T) {
	t.Parallel()

	var owner types.Address
	owner[19] = 7

	o := types.Order{
		BuyToken:         1,
		SellToken:        0,
		PriceNumerator:   types.NewAmount(4_000_000_000_000_000_000),
		PriceDenominator: types.NewAmount(52_000_000_000_000_000_000),
		RemainingAmount:  types.NewAmount(52_000_000_000_000_000_000),
		ValidFrom:        10,
		ValidUntil:       20,
	}
	bal := types.NewAmount(999)

	rec := EncodeRecord(owner, bal, o)
	if len(rec) != RecordSize {
		t.Fatalf("encoded record length = %d, want %d", len(rec), RecordSize)
	}

	records, err := DecodePage(rec)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.Order.Owner != owner {
		t.Errorf("owner = %v, want %v", got.Order.Owner, owner)
	}
	if got.Order.BuyToken != o.BuyToken || got.Order.SellToken != o.SellToken {
		t.Errorf("tokens = (%d,%d), want (%d,%d)", got.Order.BuyToken, got.Order.SellToken, o.BuyToken, o.SellToken)
	}
	if got.Order.PriceNumerator.Cmp(o.PriceNumerator) != 0 {
		t.Errorf("price numerator mismatch: got %s want %s", got.Order.PriceNumerator, o.PriceNumerator)
	}
	if got.Order.PriceDenominator.Cmp(o.PriceDenominator) != 0 {
		t.Errorf("price denominator mismatch: got %s want %s", got.Order.PriceDenominator, o.PriceDenominator)
	}
	if got.Order.RemainingAmount.Cmp(o.RemainingAmount) != 0 {
		t.Errorf("remaining amount mismatch: got %s want %s", got.Order.RemainingAmount, o.RemainingAmount)
	}
	if got.Order.ValidFrom != o.ValidFrom || got.Order.ValidUntil != o.ValidUntil {
		t.Errorf("validity window mismatch")
	}
	if got.SellTokenBalance.Cmp(bal) != 0 {
		t.Errorf("sell token balance mismatch: got %s want %s", got.SellTokenBalance, bal)
	}
}

func TestDecodePageMultipleRecords(t *testing.T) {
	t.Parallel()

	var owner types.Address
	owner[19] = 1
	o := types.Order{BuyToken: 1, SellToken: 0, PriceNumerator: types.NewAmount(1), PriceDenominator: types.NewAmount(1), RemainingAmount: types.NewAmount(1)}

	page := append(EncodeRecord(owner, types.Zero, o), EncodeRecord(owner, types.Zero, o)...)
	records, err := DecodePage(page)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestDecodePageBadLength(t *testing.T) {
	t.Parallel()

	_, err := DecodePage(make([]byte, RecordSize+1))
	if !errors.Is(err, domain.ErrCorruptPage) {
		t.Fatalf("err = %v, want ErrCorruptPage", err)
	}
}

func TestDecodePageSameBuySellToken(t *testing.T) {
	t.Parallel()

	var owner types.Address
	o := types.Order{BuyToken: 3, SellToken: 3}
	rec := EncodeRecord(owner, types.Zero, o)

	_, err := DecodePage(rec)
	if !errors.Is(err, domain.ErrCorruptPage) {
		t.Fatalf("err = %v, want ErrCorruptPage", err)
	}
}
