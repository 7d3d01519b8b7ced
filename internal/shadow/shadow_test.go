package shadow

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

func addr(n byte) types.Address {
	var a types.Address
	a[19] = n
	return a
}

func fixedReader(data types.AuctionData, err error) domain.AuctionReader {
	return domain.AuctionReaderFunc(func(context.Context, types.BatchIndex) (types.AuctionData, error) {
		return data, err
	})
}

func TestShadowReturnsPrimaryOnMatch(t *testing.T) {
	t.Parallel()

	data := types.AuctionData{
		Orders:   []types.Order{{ID: 1, Owner: addr(1)}},
		Balances: map[types.BalanceKey]types.Amount{{Owner: addr(1), Token: 0}: types.NewAmount(5)},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(fixedReader(data, nil), fixedReader(data, nil), logger)
	got, err := r.GetAuctionData(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetAuctionData: %v", err)
	}
	if len(got.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(got.Orders))
	}
	if bytes.Contains(buf.Bytes(), []byte("diverged")) {
		t.Error("should not log divergence when readers agree")
	}
}

func TestShadowLogsDivergence(t *testing.T) {
	t.Parallel()

	primary := types.AuctionData{Orders: []types.Order{{ID: 1, Owner: addr(1)}}}
	shadowData := types.AuctionData{Orders: []types.Order{{ID: 2, Owner: addr(1)}}}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(fixedReader(primary, nil), fixedReader(shadowData, nil), logger)
	got, err := r.GetAuctionData(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetAuctionData: %v", err)
	}
	if got.Orders[0].ID != 1 {
		t.Error("must return the primary result even on divergence")
	}
	if !bytes.Contains(buf.Bytes(), []byte("diverged")) {
		t.Error("expected a divergence warning to be logged")
	}
}

func TestShadowReaderErrorDoesNotBlockPrimary(t *testing.T) {
	t.Parallel()

	primary := types.AuctionData{Orders: []types.Order{{ID: 1, Owner: addr(1)}}}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(fixedReader(primary, nil), fixedReader(types.AuctionData{}, errBoom), logger)
	got, err := r.GetAuctionData(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetAuctionData: %v", err)
	}
	if len(got.Orders) != 1 {
		t.Error("primary result must still be returned when shadow fails")
	}
}

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }
