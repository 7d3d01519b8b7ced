// Package shadow implements the shadow reader (§4.7, C7): it wraps a
// primary and a shadow AuctionReader, invokes both, logs a structured
// divergence warning when they disagree, and always returns the primary
// result.
package shadow

import (
	"context"
	"log/slog"
	"sort"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

// Reader cross-checks a primary reader against a shadow reader.
type Reader struct {
	primary   domain.AuctionReader
	shadow    domain.AuctionReader
	logger    *slog.Logger
	onDiverge func(batch types.BatchIndex, diff string)
}

// New builds a shadow-checking reader.
func New(primary, shadow domain.AuctionReader, logger *slog.Logger) *Reader {
	return &Reader{primary: primary, shadow: shadow, logger: logger.With("component", "shadow-reader")}
}

// OnDivergence registers a callback invoked whenever primary and shadow
// disagree, in addition to the structured log warning. Used to mirror
// divergence onto the observability surface (GET /ws).
func (r *Reader) OnDivergence(f func(batch types.BatchIndex, diff string)) {
	r.onDiverge = f
}

// GetAuctionData implements domain.AuctionReader. The shadow call failing
// is itself a divergence worth logging, but never blocks returning the
// primary result — the shadow path exists only to detect drift, not to
// gate the batch.
func (r *Reader) GetAuctionData(ctx context.Context, batch types.BatchIndex) (types.AuctionData, error) {
	primary, err := r.primary.GetAuctionData(ctx, batch)
	if err != nil {
		return types.AuctionData{}, err
	}

	shadowData, shadowErr := r.shadow.GetAuctionData(ctx, batch)
	if shadowErr != nil {
		r.logger.Warn("shadow reader failed", "batch", batch, "error", shadowErr)
		return primary, nil
	}

	if diff := diverges(primary, shadowData); diff != "" {
		r.logger.Warn("shadow reader diverged from primary", "batch", batch, "diff", diff)
		if r.onDiverge != nil {
			r.onDiverge(batch, diff)
		}
	}

	return primary, nil
}

// diverges compares two snapshots by the set of orders and the set of
// balances, returning a short description of the first difference found,
// or "" if they match.
func diverges(primary, shadow types.AuctionData) string {
	if len(primary.Orders) != len(shadow.Orders) {
		return "order count differs"
	}
	if len(primary.Balances) != len(shadow.Balances) {
		return "balance count differs"
	}

	pOrders := sortedOrderKeys(primary.Orders)
	sOrders := sortedOrderKeys(shadow.Orders)
	for i := range pOrders {
		if pOrders[i] != sOrders[i] {
			return "order set differs"
		}
	}

	for k, v := range primary.Balances {
		sv, ok := shadow.Balances[k]
		if !ok || sv.Cmp(v) != 0 {
			return "balance set differs"
		}
	}

	return ""
}

func sortedOrderKeys(orders []types.Order) []types.OrderKey {
	keys := make([]types.OrderKey, len(orders))
	for i, o := range orders {
		keys[i] = types.OrderKey{Owner: o.Owner, ID: o.ID}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
