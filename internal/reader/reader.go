// Package reader implements the paginated snapshot reader (§4.2, C2): it
// drives the contract's paginated view call to reconstruct the auction
// data for a batch without hitting gas limits, paging through owners
// rather than issuing one unbounded call.
package reader

import (
	"context"
	"fmt"

	"github.com/stablex/driver/internal/codec"
	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

// DefaultPageSize matches §6's AUCTION_DATA_PAGE_SIZE default.
const DefaultPageSize = 100

// Reader implements domain.AuctionReader by iterating the contract's
// paginated view call to exhaustion for each call to GetAuctionData.
type Reader struct {
	source   domain.PageSource
	pageSize uint16
}

// New builds a paginated reader. pageSize must be >= 1.
func New(source domain.PageSource, pageSize uint16) *Reader {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &Reader{source: source, pageSize: pageSize}
}

// GetAuctionData implements domain.AuctionReader. It is idempotent: a
// repeated call for the same batch against an unchanged chain state
// produces the same cursor sequence and the same accumulated result
// (§8.5), since every view call is a pure function of
// (page_size, last_user, last_user_offset). batch is not passed to the
// view call; the result is whatever the contract returns at call time.
func (r *Reader) GetAuctionData(ctx context.Context, batch types.BatchIndex) (types.AuctionData, error) {
	var (
		lastUser   types.Address
		lastOffset uint16

		balances = make(map[types.BalanceKey]types.Amount)
		seen     = make(map[types.BalanceKey]struct{})
		orders   []types.Order
	)

	for {
		page, err := r.source.GetAuctionDataPaginated(ctx, r.pageSize, lastUser, lastOffset)
		if err != nil {
			return types.AuctionData{}, fmt.Errorf("%w: %v", domain.ErrRPC, err)
		}

		records, err := codec.DecodePage(page)
		if err != nil {
			return types.AuctionData{}, err
		}

		for _, rec := range records {
			key := types.BalanceKey{Owner: rec.Order.Owner, Token: rec.Order.SellToken}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				balances[key] = rec.SellTokenBalance
			}
			orders = append(orders, rec.Order)
		}

		if len(records) < int(r.pageSize) {
			break
		}

		lastOwner := records[len(records)-1].Order.Owner
		count := 0
		for _, rec := range records {
			if rec.Order.Owner == lastOwner {
				count++
			}
		}
		if count > int(^uint16(0)) {
			return types.AuctionData{}, domain.ErrUserOverflow
		}
		lastUser = lastOwner
		lastOffset = uint16(count)
	}

	return types.AuctionData{Balances: balances, Orders: orders}, nil
}
