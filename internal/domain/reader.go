package domain

import (
	"context"

	"github.com/stablex/driver/pkg/types"
)

// AuctionReader returns the auction snapshot (balances and active orders)
// valid for a batch. C2 (paginated view-call reader), C4 (event-sourced
// live reader), and C7 (shadow cross-check reader) are all AuctionReaders:
// the matcher and filter consume this single-method interface and never
// know which concrete reader produced a snapshot.
type AuctionReader interface {
	GetAuctionData(ctx context.Context, batch types.BatchIndex) (types.AuctionData, error)
}

// AuctionReaderFunc adapts a plain function to an AuctionReader, the way
// http.HandlerFunc adapts a function to http.Handler.
type AuctionReaderFunc func(ctx context.Context, batch types.BatchIndex) (types.AuctionData, error)

// GetAuctionData implements AuctionReader.
func (f AuctionReaderFunc) GetAuctionData(ctx context.Context, batch types.BatchIndex) (types.AuctionData, error) {
	return f(ctx, batch)
}

// PageSource is the narrow slice of the external ContractReader (§6) that
// the paginated reader (C2) needs: one paginated view call.
type PageSource interface {
	GetAuctionDataPaginated(ctx context.Context, pageSize uint16, prevUser types.Address, prevOffset uint16) ([]byte, error)
}
