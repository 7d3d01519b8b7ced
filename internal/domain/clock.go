package domain

import "context"

// Clock resolves block hashes to Unix timestamps — the external
// collaborator named in §6 as (b) `Clock`. The block timestamp cache (C5)
// is the only consumer.
type Clock interface {
	BlockTimestamp(ctx context.Context, blockHash [32]byte) (uint64, error)
}
