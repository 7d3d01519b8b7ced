// Package driver wires the readers, the matcher, and the submitter
// together into the single entry point an external batch scheduler
// calls once per batch boundary (§6 Non-goals: batch timing itself is
// an external collaborator's responsibility, not this package's).
package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stablex/driver/internal/chain"
	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/internal/filter"
	"github.com/stablex/driver/internal/matcher"
	"github.com/stablex/driver/pkg/types"
)

// DefaultFee is the only fee configuration the contract uses in
// practice (§4.6): the fee token is pinned to the contract's fee token
// (id 0) at a ratio of 1/1000.
var DefaultFee = types.Fee{Token: types.FeeTokenID, Ratio: 1.0 / 1000.0}

// Driver computes and submits a uniform-clearing-price solution for a
// batch, per the data flow in §4's OVERVIEW: snapshot → filter → match →
// submit.
type Driver struct {
	Snapshot  domain.AuctionReader
	Submitter *chain.Submitter
	Filter    filter.OrderbookFilter
	Logger    *slog.Logger

	// DryRun, when set, computes the solution but never calls Submitter.
	DryRun bool
}

// Tick fetches the auction data for batch, applies the configured
// filter, runs the matcher, and submits the resulting solution. This is
// the method the embedding scheduler calls once per batch boundary.
func (d *Driver) Tick(ctx context.Context, batch types.BatchIndex) error {
	data, err := d.Snapshot.GetAuctionData(ctx, batch)
	if err != nil {
		return fmt.Errorf("fetch auction data for batch %d: %w", batch, err)
	}

	data = d.Filter.Apply(data)

	sol := matcher.Solve(data.Orders, data.Balances, &DefaultFee)

	if d.DryRun {
		d.Logger.Info("dry-run solution computed", "batch", batch, "executions", len(sol.Executions))
		return nil
	}

	txHash, err := d.Submitter.SubmitSolution(ctx, batch, sol)
	if err != nil {
		return fmt.Errorf("submit solution for batch %d: %w", batch, err)
	}

	d.Logger.Info("submitted solution", "batch", batch, "tx", txHash.Hex(), "executions", len(sol.Executions))
	return nil
}
