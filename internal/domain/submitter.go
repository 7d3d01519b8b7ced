package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablex/driver/pkg/types"
)

// Submitter is the external collaborator named in §6(c): the solution
// handoff point. The matcher and scheduler never know how a solution
// reaches the chain.
type Submitter interface {
	SubmitSolution(ctx context.Context, batch types.BatchIndex, sol types.Solution) (common.Hash, error)
}
