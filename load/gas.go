package load

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultMaxLoadCount is the empirically derived setArray count that
// keeps a full block of heavy calls under the 60M per-block gas limit of
// the reference network. Carried as a tunable default, not an invariant;
// retune it per target network.
const DefaultMaxLoadCount uint64 = 2650

// GasGuard bounds the heavy workload so a run cannot blow past the
// per-block gas ceiling, and optionally pre-checks a signer's balance
// against the estimated call cost.
type GasGuard struct {
	MaxLoadCount uint64
}

func NewGasGuard(maxLoadCount uint64) *GasGuard {
	if maxLoadCount == 0 {
		maxLoadCount = DefaultMaxLoadCount
	}
	return &GasGuard{MaxLoadCount: maxLoadCount}
}

// CheckLoadCount rejects magnitudes above the ceiling. A rejected
// magnitude must never reach submission.
func (g *GasGuard) CheckLoadCount(requested uint64) error {
	if requested > g.MaxLoadCount {
		return &GasBudgetExceededError{Requested: requested, Max: g.MaxLoadCount}
	}
	return nil
}

// ClampLoadCount caps the magnitude at the ceiling instead of rejecting
// it. Used when the operator explicitly opts into clamping.
func (g *GasGuard) ClampLoadCount(requested uint64) uint64 {
	if requested > g.MaxLoadCount {
		return g.MaxLoadCount
	}
	return requested
}

// CostEstimator estimates the fee of one heavy call from an account.
type CostEstimator interface {
	EstimateLoadCost(ctx context.Context, from common.Address, count uint64) (*big.Int, error)
}

// PreflightBalance verifies the signer can cover the estimated cost of
// its heavy call. A failure concerns that one task only, never the run.
func (g *GasGuard) PreflightBalance(ctx context.Context, estimator CostEstimator, reader BalanceReader, from common.Address, count uint64) error {
	cost, err := estimator.EstimateLoadCost(ctx, from, count)
	if err != nil {
		return err
	}

	balance, err := reader.BalanceAt(ctx, from)
	if err != nil {
		return err
	}

	if balance.Cmp(cost) < 0 {
		return &InsufficientBalanceError{
			Address:  from,
			Required: cost,
			Balance:  balance,
			Deficit:  new(big.Int).Sub(cost, balance),
		}
	}

	return nil
}
