package load

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ErrArithmeticOverflow is returned when funding_amount * num_accounts
// does not fit in 64 bits. It must never wrap silently.
var ErrArithmeticOverflow = errors.New("funding amount multiplication overflows uint64")

// ConfigurationError reports a missing or invalid configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// InsufficientBalanceError reports an account that cannot cover a required
// amount. Deficit is always Required - Balance.
type InsufficientBalanceError struct {
	Address  common.Address
	Required *big.Int
	Balance  *big.Int
	Deficit  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("account %s has insufficient balance: required %s wei, have %s wei, short by %s wei",
		e.Address, e.Required, e.Balance, e.Deficit)
}

// GasBudgetExceededError reports a heavy workload magnitude above the
// per-block ceiling. Such a task must never reach submission.
type GasBudgetExceededError struct {
	Requested uint64
	Max       uint64
}

func (e *GasBudgetExceededError) Error() string {
	return fmt.Sprintf("load count %d exceeds the per-block ceiling %d", e.Requested, e.Max)
}
