package load

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGasGuardDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxLoadCount, NewGasGuard(0).MaxLoadCount)
	assert.Equal(t, uint64(500), NewGasGuard(500).MaxLoadCount)
}

func TestCheckLoadCount(t *testing.T) {
	guard := NewGasGuard(2650)

	assert.NoError(t, guard.CheckLoadCount(0))
	assert.NoError(t, guard.CheckLoadCount(2650))

	err := guard.CheckLoadCount(2651)
	var gasErr *GasBudgetExceededError
	require.ErrorAs(t, err, &gasErr)
	assert.Equal(t, uint64(2651), gasErr.Requested)
	assert.Equal(t, uint64(2650), gasErr.Max)
}

func TestClampLoadCount(t *testing.T) {
	guard := NewGasGuard(2650)

	assert.Equal(t, uint64(100), guard.ClampLoadCount(100))
	assert.Equal(t, uint64(2650), guard.ClampLoadCount(2650))
	assert.Equal(t, uint64(2650), guard.ClampLoadCount(1000000))
}

func TestPreflightBalance(t *testing.T) {
	chain := newFakeChain()
	guard := NewGasGuard(2650)
	account := mustGenerate(1)[0]

	// loadCost is 10 in the fake; 9 is short by 1
	chain.setBalance(account.Address, 9)

	err := guard.PreflightBalance(context.Background(), chain, chain, account.Address, 100)
	var insufficientErr *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "1", insufficientErr.Deficit.String())

	chain.setBalance(account.Address, 10)
	assert.NoError(t, guard.PreflightBalance(context.Background(), chain, chain, account.Address, 100))
}
