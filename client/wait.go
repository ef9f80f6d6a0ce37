package client

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const (
	DefaultPollInterval   = time.Second
	DefaultReceiptTimeout = 2 * time.Minute
)

// ErrTimeoutReached is returned, wrapped in a TransactionFailure, when a
// submitted transaction's receipt does not arrive before the deadline.
// This is the system's one timeout.
var ErrTimeoutReached = errors.New("timeout has been reached")

// receiptFetcher is the slice of the ethereum client the receipt wait
// needs.
type receiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// waitReceipt polls for the transaction receipt until it is available or
// the deadline expires.
func waitReceipt(ctx context.Context, fetcher receiptFetcher, hash common.Hash, interval, deadline time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		receipt, err := fetcher.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			// the deadline can also surface as a context error from the
			// fetch itself
			if ctx.Err() != nil {
				return nil, timeoutFailure(hash)
			}
			return nil, &TransactionFailure{Hash: hash, Reason: err.Error()}
		}

		select {
		case <-ctx.Done():
			return nil, timeoutFailure(hash)
		case <-tick.C:
		}
	}
}

func timeoutFailure(hash common.Hash) *TransactionFailure {
	return &TransactionFailure{
		Hash:   hash,
		Reason: "timed out waiting for receipt",
		Err:    ErrTimeoutReached,
	}
}
