package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type fakeReceiptFetcher struct {
	pending int // NotFound responses before the receipt appears
	calls   int
	receipt *types.Receipt
	err     error
}

func (f *fakeReceiptFetcher) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.pending {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func TestWaitReceiptPollsUntilAvailable(t *testing.T) {
	hash := common.HexToHash("0x01")
	fetcher := &fakeReceiptFetcher{
		pending: 3,
		receipt: &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful},
	}

	receipt, err := waitReceipt(context.Background(), fetcher, hash, time.Millisecond, time.Second)
	require.NoError(t, err)
	require.Equal(t, hash, receipt.TxHash)
	require.Equal(t, 4, fetcher.calls)
}

func TestWaitReceiptTimeout(t *testing.T) {
	hash := common.HexToHash("0x02")
	fetcher := &fakeReceiptFetcher{pending: 1 << 30}

	_, err := waitReceipt(context.Background(), fetcher, hash, time.Millisecond, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeoutReached)

	var failure *TransactionFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, hash, failure.Hash)
}

func TestWaitReceiptFetchError(t *testing.T) {
	hash := common.HexToHash("0x03")
	fetcher := &fakeReceiptFetcher{err: errors.New("connection refused")}

	_, err := waitReceipt(context.Background(), fetcher, hash, time.Millisecond, time.Second)
	require.NotErrorIs(t, err, ErrTimeoutReached)

	var failure *TransactionFailure
	require.ErrorAs(t, err, &failure)
	require.Contains(t, failure.Reason, "connection refused")
	require.Equal(t, 1, fetcher.calls)
}
