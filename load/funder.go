package load

import (
	"context"
	"math/big"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"evm-performance-test/client"
)

// BalanceReader is the narrow slice of the chain client the verifier
// needs.
type BalanceReader interface {
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
}

// RequiredFunding computes fundingAmount * numAccounts with 64-bit
// overflow detection.
func RequiredFunding(fundingAmount, numAccounts uint64) (*big.Int, error) {
	hi, lo := bits.Mul64(fundingAmount, numAccounts)
	if hi != 0 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).SetUint64(lo), nil
}

// CheckSufficiency verifies the funder can cover the aggregate funding
// amount and returns the required total in wei. The comparison is strict:
// a balance exactly equal to the requirement is insufficient, because the
// funder still has to pay for its own gas.
func CheckSufficiency(ctx context.Context, reader BalanceReader, funder common.Address, fundingAmount, numAccounts uint64, logger hclog.Logger) (*big.Int, error) {
	required, err := RequiredFunding(fundingAmount, numAccounts)
	if err != nil {
		return nil, err
	}

	balance, err := reader.BalanceAt(ctx, funder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch funder balance")
	}

	logger.Info("funder initial balance", "address", funder, "balance", WeiToDisplay(balance))

	if balance.Cmp(required) <= 0 {
		return nil, &InsufficientBalanceError{
			Address:  funder,
			Required: required,
			Balance:  balance,
			Deficit:  new(big.Int).Sub(required, balance),
		}
	}

	return required, nil
}

// Fund performs the single aggregated bulk transfer seeding every
// recipient with fundingAmount wei. There is no partial funding and no
// retry; a failure here aborts the run before any workload dispatch.
func Fund(ctx context.Context, chain client.Client, funder *Account, recipients []common.Address, fundingAmount uint64, logger hclog.Logger) (*client.TransactionRecord, error) {
	totalValue, err := RequiredFunding(fundingAmount, uint64(len(recipients)))
	if err != nil {
		return nil, err
	}

	record, err := chain.FundMany(ctx, funder.PrivateKey, recipients, totalValue)
	if err != nil {
		return nil, errors.Wrapf(err, "bulk funding of %d accounts failed", len(recipients))
	}

	logger.Info("bulk funding confirmed",
		"sender", record.Sender,
		"recipients", len(recipients),
		"amount_each", fundingAmount,
		"fee", WeiToDisplay(record.Fee()),
		"hash", record.Hash,
		"index", record.TransactionIndex,
		"block", record.BlockNumber,
	)

	return record, nil
}
