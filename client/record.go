package client

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TransactionRecord captures the confirmation data of one submitted
// transaction. It exists only for reporting and is not persisted.
type TransactionRecord struct {
	Sender            common.Address
	Contract          common.Address
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Hash              common.Hash
	BlockNumber       *big.Int
	TransactionIndex  uint
}

func newTransactionRecord(sender, contract common.Address, receipt *types.Receipt) *TransactionRecord {
	return &TransactionRecord{
		Sender:            sender,
		Contract:          contract,
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
		Hash:              receipt.TxHash,
		BlockNumber:       receipt.BlockNumber,
		TransactionIndex:  receipt.TransactionIndex,
	}
}

// Fee is the realized cost in wei: effective gas price times gas used.
func (r *TransactionRecord) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(r.EffectiveGasPrice, new(big.Int).SetUint64(r.GasUsed))
}

// TransactionFailure reports a transaction the chain rejected or whose
// receipt came back failed or never arrived in time.
type TransactionFailure struct {
	Hash   common.Hash
	Reason string
	Err    error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Hash, e.Reason)
}

func (e *TransactionFailure) Unwrap() error { return e.Err }
