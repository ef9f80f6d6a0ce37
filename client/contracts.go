package client

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Fixed call surface of the three externally deployed contracts. The
// signatures are not ours to change.
const (
	counterABIJSON = `[
		{"inputs":[],"name":"number","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"increment","outputs":[],"stateMutability":"nonpayable","type":"function"}
	]`

	loadABIJSON = `[
		{"inputs":[{"internalType":"uint256","name":"count","type":"uint256"}],"name":"setArray","outputs":[],"stateMutability":"nonpayable","type":"function"}
	]`

	fundABIJSON = `[
		{"inputs":[{"internalType":"address[]","name":"recipients","type":"address[]"}],"name":"transferToMany","outputs":[],"stateMutability":"payable","type":"function"}
	]`
)

var (
	counterABI = mustParseABI(counterABIJSON)
	loadABI    = mustParseABI(loadABIJSON)
	fundABI    = mustParseABI(fundABIJSON)
)

func mustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}

func packCounterNumber() []byte {
	data, err := counterABI.Pack("number")
	if err != nil {
		panic(err)
	}
	return data
}

func unpackCounterNumber(out []byte) (*big.Int, error) {
	values, err := counterABI.Unpack("number", out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack counter number")
	}

	number, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.New("counter number is not a uint256")
	}

	return number, nil
}

func packCounterIncrement() []byte {
	data, err := counterABI.Pack("increment")
	if err != nil {
		panic(err)
	}
	return data
}

func packLoadSetArray(count uint64) []byte {
	data, err := loadABI.Pack("setArray", new(big.Int).SetUint64(count))
	if err != nil {
		panic(err)
	}
	return data
}

func packFundTransferToMany(recipients []common.Address) ([]byte, error) {
	data, err := fundABI.Pack("transferToMany", recipients)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack transferToMany recipients")
	}
	return data, nil
}
