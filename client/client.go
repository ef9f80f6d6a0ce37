package client

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

var _ Client = (*EthClient)(nil)

// Client is the chain surface the load package drives. Every method that
// submits a transaction waits for its receipt and returns the resulting
// record.
type Client interface {
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	ReadCounter(ctx context.Context) (*big.Int, error)
	IncrementCounter(ctx context.Context, key *ecdsa.PrivateKey) (*TransactionRecord, error)
	SetLoadArray(ctx context.Context, key *ecdsa.PrivateKey, count uint64) (*TransactionRecord, error)
	FundMany(ctx context.Context, key *ecdsa.PrivateKey, recipients []common.Address, totalValue *big.Int) (*TransactionRecord, error)
	EstimateLoadCost(ctx context.Context, from common.Address, count uint64) (*big.Int, error)
}

type Config struct {
	RPCURL         string
	CounterAddress common.Address
	LoadAddress    common.Address
	FundAddress    common.Address
	ReceiptTimeout time.Duration
}

// EthClient wraps the go-ethereum client with the contract call surface
// used by the load test. It is safe for concurrent use; all methods treat
// the underlying connection as read-only shared state.
type EthClient struct {
	eth            *ethclient.Client
	rpcClient      *rpc.Client
	chainID        *big.Int
	signer         types.Signer
	counterAddress common.Address
	loadAddress    common.Address
	fundAddress    common.Address
	receiptTimeout time.Duration
	logger         hclog.Logger
}

// createPooledHTTPClient returns an HTTP client tuned for many concurrent
// RPC calls against a single host.
func createPooledHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        300,
		MaxIdleConnsPerHost: 300,
		MaxConnsPerHost:     300,
		IdleConnTimeout:     30 * time.Second,
		DisableKeepAlives:   false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

func NewEthClient(ctx context.Context, config *Config, logger hclog.Logger) (*EthClient, error) {
	rpcClient, err := rpc.DialOptions(ctx, config.RPCURL, rpc.WithHTTPClient(createPooledHTTPClient()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial RPC endpoint %s", config.RPCURL)
	}

	eth := ethclient.NewClient(rpcClient)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch chain id")
	}

	receiptTimeout := config.ReceiptTimeout
	if receiptTimeout == 0 {
		receiptTimeout = DefaultReceiptTimeout
	}

	return &EthClient{
		eth:            eth,
		rpcClient:      rpcClient,
		chainID:        chainID,
		signer:         types.NewLondonSigner(chainID),
		counterAddress: config.CounterAddress,
		loadAddress:    config.LoadAddress,
		fundAddress:    config.FundAddress,
		receiptTimeout: receiptTimeout,
		logger:         logger.Named("client"),
	}, nil
}

func (c *EthClient) ChainID() *big.Int {
	return c.chainID
}

// BalanceAt fetches the balance at the latest observed block.
func (c *EthClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch balance of %s", addr)
	}
	return balance, nil
}

// ReadCounter reads the shared counter value. Gasless call, no signer.
func (c *EthClient) ReadCounter(ctx context.Context) (*big.Int, error) {
	data := packCounterNumber()

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.counterAddress,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "counter number call failed")
	}

	return unpackCounterNumber(out)
}

// IncrementCounter submits one increment() call signed by key and waits
// for its receipt.
func (c *EthClient) IncrementCounter(ctx context.Context, key *ecdsa.PrivateKey) (*TransactionRecord, error) {
	return c.submitContractCall(ctx, key, c.counterAddress, nil, packCounterIncrement())
}

// SetLoadArray submits one setArray(count) call signed by key and waits
// for its receipt.
func (c *EthClient) SetLoadArray(ctx context.Context, key *ecdsa.PrivateKey, count uint64) (*TransactionRecord, error) {
	return c.submitContractCall(ctx, key, c.loadAddress, nil, packLoadSetArray(count))
}

// FundMany submits one transferToMany(recipients) call carrying totalValue
// and waits for its receipt. The whole value is attached to this single
// transaction; the contract splits it equally among the recipients.
func (c *EthClient) FundMany(ctx context.Context, key *ecdsa.PrivateKey, recipients []common.Address, totalValue *big.Int) (*TransactionRecord, error) {
	data, err := packFundTransferToMany(recipients)
	if err != nil {
		return nil, err
	}
	return c.submitContractCall(ctx, key, c.fundAddress, totalValue, data)
}

// EstimateLoadCost estimates the fee of a setArray(count) call from the
// given account: estimated gas times the current suggested gas price.
func (c *EthClient) EstimateLoadCost(ctx context.Context, from common.Address, count uint64) (*big.Int, error) {
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.loadAddress,
		Data: packLoadSetArray(count),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate setArray gas")
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch gas price")
	}

	return new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas)), nil
}

// submitContractCall builds, signs, submits one contract call and waits
// for its confirmation.
func (c *EthClient) submitContractCall(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte) (*TransactionRecord, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch nonce of %s", from)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch gas price")
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to estimate gas for call from %s", from)
	}
	// headroom against estimation drift between estimate and inclusion
	gas += gas / 5

	unsignedTx := types.NewTransaction(nonce, to, value, gas, gasPrice, data)

	signedTx, err := types.SignTx(unsignedTx, c.signer, key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, &TransactionFailure{Hash: signedTx.Hash(), Reason: err.Error()}
	}

	c.logger.Debug("transaction submitted", "from", from, "to", to, "nonce", nonce, "hash", signedTx.Hash())

	receipt, err := waitReceipt(ctx, c.eth, signedTx.Hash(), DefaultPollInterval, c.receiptTimeout)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &TransactionFailure{
			Hash:   signedTx.Hash(),
			Reason: "receipt status is failed",
		}
	}

	return newTransactionRecord(from, to, receipt), nil
}
