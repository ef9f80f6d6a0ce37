package load

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"evm-performance-test/client"
)

// fakeChain is an in-memory client.Client. It tracks balances, the shared
// counter, submission order and the number of concurrently running
// submissions so tests can assert the dispatcher's concurrency bound.
type fakeChain struct {
	mu sync.Mutex

	balances map[common.Address]*big.Int
	counter  *big.Int

	txFee    *big.Int
	loadCost *big.Int

	failFor map[common.Address]error

	fundCalls   []fundCall
	submitted   []common.Address
	inFlight    int
	maxInFlight int

	nextBlock uint64
}

type fundCall struct {
	Sender     common.Address
	Recipients []common.Address
	TotalValue *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances: make(map[common.Address]*big.Int),
		counter:  new(big.Int),
		txFee:    big.NewInt(21),
		loadCost: big.NewInt(10),
		failFor:  make(map[common.Address]error),
	}
}

func (f *fakeChain) setBalance(addr common.Address, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = big.NewInt(amount)
}

func (f *fakeChain) balanceOf(addr common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if balance, ok := f.balances[addr]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

func (f *fakeChain) BalanceAt(_ context.Context, addr common.Address) (*big.Int, error) {
	return f.balanceOf(addr), nil
}

func (f *fakeChain) ReadCounter(_ context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.counter), nil
}

func (f *fakeChain) IncrementCounter(_ context.Context, key *ecdsa.PrivateKey) (*client.TransactionRecord, error) {
	sender := ethcrypto.PubkeyToAddress(key.PublicKey)

	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failFor[sender]; ok {
		return nil, err
	}

	f.counter.Add(f.counter, big.NewInt(1))
	f.submitted = append(f.submitted, sender)
	return f.record(sender), nil
}

func (f *fakeChain) SetLoadArray(_ context.Context, key *ecdsa.PrivateKey, count uint64) (*client.TransactionRecord, error) {
	sender := ethcrypto.PubkeyToAddress(key.PublicKey)

	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failFor[sender]; ok {
		return nil, err
	}

	f.submitted = append(f.submitted, sender)
	return f.record(sender), nil
}

func (f *fakeChain) FundMany(_ context.Context, key *ecdsa.PrivateKey, recipients []common.Address, totalValue *big.Int) (*client.TransactionRecord, error) {
	sender := ethcrypto.PubkeyToAddress(key.PublicKey)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failFor[sender]; ok {
		return nil, err
	}

	f.fundCalls = append(f.fundCalls, fundCall{
		Sender:     sender,
		Recipients: recipients,
		TotalValue: new(big.Int).Set(totalValue),
	})

	balance, ok := f.balances[sender]
	if !ok {
		balance = new(big.Int)
	}
	balance = new(big.Int).Sub(balance, totalValue)
	balance.Sub(balance, f.txFee)
	f.balances[sender] = balance

	amountEach := new(big.Int).Quo(totalValue, big.NewInt(int64(len(recipients))))
	for _, recipient := range recipients {
		current, ok := f.balances[recipient]
		if !ok {
			current = new(big.Int)
		}
		f.balances[recipient] = new(big.Int).Add(current, amountEach)
	}

	return f.record(sender), nil
}

func (f *fakeChain) EstimateLoadCost(_ context.Context, _ common.Address, _ uint64) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.loadCost), nil
}

func (f *fakeChain) record(sender common.Address) *client.TransactionRecord {
	f.nextBlock++
	return &client.TransactionRecord{
		Sender:            sender,
		GasUsed:           f.txFee.Uint64(),
		EffectiveGasPrice: big.NewInt(1),
		Hash:              common.BigToHash(new(big.Int).SetUint64(f.nextBlock)),
		BlockNumber:       new(big.Int).SetUint64(f.nextBlock),
	}
}

func (f *fakeChain) enter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
}

func (f *fakeChain) leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
}

var _ client.Client = (*fakeChain)(nil)

func mustGenerate(n int) []*Account {
	accounts, err := NewProvisioner(nil).Generate(n)
	if err != nil {
		panic(err)
	}
	return accounts
}
