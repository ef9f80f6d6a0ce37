package load

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"evm-performance-test/client"
)

// WorkloadKind selects the per-account chain operation.
type WorkloadKind string

const (
	WorkloadLight WorkloadKind = "light"
	WorkloadHeavy WorkloadKind = "heavy"
)

func ParseWorkloadKind(s string) (WorkloadKind, error) {
	switch strings.ToLower(s) {
	case string(WorkloadLight):
		return WorkloadLight, nil
	case string(WorkloadHeavy):
		return WorkloadHeavy, nil
	default:
		return "", &ConfigurationError{Field: "workload", Reason: "'" + s + "' is not a valid workload kind"}
	}
}

// DefaultMaxBatchSize caps how many submissions are in flight at once.
// Full fan-out of every task at once overloads the endpoint (observed as
// connection failures), so tasks go out in bounded batches.
const DefaultMaxBatchSize = 100

// TaskResult is the outcome of one account's dispatch task.
type TaskResult struct {
	Address common.Address
	Record  *client.TransactionRecord
	Err     error
}

// DispatchReport aggregates per-task results across all batches.
type DispatchReport struct {
	Results      []TaskResult
	BatchCount   int
	Succeeded    int
	Failed       int
	Aborted      bool
	CounterDelta *big.Int
}

// DispatcherOptions tune one dispatch run.
type DispatcherOptions struct {
	MaxBatchSize int
	// LoadCount is the heavy-call magnitude. Checked against the gas
	// guard's ceiling before any submission.
	LoadCount uint64
	// AbortOnFailure stops launching further batches once a batch has a
	// failed task. Tasks already in flight are never cancelled. Default
	// is to isolate failures and keep going.
	AbortOnFailure bool
	// Preflight enables the per-signer balance check before heavy calls.
	Preflight bool
	// Limiter optionally throttles task launches. Nil means unlimited.
	Limiter *rate.Limiter
}

// Dispatcher drives every account through one chain operation, batch by
// batch. Batches run strictly in sequence; tasks within a batch run
// concurrently, each with its own signer, so no shared nonce state exists
// across tasks.
type Dispatcher struct {
	chain  client.Client
	guard  *GasGuard
	logger hclog.Logger
}

func NewDispatcher(chain client.Client, guard *GasGuard, logger hclog.Logger) *Dispatcher {
	return &Dispatcher{
		chain:  chain,
		guard:  guard,
		logger: logger.Named("dispatcher"),
	}
}

// Dispatch partitions accounts into batches of at most MaxBatchSize and
// runs them. For the light workload the shared counter is read before and
// after the whole run as a coarse sanity check.
func (d *Dispatcher) Dispatch(ctx context.Context, accounts []*Account, kind WorkloadKind, opts DispatcherOptions) (*DispatchReport, error) {
	if opts.MaxBatchSize <= 0 {
		return nil, &ConfigurationError{Field: "max-batch-size", Reason: "must be greater than zero"}
	}

	if kind == WorkloadHeavy {
		// Reject before anything reaches the network.
		if err := d.guard.CheckLoadCount(opts.LoadCount); err != nil {
			return nil, err
		}
	}

	var counterBefore *big.Int
	if kind == WorkloadLight {
		before, err := d.chain.ReadCounter(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read counter before dispatch")
		}
		counterBefore = before
		d.logger.Info("counter before dispatch", "value", counterBefore)
	}

	batches := partition(accounts, opts.MaxBatchSize)
	report := &DispatchReport{
		Results:    make([]TaskResult, 0, len(accounts)),
		BatchCount: len(batches),
	}

	d.logger.Info("starting dispatch",
		"workload", kind,
		"accounts", len(accounts),
		"batches", len(batches),
		"max_batch_size", opts.MaxBatchSize,
	)

	for i, batch := range batches {
		results := d.runBatch(ctx, batch, kind, opts)

		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				d.logger.Error("task failed", "batch", i+1, "account", res.Address, "error", res.Err)
			}
		}

		report.Results = append(report.Results, results...)
		report.Succeeded += len(results) - failed
		report.Failed += failed

		d.logger.Info("batch complete",
			"batch", i+1,
			"of", len(batches),
			"size", len(batch),
			"succeeded", len(results)-failed,
			"failed", failed,
		)

		if failed > 0 && opts.AbortOnFailure && i+1 < len(batches) {
			d.logger.Warn("aborting remaining batches", "remaining", len(batches)-i-1)
			report.Aborted = true
			break
		}
	}

	if kind == WorkloadLight {
		after, err := d.chain.ReadCounter(ctx)
		if err != nil {
			return report, errors.Wrap(err, "failed to read counter after dispatch")
		}
		report.CounterDelta = new(big.Int).Sub(after, counterBefore)
		d.logger.Info("counter after dispatch",
			"value", after,
			"calls", len(report.Results),
			"observed_increments", report.CounterDelta,
		)
	}

	return report, nil
}

// runBatch launches one task per account and waits for the whole batch.
// A failing task never cancels its siblings; every outcome is collected.
func (d *Dispatcher) runBatch(ctx context.Context, batch []*Account, kind WorkloadKind, opts DispatcherOptions) []TaskResult {
	resCh := make(chan TaskResult, len(batch))

	wg := sync.WaitGroup{}
	for _, account := range batch {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				resCh <- TaskResult{Address: account.Address, Err: err}
				continue
			}
		}

		wg.Add(1)
		go func(account *Account) {
			defer wg.Done()

			record, err := d.runTask(ctx, account, kind, opts)
			resCh <- TaskResult{Address: account.Address, Record: record, Err: err}
		}(account)
	}

	wg.Wait()
	close(resCh)

	results := make([]TaskResult, 0, len(batch))
	for res := range resCh {
		results = append(results, res)
	}

	return results
}

func (d *Dispatcher) runTask(ctx context.Context, account *Account, kind WorkloadKind, opts DispatcherOptions) (*client.TransactionRecord, error) {
	switch kind {
	case WorkloadLight:
		record, err := d.chain.IncrementCounter(ctx, account.PrivateKey)
		if err != nil {
			return nil, err
		}
		d.logTaskRecord("increment", record)
		return record, nil

	case WorkloadHeavy:
		if opts.Preflight {
			if err := d.guard.PreflightBalance(ctx, d.chain, d.chain, account.Address, opts.LoadCount); err != nil {
				return nil, err
			}
		}

		record, err := d.chain.SetLoadArray(ctx, account.PrivateKey, opts.LoadCount)
		if err != nil {
			return nil, err
		}
		d.logTaskRecord("setArray", record)
		return record, nil

	default:
		return nil, &ConfigurationError{Field: "workload", Reason: "unknown workload kind"}
	}
}

func (d *Dispatcher) logTaskRecord(op string, record *client.TransactionRecord) {
	d.logger.Debug("task confirmed",
		"op", op,
		"sender", record.Sender,
		"fee", WeiToDisplay(record.Fee()),
		"hash", record.Hash,
		"index", record.TransactionIndex,
		"block", record.BlockNumber,
	)
}

// partition splits accounts into contiguous slices of at most size
// elements. Concatenating the result in order yields the input.
func partition(accounts []*Account, size int) [][]*Account {
	if len(accounts) == 0 {
		return nil
	}

	batches := make([][]*Account, 0, (len(accounts)+size-1)/size)
	for start := 0; start < len(accounts); start += size {
		end := start + size
		if end > len(accounts) {
			end = len(accounts)
		}
		batches = append(batches, accounts[start:end])
	}

	return batches
}
