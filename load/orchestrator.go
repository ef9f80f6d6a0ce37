package load

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"evm-performance-test/client"
)

// Orchestrator drives the sequential run phases: verify funder balance,
// provision accounts, fund them in one bulk transfer, dispatch the
// workload, report final balances.
type Orchestrator struct {
	config      *LoadConfig
	chain       client.Client
	funder      *Account
	provisioner *Provisioner
	dispatcher  *Dispatcher
	guard       *GasGuard
	logger      hclog.Logger
}

func NewOrchestrator(config *LoadConfig, chain client.Client, provisioner *Provisioner, logger hclog.Logger) (*Orchestrator, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	funder, err := ParseFunderKey(config.FunderPrivateKey)
	if err != nil {
		return nil, err
	}

	if provisioner == nil {
		provisioner = NewProvisioner(nil)
	}

	guard := NewGasGuard(config.MaxLoadCount)

	return &Orchestrator{
		config:      config,
		chain:       chain,
		funder:      funder,
		provisioner: provisioner,
		dispatcher:  NewDispatcher(chain, guard, logger),
		guard:       guard,
		logger:      logger.Named("orchestrator"),
	}, nil
}

func (o *Orchestrator) Load(ctx context.Context) (*Result, error) {
	kind, err := ParseWorkloadKind(o.config.Workload)
	if err != nil {
		return nil, err
	}

	loadCount := o.config.LoadCount
	if o.config.ClampLoad {
		loadCount = o.guard.ClampLoadCount(loadCount)
	}

	startTime := time.Now()
	o.logger.Info("starting load run",
		"workload", kind,
		"accounts", o.config.NumAccounts,
		"funding_amount", o.config.FundingAmount,
	)

	// Step 1: gate on funder sufficiency before anything else.
	o.logger.Info("checking funder balance", "step", 1)
	if _, err := CheckSufficiency(ctx, o.chain, o.funder.Address, o.config.FundingAmount, o.config.NumAccounts, o.logger); err != nil {
		return nil, err
	}

	initialBalance, err := o.chain.BalanceAt(ctx, o.funder.Address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch funder balance")
	}

	// Step 2: provision ephemeral accounts.
	o.logger.Info("provisioning accounts", "step", 2, "count", o.config.NumAccounts)
	accounts, err := o.provisioner.Generate(int(o.config.NumAccounts))
	if err != nil {
		return nil, errors.Wrap(err, "failed to provision accounts")
	}

	for i, account := range accounts {
		if o.config.LogPrivateKeys {
			// Explicitly requested; key material on the log is insecure.
			o.logger.Info("generated account", "index", i, "address", account.Address, "private_key", account.PrivateKeyHex())
		} else {
			o.logger.Debug("generated account", "index", i, "address", account.Address)
		}
	}

	// Step 3: one aggregated bulk transfer funds every account.
	o.logger.Info("funding accounts", "step", 3)
	fundingFee := new(big.Int)
	if len(accounts) > 0 {
		fundingRecord, err := Fund(ctx, o.chain, o.funder, Addresses(accounts), o.config.FundingAmount, o.logger)
		if err != nil {
			return nil, err
		}
		fundingFee = fundingRecord.Fee()
	}

	// Step 4: drive the workload across all accounts.
	o.logger.Info("dispatching workload", "step", 4, "workload", kind)

	var limiter *rate.Limiter
	if o.config.TargetTPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.config.TargetTPS), o.config.TargetTPS)
	}

	report, err := o.dispatcher.Dispatch(ctx, accounts, kind, DispatcherOptions{
		MaxBatchSize:   o.config.MaxBatchSize,
		LoadCount:      loadCount,
		AbortOnFailure: o.config.AbortOnFailure,
		Preflight:      o.config.Preflight,
		Limiter:        limiter,
	})
	if err != nil {
		return nil, err
	}

	// Step 5: final funder balance.
	finalBalance, err := o.chain.BalanceAt(ctx, o.funder.Address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch funder final balance")
	}

	spent := new(big.Int).Sub(initialBalance, finalBalance)
	o.logger.Info("funder final balance",
		"step", 5,
		"balance", WeiToDisplay(finalBalance),
		"spent", fmt.Sprintf("%.18f", WeiToFloat(spent)),
	)

	endTime := time.Now()

	result := &Result{
		StartTime:            &startTime,
		EndTime:              &endTime,
		Workload:             string(kind),
		AccountCount:         o.config.NumAccounts,
		BatchCount:           report.BatchCount,
		SucceededTasks:       report.Succeeded,
		FailedTasks:          report.Failed,
		Aborted:              report.Aborted,
		FundingFee:           WeiToDisplay(fundingFee),
		FunderInitialBalance: WeiToDisplay(initialBalance),
		FunderFinalBalance:   WeiToDisplay(finalBalance),
		FunderSpent:          WeiToDisplay(spent),
		AchievedTps:          achievedTps(len(report.Results), endTime.Sub(startTime)),
	}
	if report.CounterDelta != nil {
		result.CounterDelta = report.CounterDelta.String()
	}

	return result, nil
}

func achievedTps(taskCount int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(taskCount) / elapsed.Seconds()
}
