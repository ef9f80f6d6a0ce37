package load

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxNumAccounts bounds a run's account count so it always fits the
// int-sized slice arithmetic downstream.
const MaxNumAccounts = math.MaxInt32

// LoadConfig is the full run configuration. Populated by the CLI layer
// (flags, environment, optional config file); the core only validates and
// consumes it.
type LoadConfig struct {
	RPCURL           string `json:"rpc_url" mapstructure:"rpc-url"`
	FunderPrivateKey string `json:"-" mapstructure:"funder-private-key"`

	// FundingAmount is the per-account seed amount in wei (base units).
	FundingAmount uint64 `json:"funding_amount" mapstructure:"funding-amount"`
	NumAccounts   uint64 `json:"num_accounts" mapstructure:"num-accounts"`

	Workload     string `json:"workload" mapstructure:"workload"`
	MaxBatchSize int    `json:"max_batch_size" mapstructure:"max-batch-size"`

	// LoadCount is the heavy-call magnitude; MaxLoadCount is the
	// per-block ceiling it is checked against.
	LoadCount    uint64 `json:"load_count" mapstructure:"load-count"`
	MaxLoadCount uint64 `json:"max_load_count" mapstructure:"max-load-count"`
	// ClampLoad caps LoadCount at the ceiling instead of failing.
	ClampLoad bool `json:"clamp_load" mapstructure:"clamp-load"`
	// Preflight enables the per-signer balance check before heavy calls.
	Preflight bool `json:"preflight" mapstructure:"preflight"`

	CounterAddress string `json:"counter_address" mapstructure:"counter-address"`
	LoadAddress    string `json:"load_address" mapstructure:"load-address"`
	FundAddress    string `json:"fund_address" mapstructure:"fund-address"`

	AbortOnFailure bool `json:"abort_on_failure" mapstructure:"abort-on-failure"`
	// TargetTPS throttles task launches; 0 means unlimited.
	TargetTPS int `json:"target_tps" mapstructure:"target-tps"`

	// LogPrivateKeys echoes generated key material to the log. Insecure;
	// off unless explicitly requested.
	LogPrivateKeys bool `json:"log_private_keys" mapstructure:"log-private-keys"`

	ReceiptTimeout time.Duration `json:"receipt_timeout" mapstructure:"receipt-timeout"`
}

func (c *LoadConfig) ApplyDefaults() {
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.MaxLoadCount == 0 {
		c.MaxLoadCount = DefaultMaxLoadCount
	}
	if c.LoadCount == 0 {
		c.LoadCount = c.MaxLoadCount
	}
}

func (c *LoadConfig) Validate() error {
	if c.RPCURL == "" {
		return &ConfigurationError{Field: "rpc-url", Reason: "must not be empty"}
	}
	if c.FunderPrivateKey == "" {
		return &ConfigurationError{Field: "funder-private-key", Reason: "must not be empty"}
	}
	if c.FundingAmount == 0 {
		return &ConfigurationError{Field: "funding-amount", Reason: "must be greater than zero"}
	}
	if c.NumAccounts > MaxNumAccounts {
		return &ConfigurationError{Field: "num-accounts", Reason: "must not exceed 2147483647"}
	}
	if c.MaxBatchSize <= 0 {
		return &ConfigurationError{Field: "max-batch-size", Reason: "must be greater than zero"}
	}

	if _, err := ParseWorkloadKind(c.Workload); err != nil {
		return err
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"counter-address", c.CounterAddress},
		{"load-address", c.LoadAddress},
		{"fund-address", c.FundAddress},
	} {
		if !common.IsHexAddress(field.value) {
			return &ConfigurationError{Field: field.name, Reason: "'" + field.value + "' is not a valid address"}
		}
	}

	return nil
}
