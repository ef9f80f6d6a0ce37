package load

import (
	"fmt"
	"time"
)

type Result struct {
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	Workload             string     `json:"workload"`
	AccountCount         uint64     `json:"account_count"`
	BatchCount           int        `json:"batch_count"`
	SucceededTasks       int        `json:"succeeded_task_count"`
	FailedTasks          int        `json:"failed_task_count"`
	Aborted              bool       `json:"aborted"`
	CounterDelta         string     `json:"counter_delta,omitempty"`
	FundingFee           string     `json:"funding_fee"`
	FunderInitialBalance string     `json:"funder_initial_balance"`
	FunderFinalBalance   string     `json:"funder_final_balance"`
	FunderSpent          string     `json:"funder_spent"`
	AchievedTps          float64    `json:"achieved_tps"`
}

// FailureSummary describes isolated task failures after a run that
// otherwise completed. Empty when every task succeeded.
func (r *Result) FailureSummary() string {
	if r.FailedTasks == 0 {
		return ""
	}

	total := r.SucceededTasks + r.FailedTasks
	summary := fmt.Sprintf("%d of %d tasks failed across %d batches", r.FailedTasks, total, r.BatchCount)
	if r.Aborted {
		summary += " (remaining batches were not launched)"
	}
	return summary
}
