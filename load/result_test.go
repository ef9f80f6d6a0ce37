package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultFailureSummary(t *testing.T) {
	clean := &Result{SucceededTasks: 10, BatchCount: 1}
	assert.Empty(t, clean.FailureSummary())

	failed := &Result{SucceededTasks: 97, FailedTasks: 3, BatchCount: 2}
	assert.Equal(t, "3 of 100 tasks failed across 2 batches", failed.FailureSummary())

	aborted := &Result{SucceededTasks: 9, FailedTasks: 1, BatchCount: 1, Aborted: true}
	assert.Equal(t, "1 of 10 tasks failed across 1 batches (remaining batches were not launched)", aborted.FailureSummary())
}
