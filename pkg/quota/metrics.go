package quota

import "time"

// Metrics defines the interface for tracking governor activity.
type Metrics interface {
	// RecordCheck records an admission check and its outcome.
	RecordCheck(allowed bool, costPU int)

	// RecordCommit records a committed operation and its resolved cost.
	RecordCommit(operation string, costPU int)

	// RecordRollover records a calendar-month reset.
	RecordRollover(month string)

	// RecordStoreOperation records the duration and status of a store
	// load or save.
	RecordStoreOperation(operation string, duration time.Duration, err error)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordCheck(allowed bool, costPU int)                                  {}
func (n *NoopMetrics) RecordCommit(operation string, costPU int)                             {}
func (n *NoopMetrics) RecordRollover(month string)                                           {}
func (n *NoopMetrics) RecordStoreOperation(operation string, duration time.Duration, err error) {}
