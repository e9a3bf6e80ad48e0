// Package jobs defines the background task surface: report cache
// invalidation triggered by transactional writes, and scheduled cache
// warmup for active shops.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsInvalidate purges report caches for the given tags.
	TaskReportsInvalidate = "reports:invalidate"
	// TaskReportsWarmup pre-populates report caches for active shops.
	TaskReportsWarmup = "reports:warmup"
)

// ReportsInvalidatePayload names the cache tags to purge. An empty list
// defaults to the umbrella tag.
type ReportsInvalidatePayload struct {
	Tags []string `json:"tags"`
}

// NewReportsInvalidateTask constructs an invalidation task.
func NewReportsInvalidateTask(payload ReportsInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsInvalidate, data), nil
}

// ReportsWarmupPayload scopes a warmup run. An empty ShopIDs warms every
// active shop; a zero WindowDays falls back to the warmup default.
type ReportsWarmupPayload struct {
	ShopIDs    []int64 `json:"shop_ids"`
	WindowDays int     `json:"window_days"`
}

// NewReportsWarmupTask constructs a warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
