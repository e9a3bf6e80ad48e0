package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-retail/meridian/internal/jobs"
	"github.com/meridian-retail/meridian/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportsInvalidateJob purges report caches after transactional writes.
type ReportsInvalidateJob struct {
	Cache   *reports.Cache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportsInvalidateJob wires dependencies for the invalidation handler.
func NewReportsInvalidateJob(cache *reports.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsInvalidateJob {
	return &ReportsInvalidateJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes reports:invalidate tasks.
func (j *ReportsInvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("reports invalidate: handler not configured")
	}
	var payload ReportsInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.Tags) == 0 {
		payload.Tags = []string{reports.TagAll}
	}

	tracker := j.metrics().Track(TaskReportsInvalidate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	for _, tag := range payload.Tags {
		dropped, err := j.Cache.InvalidateTags(ctx, tag)
		if err != nil {
			resultErr = err
			logger.Error("invalidate tag", slog.String("tag", tag), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddInvalidations(tag, dropped)
		logger.Info("invalidated tag", slog.String("tag", tag), slog.Int("entries", dropped))
	}
	return resultErr
}

func (j *ReportsInvalidateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsInvalidate))
	}
	return slog.Default().With(slog.String("job", TaskReportsInvalidate))
}

func (j *ReportsInvalidateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
