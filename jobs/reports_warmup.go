package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-retail/meridian/internal/jobs"
	"github.com/meridian-retail/meridian/internal/reports"
)

const warmupDefaultWindowDays = 30

// ReportsWarmupJob pre-populates report caches for active shops so the
// first dashboard load after a cache purge stays fast.
type ReportsWarmupJob struct {
	Reports *reports.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reportsSvc *reports.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{Reports: reportsSvc, Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes reports:warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = warmupDefaultWindowDays
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("window_days", payload.WindowDays))
	logger.Info("starting reports warmup")

	shopIDs := payload.ShopIDs
	if len(shopIDs) == 0 {
		var err error
		shopIDs, err = j.activeShops(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load active shops", slog.Any("error", err))
			return resultErr
		}
	}
	if len(shopIDs) == 0 {
		logger.Info("no active shops to warm")
		return resultErr
	}

	start := time.Now()
	warmed := 0
	for _, shopID := range shopIDs {
		// Tighten each shop to a timeout so one slow tenant cannot stall
		// the whole run.
		shopCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		count, err := j.Reports.WarmShop(shopCtx, shopID, payload.WindowDays)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm shop", slog.Int64("shop_id", shopID), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddWarmups("dashboard", count)
		warmed++
	}

	logger.Info("completed reports warmup", slog.Int("shops", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportsWarmupJob) activeShops(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("reports warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM shops WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
