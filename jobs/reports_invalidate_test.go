package jobs

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/reports"
)

func newInvalidateFixture(t *testing.T) (*ReportsInvalidateJob, *reports.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := reports.NewCache(client, time.Minute)
	return NewReportsInvalidateJob(cache, nil, nil), cache, mr
}

func seedCachedReport(t *testing.T, cache *reports.Cache, key string, tags []string) {
	t.Helper()
	var out reports.SalesSummary
	require.NoError(t, cache.FetchJSON(context.Background(), key, tags, &out, func(ctx context.Context) (interface{}, error) {
		return reports.SalesSummary{TotalAmount: 100}, nil
	}))
}

func TestReportsInvalidateHandlePurgesTaggedEntries(t *testing.T) {
	job, cache, mr := newInvalidateFixture(t)

	seedCachedReport(t, cache, "reports:sales:1", []string{reports.TagSales, reports.TagAll})
	seedCachedReport(t, cache, "reports:cash:1", []string{reports.TagCash, reports.TagAll})

	task, err := NewReportsInvalidateTask(ReportsInvalidatePayload{Tags: []string{reports.TagSales}})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.False(t, mr.Exists("reports:sales:1"))
	assert.True(t, mr.Exists("reports:cash:1"), "untagged entries survive")
}

func TestReportsInvalidateEmptyTagsDefaultsToUmbrella(t *testing.T) {
	job, cache, mr := newInvalidateFixture(t)

	seedCachedReport(t, cache, "reports:sales:1", []string{reports.TagSales, reports.TagAll})
	seedCachedReport(t, cache, "reports:cash:1", []string{reports.TagCash, reports.TagAll})

	task, err := NewReportsInvalidateTask(ReportsInvalidatePayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.False(t, mr.Exists("reports:sales:1"))
	assert.False(t, mr.Exists("reports:cash:1"))
}

func TestReportsInvalidateMalformedPayloadSkipsRetry(t *testing.T) {
	job, _, _ := newInvalidateFixture(t)

	task := asynq.NewTask(TaskReportsInvalidate, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
