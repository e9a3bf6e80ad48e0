package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/shared"
)

func TestProfitSummaryComposition(t *testing.T) {
	repo := &mockRepo{
		salesTotals:   SumCount{Total: 500, Count: 2},
		expenseTotals: SumCount{Total: 150, Count: 3},
		cogsTotal:     100,
		businessType:  BusinessRetail,
	}
	svc := newTestService(t, repo)

	out, err := svc.ProfitSummary(callerContext(shared.PermReportsViewProfit), 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)

	assert.Equal(t, 500.0, out.SalesTotal)
	assert.Equal(t, 100.0, out.COGS)
	assert.Equal(t, 250.0, out.ExpenseTotal, "expense total includes cogs")
	assert.Equal(t, 250.0, out.Profit)
	assert.Equal(t, out.SalesTotal-out.ExpenseTotal, out.Profit)
}

func TestProfitSummarySkipsCOGSForIneligibleShops(t *testing.T) {
	repo := &mockRepo{
		salesTotals:   SumCount{Total: 500, Count: 2},
		expenseTotals: SumCount{Total: 150, Count: 3},
		cogsTotal:     100,
		businessType:  BusinessRental,
	}
	svc := newTestService(t, repo)

	out, err := svc.ProfitSummary(callerContext(shared.PermReportsViewProfit), 1, "", "")
	require.NoError(t, err)

	assert.Zero(t, out.COGS)
	assert.Equal(t, 150.0, out.ExpenseTotal)
	assert.Equal(t, 350.0, out.Profit)
	assert.Zero(t, repo.cogsCalls)
}

func TestProfitSummaryUnknownShopTreatedAsNoCOGS(t *testing.T) {
	repo := &mockRepo{
		salesTotals:     SumCount{Total: 100, Count: 1},
		businessTypeErr: shared.ErrNotFound,
	}
	svc := newTestService(t, repo)

	out, err := svc.ProfitSummary(callerContext(shared.PermReportsViewProfit), 1, "", "")
	require.NoError(t, err)
	assert.Zero(t, out.COGS)
	assert.Equal(t, 100.0, out.Profit)
}

func TestProfitSummaryDeniedWithoutPermission(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	_, err := svc.ProfitSummary(callerContext(shared.PermReportsViewSales), 1, "", "")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Zero(t, repo.salesTotalsCalls)
}

func TestProfitTrendMergesSeriesDateAscending(t *testing.T) {
	repo := &mockRepo{
		businessType: BusinessRetail,
		salesDays: []DayAmount{
			{Day: "2024-03-02", Amount: 200},
			{Day: "2024-03-03", Amount: 300},
		},
		expenseDays: []DayAmount{
			{Day: "2024-03-01", Amount: 50},
			{Day: "2024-03-03", Amount: 30},
		},
		cogsDays: []DayAmount{
			{Day: "2024-03-02", Amount: 40},
			{Day: "2024-03-03", Amount: 60},
		},
	}
	svc := newTestService(t, repo)

	trend, err := svc.ProfitTrend(callerContext(shared.PermReportsViewProfit), 1, "2024-03-01", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, trend, 3)

	assert.Equal(t, ProfitTrendPoint{Date: "2024-03-01", Sales: 0, Expense: 50}, trend[0])
	assert.Equal(t, ProfitTrendPoint{Date: "2024-03-02", Sales: 200, Expense: 40}, trend[1])
	assert.Equal(t, ProfitTrendPoint{Date: "2024-03-03", Sales: 300, Expense: 90}, trend[2])
}

func TestProfitTrendSharesTimezoneOffsetAcrossSeries(t *testing.T) {
	repo := &mockRepo{businessType: BusinessRetail}
	svc := newTestService(t, repo)

	_, err := svc.ProfitTrend(callerContext(shared.PermReportsViewProfit), 1, "2024-03-01", "2024-03-03")
	require.NoError(t, err)

	require.Len(t, repo.dayOffsets, 3)
	for _, offset := range repo.dayOffsets {
		assert.Equal(t, 6*3600, offset, "every series buckets in the business timezone")
	}
}

func TestProfitTrendMatchesSummaryTotals(t *testing.T) {
	repo := &mockRepo{
		businessType:  BusinessGrocery,
		salesTotals:   SumCount{Total: 500, Count: 3},
		expenseTotals: SumCount{Total: 80, Count: 2},
		cogsTotal:     100,
		salesDays: []DayAmount{
			{Day: "2024-03-01", Amount: 200},
			{Day: "2024-03-02", Amount: 300},
		},
		expenseDays: []DayAmount{
			{Day: "2024-03-01", Amount: 80},
		},
		cogsDays: []DayAmount{
			{Day: "2024-03-02", Amount: 100},
		},
	}
	svc := newTestService(t, repo)
	ctx := callerContext(shared.PermReportsViewProfit)

	summary, err := svc.ProfitSummary(ctx, 1, "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	trend, err := svc.ProfitTrend(ctx, 1, "2024-03-01", "2024-03-02")
	require.NoError(t, err)

	var sales, expense float64
	for _, p := range trend {
		sales += p.Sales
		expense += p.Expense
	}
	assert.InDelta(t, summary.SalesTotal, sales, 1e-9)
	assert.InDelta(t, summary.ExpenseTotal, expense, 1e-9)
}

func TestProfitWindowNeverUnbounded(t *testing.T) {
	repo := &mockRepo{businessType: BusinessRetail}
	loc, err := ParseTimezone("+06:00")
	require.NoError(t, err)
	ranges := NewRangeResolver(loc)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ranges.WithNow(func() time.Time { return now })
	svc := NewService(repo, nil, ranges, nil, Options{AllTimeFallbackDays: 3650})

	w := svc.profitWindow("", "")
	require.NotNil(t, w.Start)
	require.NotNil(t, w.End)
	assert.Equal(t, now, *w.End)
	assert.Equal(t, now.AddDate(0, 0, -3650), *w.Start)
}

func TestProfitSummaryCached(t *testing.T) {
	repo := &mockRepo{
		salesTotals:  SumCount{Total: 500, Count: 2},
		businessType: BusinessRetail,
		cogsTotal:    50,
	}
	svc := newTestServiceWithRedis(t, repo)
	ctx := callerContext(shared.PermReportsViewProfit)

	_, err := svc.ProfitSummary(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	_, err = svc.ProfitSummary(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.salesTotalsCalls)

	_, err = svc.ProfitSummaryFresh(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.salesTotalsCalls)
}
