package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/shared"
)

type mockRepo struct {
	salesTotals      SumCount
	salesTotalsCalls int
	voidedCount      int64
	voidedCalls      int
	expenseTotals    SumCount
	expenseCalls     int
	cashTotals       CashTotals
	cashCalls        int
	cogsTotal        float64
	cogsCalls        int
	salesDays        []DayAmount
	expenseDays      []DayAmount
	cogsDays         []DayAmount
	dayOffsets       []int
	methods          []PaymentMethodTotal
	topProducts      []TopProduct
	topLimit         int
	lowStock         []LowStockProduct
	lowThreshold     int64
	businessType     BusinessType
	businessTypeErr  error
	memberUserIDs    map[int64]bool
	accessCalls      int
	saleRows         []SaleRow
	saleFetch        int
	saleCursor       *Cursor
	saleWindow       Window
	expenseRows      []ExpenseRow
	cashRows         []CashEntryRow
}

func (m *mockRepo) SalesTotals(ctx context.Context, shopID int64, w Window) (SumCount, error) {
	m.salesTotalsCalls++
	return m.salesTotals, nil
}

func (m *mockRepo) VoidedSalesCount(ctx context.Context, shopID int64, w Window) (int64, error) {
	m.voidedCalls++
	return m.voidedCount, nil
}

func (m *mockRepo) ExpenseTotals(ctx context.Context, shopID int64, w Window) (SumCount, error) {
	m.expenseCalls++
	return m.expenseTotals, nil
}

func (m *mockRepo) CashTotals(ctx context.Context, shopID int64, w Window) (CashTotals, error) {
	m.cashCalls++
	return m.cashTotals, nil
}

func (m *mockRepo) COGSTotal(ctx context.Context, shopID int64, w Window) (float64, error) {
	m.cogsCalls++
	return m.cogsTotal, nil
}

func (m *mockRepo) SalesByDay(ctx context.Context, shopID int64, w Window, tz int) ([]DayAmount, error) {
	m.dayOffsets = append(m.dayOffsets, tz)
	return m.salesDays, nil
}

func (m *mockRepo) ExpensesByDay(ctx context.Context, shopID int64, w Window, tz int) ([]DayAmount, error) {
	m.dayOffsets = append(m.dayOffsets, tz)
	return m.expenseDays, nil
}

func (m *mockRepo) COGSByDay(ctx context.Context, shopID int64, w Window, tz int) ([]DayAmount, error) {
	m.dayOffsets = append(m.dayOffsets, tz)
	return m.cogsDays, nil
}

func (m *mockRepo) PaymentMethodTotals(ctx context.Context, shopID int64, w Window) ([]PaymentMethodTotal, error) {
	return m.methods, nil
}

func (m *mockRepo) TopProducts(ctx context.Context, shopID int64, limit int) ([]TopProduct, error) {
	m.topLimit = limit
	return m.topProducts, nil
}

func (m *mockRepo) LowStock(ctx context.Context, shopID int64, threshold int64) ([]LowStockProduct, error) {
	m.lowThreshold = threshold
	return m.lowStock, nil
}

func (m *mockRepo) ShopBusinessType(ctx context.Context, shopID int64) (BusinessType, error) {
	if m.businessTypeErr != nil {
		return "", m.businessTypeErr
	}
	if m.businessType == "" {
		return BusinessRetail, nil
	}
	return m.businessType, nil
}

func (m *mockRepo) HasShopAccess(ctx context.Context, shopID, userID int64) (bool, error) {
	m.accessCalls++
	if m.memberUserIDs == nil {
		return true, nil
	}
	return m.memberUserIDs[userID], nil
}

func (m *mockRepo) SalesPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]SaleRow, error) {
	m.saleFetch = fetch
	m.saleCursor = cursor
	m.saleWindow = w
	rows := m.saleRows
	if cursor != nil {
		var filtered []SaleRow
		for _, row := range rows {
			if (Cursor{At: row.SaleDate, ID: row.ID}).Before(*cursor) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	if len(rows) > fetch {
		rows = rows[:fetch]
	}
	return rows, nil
}

func (m *mockRepo) ExpensesPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]ExpenseRow, error) {
	rows := m.expenseRows
	if len(rows) > fetch {
		rows = rows[:fetch]
	}
	return rows, nil
}

func (m *mockRepo) CashPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]CashEntryRow, error) {
	rows := m.cashRows
	if len(rows) > fetch {
		rows = rows[:fetch]
	}
	return rows, nil
}

func callerContext(perms ...string) context.Context {
	return shared.ContextWithCaller(context.Background(), &shared.Caller{ID: 10, Permissions: perms})
}

func newTestServiceWithRedis(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	loc, err := ParseTimezone("+06:00")
	require.NoError(t, err)
	return NewService(repo, NewCache(client, time.Minute), NewRangeResolver(loc), nil, Options{})
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	loc, err := ParseTimezone("+06:00")
	require.NoError(t, err)
	return NewService(repo, nil, NewRangeResolver(loc), nil, Options{})
}

func TestSalesSummaryComposesTotalsAndVoided(t *testing.T) {
	repo := &mockRepo{
		salesTotals: SumCount{Total: 500, Count: 2},
		voidedCount: 1,
	}
	svc := newTestService(t, repo)

	out, err := svc.SalesSummary(callerContext(shared.PermReportsViewSales), 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 500.0, out.TotalAmount)
	assert.Equal(t, int64(2), out.CompletedCount)
	assert.Equal(t, int64(1), out.VoidedCount)
}

func TestSalesSummaryCachesAcrossCalls(t *testing.T) {
	repo := &mockRepo{salesTotals: SumCount{Total: 500, Count: 2}, voidedCount: 1}
	svc := newTestServiceWithRedis(t, repo)
	ctx := callerContext(shared.PermReportsViewSales)

	_, err := svc.SalesSummary(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	out, err := svc.SalesSummary(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.salesTotalsCalls, "second call must come from cache")
	assert.Equal(t, 500.0, out.TotalAmount)
}

func TestSalesSummaryFreshBypassesCache(t *testing.T) {
	repo := &mockRepo{salesTotals: SumCount{Total: 500, Count: 2}}
	svc := newTestServiceWithRedis(t, repo)
	ctx := callerContext(shared.PermReportsViewSales)

	_, err := svc.SalesSummary(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	_, err = svc.SalesSummaryFresh(ctx, 1, "2024-03-01", "2024-03-10")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.salesTotalsCalls, "fresh variant always loads")
}

func TestGateDeniesWithoutCaller(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	_, err := svc.SalesSummary(context.Background(), 1, "", "")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Zero(t, repo.salesTotalsCalls, "no query may run for a denied caller")
}

func TestGateDeniesWithoutPermission(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	_, err := svc.SalesSummary(callerContext("reports.view_expenses"), 1, "", "")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Zero(t, repo.salesTotalsCalls)
	assert.Zero(t, repo.accessCalls, "permission check precedes the membership query")
}

func TestGateBlanketPermissionGrantsAccess(t *testing.T) {
	repo := &mockRepo{salesTotals: SumCount{Total: 10, Count: 1}}
	svc := newTestService(t, repo)

	_, err := svc.SalesSummary(callerContext(shared.PermReportsViewAll), 1, "", "")
	assert.NoError(t, err)
}

func TestGateDeniesNonMember(t *testing.T) {
	repo := &mockRepo{memberUserIDs: map[int64]bool{99: true}}
	svc := newTestService(t, repo)

	_, err := svc.SalesSummary(callerContext(shared.PermReportsViewSales), 1, "", "")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Zero(t, repo.salesTotalsCalls)
}

func TestExpenseAndCashSummaries(t *testing.T) {
	repo := &mockRepo{
		expenseTotals: SumCount{Total: 120, Count: 4},
		cashTotals:    CashTotals{In: 300, Out: 80},
	}
	svc := newTestService(t, repo)

	expenses, err := svc.ExpenseSummary(callerContext(shared.PermReportsViewExpenses), 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, 120.0, expenses.TotalAmount)
	assert.Equal(t, int64(4), expenses.Count)

	cash, err := svc.CashSummary(callerContext(shared.PermReportsViewCash), 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, 300.0, cash.TotalIn)
	assert.Equal(t, 80.0, cash.TotalOut)
	assert.Equal(t, 220.0, cash.Balance)
}

func TestTopProductsClampsLimit(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	ctx := callerContext(shared.PermReportsViewProducts)

	_, err := svc.TopProductsReport(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.topLimit, "zero limit takes the default")

	_, err = svc.TopProductsReport(ctx, 1, 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, repo.topLimit, "limit is capped")
}

func TestLowStockClampsNegativeThreshold(t *testing.T) {
	repo := &mockRepo{lowThreshold: -1}
	svc := newTestService(t, repo)

	_, err := svc.LowStockReport(callerContext(shared.PermReportsViewProducts), 1, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), repo.lowThreshold)
}

func TestCOGSTotalZeroForServiceShops(t *testing.T) {
	repo := &mockRepo{businessType: BusinessService, cogsTotal: 999}
	svc := newTestService(t, repo)

	total, err := svc.COGSTotal(callerContext(shared.PermReportsViewProfit), 1, "", "")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, repo.cogsCalls, "ineligible shops skip the aggregate query")
}

func makeSaleRows(n int) []SaleRow {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := make([]SaleRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, SaleRow{
			ID:            fmt.Sprintf("sale-%03d", n-i),
			SaleDate:      base.Add(-time.Duration(i) * time.Minute),
			TotalAmount:   float64(10 * (i + 1)),
			Status:        SaleCompleted,
			PaymentMethod: "CASH",
		})
	}
	return rows
}

func TestSalesPagePagination(t *testing.T) {
	repo := &mockRepo{saleRows: makeSaleRows(25)}
	svc := newTestService(t, repo)
	ctx := callerContext(shared.PermReportsViewSales)

	page, err := svc.SalesPage(ctx, 1, "", "", 20, "")
	require.NoError(t, err)
	assert.Len(t, page.Rows, 20)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, 21, repo.saleFetch, "service fetches limit+1 to detect the next page")

	// The cursor points at the last returned row.
	cursor := svc.Codec().DecodeCursor(page.NextCursor)
	require.NotNil(t, cursor)
	last := page.Rows[len(page.Rows)-1]
	assert.Equal(t, last.ID, cursor.ID)
	assert.True(t, cursor.At.Equal(last.SaleDate))

	next, err := svc.SalesPage(ctx, 1, "", "", 20, page.NextCursor)
	require.NoError(t, err)
	assert.Len(t, next.Rows, 5)
	assert.False(t, next.HasMore)
	assert.Empty(t, next.NextCursor)

	// No overlap between pages.
	seen := map[string]bool{}
	for _, row := range page.Rows {
		seen[row.ID] = true
	}
	for _, row := range next.Rows {
		assert.False(t, seen[row.ID], "row %s served twice", row.ID)
	}
}

func TestSalesPageMalformedCursorRestartsFromTop(t *testing.T) {
	repo := &mockRepo{saleRows: makeSaleRows(5)}
	svc := newTestService(t, repo)

	page, err := svc.SalesPage(callerContext(shared.PermReportsViewSales), 1, "", "", 20, "!!!not-a-cursor!!!")
	require.NoError(t, err)
	assert.Nil(t, repo.saleCursor)
	assert.Len(t, page.Rows, 5)
}

func TestSalesPageUnboundedWhenNoRangeGiven(t *testing.T) {
	repo := &mockRepo{saleRows: makeSaleRows(1)}
	svc := newTestService(t, repo)

	_, err := svc.SalesPage(callerContext(shared.PermReportsViewSales), 1, "", "", 10, "")
	require.NoError(t, err)
	assert.Nil(t, repo.saleWindow.Start)
	assert.Nil(t, repo.saleWindow.End)
}

func TestSalesPageClampsOversizedRange(t *testing.T) {
	repo := &mockRepo{saleRows: makeSaleRows(1)}
	svc := newTestService(t, repo)

	_, err := svc.SalesPage(callerContext(shared.PermReportsViewSales), 1, "2023-01-01", "2024-03-10", 10, "")
	require.NoError(t, err)
	require.NotNil(t, repo.saleWindow.Start)
	require.NotNil(t, repo.saleWindow.End)
	span := repo.saleWindow.End.Sub(*repo.saleWindow.Start)
	assert.Equal(t, 90*24*time.Hour, span)
}

func TestExpensesAndCashPages(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		expenseRows: []ExpenseRow{{ID: "e1", ExpenseDate: now, Amount: 50, Category: "RENT"}},
		cashRows:    []CashEntryRow{{ID: "c1", EntryType: CashIn, Amount: 20, CreatedAt: now}},
	}
	svc := newTestService(t, repo)

	expenses, err := svc.ExpensesPage(callerContext(shared.PermReportsViewExpenses), 1, "", "", 10, "")
	require.NoError(t, err)
	assert.Len(t, expenses.Rows, 1)
	assert.False(t, expenses.HasMore)

	cash, err := svc.CashPage(callerContext(shared.PermReportsViewCash), 1, "", "", 10, "")
	require.NoError(t, err)
	assert.Len(t, cash.Rows, 1)
	assert.Equal(t, CashIn, cash.Rows[0].EntryType)
}
