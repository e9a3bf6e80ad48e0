package reports

import (
	"context"
	"fmt"
)

// WarmShop pre-populates the cached report entry points a dashboard hits
// first: profit summary, profit trend, sales summary, and cash summary.
// The range is the trailing windowDays as business-timezone calendar
// days, resolved through the same window policies as the public entry
// points so the warmed keys are the ones dashboard requests produce.
// WarmShop runs without a caller identity and must only be reachable from
// trusted schedulers, never from request handlers.
func (s *Service) WarmShop(ctx context.Context, shopID int64, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = s.opts.FallbackDays
	}
	now := s.ranges.now()
	from := s.ranges.DayKey(now.AddDate(0, 0, -windowDays))
	to := s.ranges.DayKey(now)
	listW := s.listWindow(from, to)
	profitW := s.profitWindow(from, to)

	warmed := 0
	var profit ProfitSummary
	if err := s.cached(ctx, "profit_summary", shopID, profitW, []string{TagProfit, TagSales, TagExpenses, TagAll}, &profit, func(ctx context.Context) (interface{}, error) {
		return s.profitSummary(ctx, shopID, profitW)
	}); err != nil {
		return warmed, fmt.Errorf("warm profit_summary: %w", err)
	}
	warmed++

	var trend []ProfitTrendPoint
	if err := s.cached(ctx, "profit_trend", shopID, profitW, []string{TagProfit, TagSales, TagExpenses, TagAll}, &trend, func(ctx context.Context) (interface{}, error) {
		return s.profitTrend(ctx, shopID, profitW)
	}); err != nil {
		return warmed, fmt.Errorf("warm profit_trend: %w", err)
	}
	warmed++

	var sales SalesSummary
	if err := s.cached(ctx, "sales_summary", shopID, listW, []string{TagSales, TagAll}, &sales, func(ctx context.Context) (interface{}, error) {
		return s.salesSummary(ctx, shopID, listW)
	}); err != nil {
		return warmed, fmt.Errorf("warm sales_summary: %w", err)
	}
	warmed++

	var cash CashSummary
	if err := s.cached(ctx, "cash_summary", shopID, listW, []string{TagCash, TagAll}, &cash, func(ctx context.Context) (interface{}, error) {
		return s.cashSummary(ctx, shopID, listW)
	}); err != nil {
		return warmed, fmt.Errorf("warm cash_summary: %w", err)
	}
	warmed++
	return warmed, nil
}
