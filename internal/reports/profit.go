package reports

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-retail/meridian/internal/shared"
)

// ProfitSummary composes sales, expenses, and cost-of-goods into one
// profit figure. The three sub-aggregations fan out concurrently and join
// before composition; they run outside a shared transaction, so under
// heavy concurrent writes the branches may observe slightly different
// snapshots.
func (s *Service) ProfitSummary(ctx context.Context, shopID int64, from, to string) (ProfitSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProfit); err != nil {
		return ProfitSummary{}, err
	}
	w := s.profitWindow(from, to)
	var out ProfitSummary
	err := s.cached(ctx, "profit_summary", shopID, w, []string{TagProfit, TagSales, TagExpenses, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.profitSummary(ctx, shopID, w)
	})
	return out, err
}

// ProfitSummaryFresh bypasses the cache.
func (s *Service) ProfitSummaryFresh(ctx context.Context, shopID int64, from, to string) (ProfitSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProfit); err != nil {
		return ProfitSummary{}, err
	}
	return s.profitSummary(ctx, shopID, s.profitWindow(from, to))
}

func (s *Service) profitSummary(ctx context.Context, shopID int64, w Window) (ProfitSummary, error) {
	var (
		sales    SumCount
		expenses SumCount
		cogs     float64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.SalesTotals(ctx, shopID, w)
		if err != nil {
			return err
		}
		sales = totals
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.ExpenseTotals(ctx, shopID, w)
		if err != nil {
			return err
		}
		expenses = totals
		return nil
	})
	g.Go(func() error {
		eligible, err := s.cogsEligible(ctx, shopID)
		if err != nil {
			return err
		}
		if !eligible {
			return nil
		}
		total, err := s.repo.COGSTotal(ctx, shopID, w)
		if err != nil {
			return err
		}
		cogs = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return ProfitSummary{}, err
	}

	totalExpense := expenses.Total + cogs
	return ProfitSummary{
		SalesTotal:   sales.Total,
		ExpenseTotal: totalExpense,
		COGS:         cogs,
		Profit:       sales.Total - totalExpense,
	}, nil
}

// ProfitTrend emits a date-ascending day series where each day carries
// the sales total and the expense total including COGS. The three day
// buckets share the business timezone, so the components never drift.
func (s *Service) ProfitTrend(ctx context.Context, shopID int64, from, to string) ([]ProfitTrendPoint, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProfit); err != nil {
		return nil, err
	}
	w := s.profitWindow(from, to)
	var out []ProfitTrendPoint
	err := s.cached(ctx, "profit_trend", shopID, w, []string{TagProfit, TagSales, TagExpenses, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.profitTrend(ctx, shopID, w)
	})
	return out, err
}

// ProfitTrendFresh bypasses the cache.
func (s *Service) ProfitTrendFresh(ctx context.Context, shopID int64, from, to string) ([]ProfitTrendPoint, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProfit); err != nil {
		return nil, err
	}
	return s.profitTrend(ctx, shopID, s.profitWindow(from, to))
}

func (s *Service) profitTrend(ctx context.Context, shopID int64, w Window) ([]ProfitTrendPoint, error) {
	offset := s.trendOffset(w)

	var salesDays, expenseDays, cogsDays []DayAmount
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		days, err := s.repo.SalesByDay(ctx, shopID, w, offset)
		if err != nil {
			return err
		}
		salesDays = days
		return nil
	})
	g.Go(func() error {
		days, err := s.repo.ExpensesByDay(ctx, shopID, w, offset)
		if err != nil {
			return err
		}
		expenseDays = days
		return nil
	})
	g.Go(func() error {
		eligible, err := s.cogsEligible(ctx, shopID)
		if err != nil {
			return err
		}
		if !eligible {
			return nil
		}
		days, err := s.repo.COGSByDay(ctx, shopID, w, offset)
		if err != nil {
			return err
		}
		cogsDays = days
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make(map[string]*ProfitTrendPoint)
	touch := func(day string) *ProfitTrendPoint {
		if p, ok := points[day]; ok {
			return p
		}
		p := &ProfitTrendPoint{Date: day}
		points[day] = p
		return p
	}
	for _, d := range salesDays {
		touch(d.Day).Sales += d.Amount
	}
	for _, d := range expenseDays {
		touch(d.Day).Expense += d.Amount
	}
	for _, d := range cogsDays {
		touch(d.Day).Expense += d.Amount
	}

	days := make([]string, 0, len(points))
	for day := range points {
		days = append(days, day)
	}
	sort.Strings(days)

	series := make([]ProfitTrendPoint, 0, len(days))
	for _, day := range days {
		series = append(series, *points[day])
	}
	return series, nil
}

// cogsEligible resolves whether cost-of-goods applies to the shop. An
// unknown shop yields no COGS rather than an error: reports over empty
// tenants return zeroed results.
func (s *Service) cogsEligible(ctx context.Context, shopID int64) (bool, error) {
	bt, err := s.repo.ShopBusinessType(ctx, shopID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return COGSEnabled(bt), nil
}

// trendOffset picks the timezone offset used for day bucketing, evaluated
// at the window end so fixed-offset zones and IANA zones agree on the
// current rule.
func (s *Service) trendOffset(w Window) int {
	at := s.ranges.now()
	if w.End != nil {
		at = *w.End
	}
	return s.ranges.OffsetSeconds(at)
}
