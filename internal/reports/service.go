package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Options carry the reporting policies from configuration.
type Options struct {
	// FallbackDays backs a range when only one side is supplied.
	FallbackDays int
	// AllTimeFallbackDays approximates "all time" for profit-style
	// aggregates: a large bounded window keeps the queries index-friendly.
	AllTimeFallbackDays int
	// MaxRangeDays clamps list/summary windows.
	MaxRangeDays int
	// DefaultPageSize applies when the caller sends no usable limit.
	DefaultPageSize int
	// MaxPageSize caps page limits.
	MaxPageSize int
	// CursorHistoryMax bounds the traversal cursor history.
	CursorHistoryMax int
}

func (o Options) withDefaults() Options {
	if o.FallbackDays <= 0 {
		o.FallbackDays = 30
	}
	if o.AllTimeFallbackDays <= 0 {
		o.AllTimeFallbackDays = 3650
	}
	if o.MaxRangeDays <= 0 {
		o.MaxRangeDays = 90
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = 20
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 100
	}
	if o.CursorHistoryMax <= 0 {
		o.CursorHistoryMax = DefaultCursorHistoryMax
	}
	return o
}

// Service exposes the public report entry points. Every operation
// authorizes first, then consults the cache (except the Fresh twins and
// page queries), then aggregates through the repository.
type Service struct {
	repo   Repository
	cache  *Cache
	ranges *RangeResolver
	gate   *PermissionGate
	codec  Codec
	logger *slog.Logger
	opts   Options
}

// NewService wires the reporting engine.
func NewService(repo Repository, cache *Cache, ranges *RangeResolver, logger *slog.Logger, opts Options) *Service {
	opts = opts.withDefaults()
	if ranges == nil {
		ranges = NewRangeResolver(time.UTC)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		ranges: ranges,
		gate:   NewPermissionGate(repo),
		codec:  NewCodec(opts.CursorHistoryMax),
		logger: logger,
		opts:   opts,
	}
}

// Ranges exposes the resolver for collaborators (jobs, handlers, tests).
func (s *Service) Ranges() *RangeResolver {
	return s.ranges
}

// Codec exposes the cursor codec for collaborators.
func (s *Service) Codec() Codec {
	return s.codec
}

// listWindow resolves a list/summary range: both inputs absent means an
// unbounded query; anything else is bounded and clamped.
func (s *Service) listWindow(from, to string) Window {
	dr := s.ranges.Parse(from, to)
	if dr.Unbounded() {
		return Window{}
	}
	return WindowOf(s.ranges.Clamp(dr, s.opts.FallbackDays, s.opts.MaxRangeDays))
}

// profitWindow never goes unbounded: an absent range substitutes the
// configured all-time fallback span instead.
func (s *Service) profitWindow(from, to string) Window {
	dr := s.ranges.Parse(from, to)
	if dr.Unbounded() {
		return WindowOf(s.ranges.Bounded(dr, s.opts.AllTimeFallbackDays))
	}
	return WindowOf(s.ranges.Bounded(dr, s.opts.FallbackDays))
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultPageSize
	}
	if limit > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return limit
}

// cached runs loader through the cache under the given report name and
// tags, decoding into dest.
func (s *Service) cached(ctx context.Context, report string, shopID int64, w Window, tags []string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return assign(value, dest)
	}
	return s.cache.FetchJSON(ctx, s.cache.Key(report, shopID, w), tags, dest, loader)
}

// SalesSummary returns revenue and counts over non-voided sales, with the
// voided count computed from its own filtered query.
func (s *Service) SalesSummary(ctx context.Context, shopID int64, from, to string) (SalesSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewSales); err != nil {
		return SalesSummary{}, err
	}
	w := s.listWindow(from, to)
	var out SalesSummary
	err := s.cached(ctx, "sales_summary", shopID, w, []string{TagSales, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.salesSummary(ctx, shopID, w)
	})
	return out, err
}

// SalesSummaryFresh bypasses the cache so an actor that just wrote sees
// current data.
func (s *Service) SalesSummaryFresh(ctx context.Context, shopID int64, from, to string) (SalesSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewSales); err != nil {
		return SalesSummary{}, err
	}
	return s.salesSummary(ctx, shopID, s.listWindow(from, to))
}

func (s *Service) salesSummary(ctx context.Context, shopID int64, w Window) (SalesSummary, error) {
	totals, err := s.repo.SalesTotals(ctx, shopID, w)
	if err != nil {
		return SalesSummary{}, err
	}
	voided, err := s.repo.VoidedSalesCount(ctx, shopID, w)
	if err != nil {
		return SalesSummary{}, err
	}
	return SalesSummary{
		TotalAmount:    totals.Total,
		CompletedCount: totals.Count,
		VoidedCount:    voided,
	}, nil
}

// ExpenseSummary totals expenses over the window.
func (s *Service) ExpenseSummary(ctx context.Context, shopID int64, from, to string) (ExpenseSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewExpenses); err != nil {
		return ExpenseSummary{}, err
	}
	w := s.listWindow(from, to)
	var out ExpenseSummary
	err := s.cached(ctx, "expense_summary", shopID, w, []string{TagExpenses, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.expenseSummary(ctx, shopID, w)
	})
	return out, err
}

// ExpenseSummaryFresh bypasses the cache.
func (s *Service) ExpenseSummaryFresh(ctx context.Context, shopID int64, from, to string) (ExpenseSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewExpenses); err != nil {
		return ExpenseSummary{}, err
	}
	return s.expenseSummary(ctx, shopID, s.listWindow(from, to))
}

func (s *Service) expenseSummary(ctx context.Context, shopID int64, w Window) (ExpenseSummary, error) {
	totals, err := s.repo.ExpenseTotals(ctx, shopID, w)
	if err != nil {
		return ExpenseSummary{}, err
	}
	return ExpenseSummary{TotalAmount: totals.Total, Count: totals.Count}, nil
}

// CashSummary groups cash entries by direction and derives the balance.
func (s *Service) CashSummary(ctx context.Context, shopID int64, from, to string) (CashSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewCash); err != nil {
		return CashSummary{}, err
	}
	w := s.listWindow(from, to)
	var out CashSummary
	err := s.cached(ctx, "cash_summary", shopID, w, []string{TagCash, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.cashSummary(ctx, shopID, w)
	})
	return out, err
}

// CashSummaryFresh bypasses the cache.
func (s *Service) CashSummaryFresh(ctx context.Context, shopID int64, from, to string) (CashSummary, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewCash); err != nil {
		return CashSummary{}, err
	}
	return s.cashSummary(ctx, shopID, s.listWindow(from, to))
}

func (s *Service) cashSummary(ctx context.Context, shopID int64, w Window) (CashSummary, error) {
	totals, err := s.repo.CashTotals(ctx, shopID, w)
	if err != nil {
		return CashSummary{}, err
	}
	return CashSummary{
		TotalIn:  totals.In,
		TotalOut: totals.Out,
		Balance:  totals.In - totals.Out,
	}, nil
}

// PaymentMethodReport breaks completed sales down by payment method.
func (s *Service) PaymentMethodReport(ctx context.Context, shopID int64, from, to string) ([]PaymentMethodTotal, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewSales); err != nil {
		return nil, err
	}
	w := s.listWindow(from, to)
	var out []PaymentMethodTotal
	err := s.cached(ctx, "payment_methods", shopID, w, []string{TagSales, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.PaymentMethodTotals(ctx, shopID, w)
	})
	return out, err
}

// PaymentMethodReportFresh bypasses the cache.
func (s *Service) PaymentMethodReportFresh(ctx context.Context, shopID int64, from, to string) ([]PaymentMethodTotal, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewSales); err != nil {
		return nil, err
	}
	return s.repo.PaymentMethodTotals(ctx, shopID, s.listWindow(from, to))
}

// TopProductsReport lists best sellers by revenue over completed sales.
func (s *Service) TopProductsReport(ctx context.Context, shopID int64, limit int) ([]TopProduct, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProducts); err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)
	var out []TopProduct
	// Top products take no range; the limit distinguishes cache entries.
	report := "top_products:" + strconv.Itoa(limit)
	err := s.cached(ctx, report, shopID, Window{}, []string{TagSales, TagProducts, TagAll}, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopProducts(ctx, shopID, limit)
	})
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LowStockReport lists active, stock-tracked products at or below the
// threshold, ascending by remaining stock.
func (s *Service) LowStockReport(ctx context.Context, shopID int64, threshold int64) ([]LowStockProduct, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProducts); err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold = 0
	}
	return s.repo.LowStock(ctx, shopID, threshold)
}

// COGSTotal exposes the cost-of-goods aggregate on its own, zero for
// shops outside the COGS-enabled business types.
func (s *Service) COGSTotal(ctx context.Context, shopID int64, from, to string) (float64, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewProfit); err != nil {
		return 0, err
	}
	bt, err := s.repo.ShopBusinessType(ctx, shopID)
	if err != nil {
		return 0, err
	}
	if !COGSEnabled(bt) {
		return 0, nil
	}
	return s.repo.COGSTotal(ctx, shopID, s.listWindow(from, to))
}

// assign copies a loader result into dest through JSON, mirroring the
// cache decode path so cached and uncached values shape identically.
func assign(value, dest interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
