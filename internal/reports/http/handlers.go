// Package reporthttp exposes the reporting engine over HTTP.
package reporthttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
	"github.com/meridian-retail/meridian/internal/reports"
)

const requestTimeout = 5 * time.Second

// ReportService defines the reporting contract used by the handler.
type ReportService interface {
	SalesSummary(ctx context.Context, shopID int64, from, to string) (reports.SalesSummary, error)
	SalesSummaryFresh(ctx context.Context, shopID int64, from, to string) (reports.SalesSummary, error)
	ExpenseSummary(ctx context.Context, shopID int64, from, to string) (reports.ExpenseSummary, error)
	ExpenseSummaryFresh(ctx context.Context, shopID int64, from, to string) (reports.ExpenseSummary, error)
	CashSummary(ctx context.Context, shopID int64, from, to string) (reports.CashSummary, error)
	CashSummaryFresh(ctx context.Context, shopID int64, from, to string) (reports.CashSummary, error)
	ProfitSummary(ctx context.Context, shopID int64, from, to string) (reports.ProfitSummary, error)
	ProfitSummaryFresh(ctx context.Context, shopID int64, from, to string) (reports.ProfitSummary, error)
	ProfitTrend(ctx context.Context, shopID int64, from, to string) ([]reports.ProfitTrendPoint, error)
	ProfitTrendFresh(ctx context.Context, shopID int64, from, to string) ([]reports.ProfitTrendPoint, error)
	PaymentMethodReport(ctx context.Context, shopID int64, from, to string) ([]reports.PaymentMethodTotal, error)
	PaymentMethodReportFresh(ctx context.Context, shopID int64, from, to string) ([]reports.PaymentMethodTotal, error)
	TopProductsReport(ctx context.Context, shopID int64, limit int) ([]reports.TopProduct, error)
	LowStockReport(ctx context.Context, shopID int64, threshold int64) ([]reports.LowStockProduct, error)
	SalesPage(ctx context.Context, shopID int64, from, to string, limit int, cursor string) (reports.SalesPage, error)
	ExpensesPage(ctx context.Context, shopID int64, from, to string, limit int, cursor string) (reports.ExpensesPage, error)
	CashPage(ctx context.Context, shopID int64, from, to string, limit int, cursor string) (reports.CashPage, error)
}

// Handler coordinates HTTP requests for the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service ReportService
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// reportQuery carries the common query parameters. Range strings pass
// through verbatim; the service resolves and clamps them.
type reportQuery struct {
	from   string
	to     string
	fresh  bool
	limit  int
	cursor string
}

func parseQuery(r *http.Request) reportQuery {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	return reportQuery{
		from:   q.Get("from"),
		to:     q.Get("to"),
		fresh:  q.Get("fresh") == "1" || q.Get("fresh") == "true",
		limit:  limit,
		cursor: q.Get("cursor"),
	}
}

func shopIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "shopID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// respond funnels service results through the shared error mapping and
// logs failures with the route context.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, report string, data interface{}, err error) {
	if err != nil {
		h.logger.Error("report request failed",
			slog.String("report", report),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		out reports.SalesSummary
		err error
	)
	if q.fresh {
		out, err = h.service.SalesSummaryFresh(ctx, shopID, q.from, q.to)
	} else {
		out, err = h.service.SalesSummary(ctx, shopID, q.from, q.to)
	}
	h.respond(w, r, "sales_summary", out, err)
}

func (h *Handler) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		out reports.ExpenseSummary
		err error
	)
	if q.fresh {
		out, err = h.service.ExpenseSummaryFresh(ctx, shopID, q.from, q.to)
	} else {
		out, err = h.service.ExpenseSummary(ctx, shopID, q.from, q.to)
	}
	h.respond(w, r, "expense_summary", out, err)
}

func (h *Handler) handleCashSummary(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		out reports.CashSummary
		err error
	)
	if q.fresh {
		out, err = h.service.CashSummaryFresh(ctx, shopID, q.from, q.to)
	} else {
		out, err = h.service.CashSummary(ctx, shopID, q.from, q.to)
	}
	h.respond(w, r, "cash_summary", out, err)
}

func (h *Handler) handleProfitSummary(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		out reports.ProfitSummary
		err error
	)
	if q.fresh {
		out, err = h.service.ProfitSummaryFresh(ctx, shopID, q.from, q.to)
	} else {
		out, err = h.service.ProfitSummary(ctx, shopID, q.from, q.to)
	}
	h.respond(w, r, "profit_summary", out, err)
}

func (h *Handler) handleProfitTrend(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		out []reports.ProfitTrendPoint
		err error
	)
	if q.fresh {
		out, err = h.service.ProfitTrendFresh(ctx, shopID, q.from, q.to)
	} else {
		out, err = h.service.ProfitTrend(ctx, shopID, q.from, q.to)
	}
	if out == nil {
		out = []reports.ProfitTrendPoint{}
	}
	h.respond(w, r, "profit_trend", out, err)
}

func (h *Handler) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		out []reports.PaymentMethodTotal
		err error
	)
	if q.fresh {
		out, err = h.service.PaymentMethodReportFresh(ctx, shopID, q.from, q.to)
	} else {
		out, err = h.service.PaymentMethodReport(ctx, shopID, q.from, q.to)
	}
	if out == nil {
		out = []reports.PaymentMethodTotal{}
	}
	h.respond(w, r, "payment_methods", out, err)
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.TopProductsReport(ctx, shopID, q.limit)
	if out == nil {
		out = []reports.TopProduct{}
	}
	h.respond(w, r, "top_products", out, err)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	threshold, _ := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.LowStockReport(ctx, shopID, threshold)
	if out == nil {
		out = []reports.LowStockProduct{}
	}
	h.respond(w, r, "low_stock", out, err)
}

func (h *Handler) handleSalesPage(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.SalesPage(ctx, shopID, q.from, q.to, q.limit, q.cursor)
	if out.Rows == nil {
		out.Rows = []reports.SaleRow{}
	}
	h.respond(w, r, "sales_page", out, err)
}

func (h *Handler) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.ExpensesPage(ctx, shopID, q.from, q.to, q.limit, q.cursor)
	if out.Rows == nil {
		out.Rows = []reports.ExpenseRow{}
	}
	h.respond(w, r, "expenses_page", out, err)
}

func (h *Handler) handleCashPage(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shop id")
		return
	}
	q := parseQuery(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := h.service.CashPage(ctx, shopID, q.from, q.to, q.limit, q.cursor)
	if out.Rows == nil {
		out.Rows = []reports.CashEntryRow{}
	}
	h.respond(w, r, "cash_page", out, err)
}
