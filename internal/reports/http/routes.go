package reporthttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/meridian-retail/meridian/internal/shared"
)

// MountRoutes registers the reporting endpoints onto the router. The
// summary endpoints are cache-backed and cheap; the listing endpoints hit
// storage on every request and sit behind a per-caller rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(60, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/reports/shops/{shopID}", func(sr chi.Router) {
		sr.Get("/sales/summary", h.handleSalesSummary)
		sr.Get("/expenses/summary", h.handleExpenseSummary)
		sr.Get("/cash/summary", h.handleCashSummary)
		sr.Get("/profit/summary", h.handleProfitSummary)
		sr.Get("/profit/trend", h.handleProfitTrend)
		sr.Get("/payment-methods", h.handlePaymentMethods)
		sr.Get("/products/top", h.handleTopProducts)
		sr.Get("/products/low-stock", h.handleLowStock)
		sr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/sales", h.handleSalesPage)
			gr.Get("/expenses", h.handleExpensesPage)
			gr.Get("/cash", h.handleCashPage)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if caller := shared.CallerFromContext(r.Context()); caller != nil {
		return "user:" + strconv.FormatInt(caller.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
