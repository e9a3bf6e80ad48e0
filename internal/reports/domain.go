// Package reports implements the financial reporting and aggregation
// engine: time-bounded summaries, profit composition, day-bucketed trends,
// and keyset-paginated listings over the transactional stores, behind a
// permission gate and a tag-invalidated cache.
package reports

import "time"

// SaleStatus enumerates the sale lifecycle states the engine cares about.
type SaleStatus string

const (
	SaleCompleted SaleStatus = "COMPLETED"
	SaleVoided    SaleStatus = "VOIDED"
)

// CashEntryType distinguishes cash drawer movements.
type CashEntryType string

const (
	CashIn  CashEntryType = "IN"
	CashOut CashEntryType = "OUT"
)

// BusinessType classifies a shop. Membership in the COGS-enabled set
// decides whether cost-of-goods applies to profit figures.
type BusinessType string

const (
	BusinessRetail     BusinessType = "RETAIL"
	BusinessGrocery    BusinessType = "GROCERY"
	BusinessRestaurant BusinessType = "RESTAURANT"
	BusinessService    BusinessType = "SERVICE"
	BusinessRental     BusinessType = "RENTAL"
)

var cogsEnabledTypes = map[BusinessType]struct{}{
	BusinessRetail:     {},
	BusinessGrocery:    {},
	BusinessRestaurant: {},
}

// COGSEnabled reports whether cost-of-goods applies to the business type.
// Service and rental shops sell no tracked inventory, so their cost basis
// is fixed at zero.
func COGSEnabled(bt BusinessType) bool {
	_, ok := cogsEnabledTypes[bt]
	return ok
}

// SalesSummary totals non-voided sales; voided sales are counted
// separately and never contribute to TotalAmount.
type SalesSummary struct {
	TotalAmount    float64 `json:"totalAmount"`
	CompletedCount int64   `json:"completedCount"`
	VoidedCount    int64   `json:"voidedCount"`
}

// ExpenseSummary totals recorded expenses.
type ExpenseSummary struct {
	TotalAmount float64 `json:"totalAmount"`
	Count       int64   `json:"count"`
}

// CashSummary reports cash drawer movement grouped by direction.
type CashSummary struct {
	TotalIn  float64 `json:"totalIn"`
	TotalOut float64 `json:"totalOut"`
	Balance  float64 `json:"balance"`
}

// ProfitSummary composes sales, expenses, and cost-of-goods into a single
// profit figure: Profit = SalesTotal - (ExpenseTotal + COGS).
type ProfitSummary struct {
	SalesTotal   float64 `json:"salesTotal"`
	ExpenseTotal float64 `json:"expenseTotal"`
	COGS         float64 `json:"cogs"`
	Profit       float64 `json:"profit"`
}

// ProfitTrendPoint is one day of the profit trend. Date is a calendar day
// in the business timezone; Expense already includes COGS.
type ProfitTrendPoint struct {
	Date    string  `json:"date"`
	Sales   float64 `json:"sales"`
	Expense float64 `json:"expense"`
}

// PaymentMethodTotal is one slice of the payment method breakdown over
// completed sales.
type PaymentMethodTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Count int64   `json:"count"`
}

// TopProduct is one row of the best-seller report, ordered by revenue.
type TopProduct struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Qty       float64 `json:"qty"`
	Revenue   float64 `json:"revenue"`
}

// LowStockProduct is an active, stock-tracked product at or below the
// requested threshold.
type LowStockProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	StockQty int64  `json:"stockQty"`
}

// SaleRow is one row of a paginated sales listing.
type SaleRow struct {
	ID            string     `json:"id"`
	SaleDate      time.Time  `json:"saleDate"`
	TotalAmount   float64    `json:"totalAmount"`
	Status        SaleStatus `json:"status"`
	PaymentMethod string     `json:"paymentMethod"`
}

// ExpenseRow is one row of a paginated expense listing.
type ExpenseRow struct {
	ID          string    `json:"id"`
	ExpenseDate time.Time `json:"expenseDate"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
}

// CashEntryRow is one row of a paginated cash entry listing.
type CashEntryRow struct {
	ID        string        `json:"id"`
	EntryType CashEntryType `json:"entryType"`
	Amount    float64       `json:"amount"`
	CreatedAt time.Time     `json:"createdAt"`
}

// SalesPage is a keyset-paginated slice of the sales listing.
type SalesPage struct {
	Rows       []SaleRow `json:"rows"`
	NextCursor string    `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
}

// ExpensesPage is a keyset-paginated slice of the expense listing.
type ExpensesPage struct {
	Rows       []ExpenseRow `json:"rows"`
	NextCursor string       `json:"nextCursor,omitempty"`
	HasMore    bool         `json:"hasMore"`
}

// CashPage is a keyset-paginated slice of the cash entry listing.
type CashPage struct {
	Rows       []CashEntryRow `json:"rows"`
	NextCursor string         `json:"nextCursor,omitempty"`
	HasMore    bool           `json:"hasMore"`
}

// SumCount is an aggregate of a numeric column with its row count.
type SumCount struct {
	Total float64
	Count int64
}

// CashTotals groups cash entry sums by direction.
type CashTotals struct {
	In  float64
	Out float64
}

// DayAmount is one sparse day bucket of an aggregation, keyed by the
// business-timezone calendar day.
type DayAmount struct {
	Day    string
	Amount float64
}
