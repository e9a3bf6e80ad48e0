package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Window is the date filter handed to the storage layer. Nil bounds leave
// that side of the interval open; a fully open window queries all rows.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// WindowOf converts a concrete bounded range into a storage window.
func WindowOf(br BoundedRange) Window {
	start, end := br.Start, br.End
	return Window{Start: &start, End: &end}
}

// Repository exposes the read-only aggregation and page queries the
// engine runs against the storage collaborator. All sums are computed as
// numeric in the database and converted to float64 only at this boundary;
// NULL aggregates coerce to zero.
type Repository interface {
	SalesTotals(ctx context.Context, shopID int64, w Window) (SumCount, error)
	VoidedSalesCount(ctx context.Context, shopID int64, w Window) (int64, error)
	ExpenseTotals(ctx context.Context, shopID int64, w Window) (SumCount, error)
	CashTotals(ctx context.Context, shopID int64, w Window) (CashTotals, error)
	COGSTotal(ctx context.Context, shopID int64, w Window) (float64, error)
	SalesByDay(ctx context.Context, shopID int64, w Window, tzOffsetSeconds int) ([]DayAmount, error)
	ExpensesByDay(ctx context.Context, shopID int64, w Window, tzOffsetSeconds int) ([]DayAmount, error)
	COGSByDay(ctx context.Context, shopID int64, w Window, tzOffsetSeconds int) ([]DayAmount, error)
	PaymentMethodTotals(ctx context.Context, shopID int64, w Window) ([]PaymentMethodTotal, error)
	TopProducts(ctx context.Context, shopID int64, limit int) ([]TopProduct, error)
	LowStock(ctx context.Context, shopID int64, threshold int64) ([]LowStockProduct, error)
	ShopBusinessType(ctx context.Context, shopID int64) (BusinessType, error)
	HasShopAccess(ctx context.Context, shopID, userID int64) (bool, error)
	SalesPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]SaleRow, error)
	ExpensesPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]ExpenseRow, error)
	CashPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]CashEntryRow, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// filterBuilder accumulates WHERE conditions with numbered args, the same
// way the listing repositories build their dynamic filters.
type filterBuilder struct {
	conditions []string
	args       []interface{}
}

func (f *filterBuilder) add(condition string, args ...interface{}) {
	positions := make([]interface{}, 0, len(args))
	for _, arg := range args {
		f.args = append(f.args, arg)
		positions = append(positions, len(f.args))
	}
	f.conditions = append(f.conditions, fmt.Sprintf(condition, positions...))
}

func (f *filterBuilder) window(column string, w Window) {
	if w.Start != nil {
		f.add(column+" >= $%d", *w.Start)
	}
	if w.End != nil {
		f.add(column+" <= $%d", *w.End)
	}
}

func (f *filterBuilder) where() string {
	if len(f.conditions) == 0 {
		return ""
	}
	clause := "WHERE " + f.conditions[0]
	for i := 1; i < len(f.conditions); i++ {
		clause += " AND " + f.conditions[i]
	}
	return clause
}

func (f *filterBuilder) next(arg interface{}) int {
	f.args = append(f.args, arg)
	return len(f.args)
}

func numericToFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0
	}
	return f.Float64
}

func (r *repository) SalesTotals(ctx context.Context, shopID int64, w Window) (SumCount, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.add("status <> $%d", string(SaleVoided))
	fb.window("sale_date", w)

	query := fmt.Sprintf(`SELECT COALESCE(SUM(total_amount), 0)::numeric, COUNT(*) FROM sales %s`, fb.where())
	var total pgtype.Numeric
	var count int64
	if err := r.db.QueryRow(ctx, query, fb.args...).Scan(&total, &count); err != nil {
		return SumCount{}, shared.StorageError("sales totals", err)
	}
	return SumCount{Total: numericToFloat(total), Count: count}, nil
}

func (r *repository) VoidedSalesCount(ctx context.Context, shopID int64, w Window) (int64, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.add("status = $%d", string(SaleVoided))
	fb.window("sale_date", w)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM sales %s`, fb.where())
	var count int64
	if err := r.db.QueryRow(ctx, query, fb.args...).Scan(&count); err != nil {
		return 0, shared.StorageError("voided sales count", err)
	}
	return count, nil
}

func (r *repository) ExpenseTotals(ctx context.Context, shopID int64, w Window) (SumCount, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.window("expense_date", w)

	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0)::numeric, COUNT(*) FROM expenses %s`, fb.where())
	var total pgtype.Numeric
	var count int64
	if err := r.db.QueryRow(ctx, query, fb.args...).Scan(&total, &count); err != nil {
		return SumCount{}, shared.StorageError("expense totals", err)
	}
	return SumCount{Total: numericToFloat(total), Count: count}, nil
}

func (r *repository) CashTotals(ctx context.Context, shopID int64, w Window) (CashTotals, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.window("created_at", w)

	query := fmt.Sprintf(`SELECT entry_type, COALESCE(SUM(amount), 0)::numeric FROM cash_entries %s GROUP BY entry_type`, fb.where())
	rows, err := r.db.Query(ctx, query, fb.args...)
	if err != nil {
		return CashTotals{}, shared.StorageError("cash totals", err)
	}
	defer rows.Close()

	var totals CashTotals
	for rows.Next() {
		var entryType string
		var amount pgtype.Numeric
		if err := rows.Scan(&entryType, &amount); err != nil {
			return CashTotals{}, shared.StorageError("cash totals scan", err)
		}
		switch CashEntryType(entryType) {
		case CashIn:
			totals.In = numericToFloat(amount)
		case CashOut:
			totals.Out = numericToFloat(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return CashTotals{}, shared.StorageError("cash totals rows", err)
	}
	return totals, nil
}

// cogsFilter builds the shared join filter for cost-of-goods queries:
// items of non-voided sales, unit cost falling back from the sale-time
// snapshot to the product's current buy price.
func cogsFilter(shopID int64, w Window) *filterBuilder {
	fb := &filterBuilder{}
	fb.add("s.shop_id = $%d", shopID)
	fb.add("s.status <> $%d", string(SaleVoided))
	fb.window("s.sale_date", w)
	return fb
}

func (r *repository) COGSTotal(ctx context.Context, shopID int64, w Window) (float64, error) {
	fb := cogsFilter(shopID, w)
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(si.quantity * COALESCE(si.cost_at_sale, p.buy_price, 0)), 0)::numeric
		FROM sale_items si
		JOIN sales s ON si.sale_id = s.id
		LEFT JOIN products p ON si.product_id = p.id
		%s`, fb.where())
	var total pgtype.Numeric
	if err := r.db.QueryRow(ctx, query, fb.args...).Scan(&total); err != nil {
		return 0, shared.StorageError("cogs total", err)
	}
	return numericToFloat(total), nil
}

// dayBucket renders a UTC instant as its business-timezone calendar day.
// Shifting the UTC-naive timestamp by the zone offset keeps the bucketing
// independent of the database server's timezone setting.
func dayBucket(column string, offsetArg int) string {
	return fmt.Sprintf("to_char((%s AT TIME ZONE 'UTC') + make_interval(secs => $%d), 'YYYY-MM-DD')", column, offsetArg)
}

func (r *repository) scanDayAmounts(ctx context.Context, query string, args []interface{}, op string) ([]DayAmount, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.StorageError(op, err)
	}
	defer rows.Close()

	var out []DayAmount
	for rows.Next() {
		var day string
		var amount pgtype.Numeric
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, shared.StorageError(op+" scan", err)
		}
		out = append(out, DayAmount{Day: day, Amount: numericToFloat(amount)})
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError(op+" rows", err)
	}
	return out, nil
}

func (r *repository) SalesByDay(ctx context.Context, shopID int64, w Window, tzOffsetSeconds int) ([]DayAmount, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.add("status <> $%d", string(SaleVoided))
	fb.window("sale_date", w)
	day := dayBucket("sale_date", fb.next(tzOffsetSeconds))

	query := fmt.Sprintf(`SELECT %s AS day, COALESCE(SUM(total_amount), 0)::numeric FROM sales %s GROUP BY day ORDER BY day`, day, fb.where())
	return r.scanDayAmounts(ctx, query, fb.args, "sales by day")
}

func (r *repository) ExpensesByDay(ctx context.Context, shopID int64, w Window, tzOffsetSeconds int) ([]DayAmount, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.window("expense_date", w)
	day := dayBucket("expense_date", fb.next(tzOffsetSeconds))

	query := fmt.Sprintf(`SELECT %s AS day, COALESCE(SUM(amount), 0)::numeric FROM expenses %s GROUP BY day ORDER BY day`, day, fb.where())
	return r.scanDayAmounts(ctx, query, fb.args, "expenses by day")
}

func (r *repository) COGSByDay(ctx context.Context, shopID int64, w Window, tzOffsetSeconds int) ([]DayAmount, error) {
	fb := cogsFilter(shopID, w)
	day := dayBucket("s.sale_date", fb.next(tzOffsetSeconds))

	query := fmt.Sprintf(`
		SELECT %s AS day, COALESCE(SUM(si.quantity * COALESCE(si.cost_at_sale, p.buy_price, 0)), 0)::numeric
		FROM sale_items si
		JOIN sales s ON si.sale_id = s.id
		LEFT JOIN products p ON si.product_id = p.id
		%s GROUP BY day ORDER BY day`, day, fb.where())
	return r.scanDayAmounts(ctx, query, fb.args, "cogs by day")
}

func (r *repository) PaymentMethodTotals(ctx context.Context, shopID int64, w Window) ([]PaymentMethodTotal, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.add("status <> $%d", string(SaleVoided))
	fb.window("sale_date", w)

	query := fmt.Sprintf(`
		SELECT payment_method, COALESCE(SUM(total_amount), 0)::numeric, COUNT(*)
		FROM sales %s
		GROUP BY payment_method
		ORDER BY 2 DESC`, fb.where())
	rows, err := r.db.Query(ctx, query, fb.args...)
	if err != nil {
		return nil, shared.StorageError("payment method totals", err)
	}
	defer rows.Close()

	var out []PaymentMethodTotal
	for rows.Next() {
		var item PaymentMethodTotal
		var value pgtype.Numeric
		if err := rows.Scan(&item.Name, &value, &item.Count); err != nil {
			return nil, shared.StorageError("payment method scan", err)
		}
		item.Value = numericToFloat(value)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("payment method rows", err)
	}
	return out, nil
}

func (r *repository) TopProducts(ctx context.Context, shopID int64, limit int) ([]TopProduct, error) {
	query := `
		SELECT si.product_id, COALESCE(p.name, si.product_id),
		       COALESCE(SUM(si.quantity), 0)::numeric, COALESCE(SUM(si.line_total), 0)::numeric
		FROM sale_items si
		JOIN sales s ON si.sale_id = s.id
		LEFT JOIN products p ON si.product_id = p.id
		WHERE s.shop_id = $1 AND s.status <> $2
		GROUP BY si.product_id, p.name
		ORDER BY SUM(si.line_total) DESC
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, shopID, string(SaleVoided), limit)
	if err != nil {
		return nil, shared.StorageError("top products", err)
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var item TopProduct
		var qty, revenue pgtype.Numeric
		if err := rows.Scan(&item.ProductID, &item.Name, &qty, &revenue); err != nil {
			return nil, shared.StorageError("top products scan", err)
		}
		item.Qty = numericToFloat(qty)
		item.Revenue = numericToFloat(revenue)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("top products rows", err)
	}
	return out, nil
}

func (r *repository) LowStock(ctx context.Context, shopID int64, threshold int64) ([]LowStockProduct, error) {
	query := `
		SELECT id, name, stock_qty
		FROM products
		WHERE shop_id = $1 AND is_active AND track_stock AND stock_qty <= $2
		ORDER BY stock_qty ASC`
	rows, err := r.db.Query(ctx, query, shopID, threshold)
	if err != nil {
		return nil, shared.StorageError("low stock", err)
	}
	defer rows.Close()

	var out []LowStockProduct
	for rows.Next() {
		var item LowStockProduct
		if err := rows.Scan(&item.ID, &item.Name, &item.StockQty); err != nil {
			return nil, shared.StorageError("low stock scan", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("low stock rows", err)
	}
	return out, nil
}

func (r *repository) ShopBusinessType(ctx context.Context, shopID int64) (BusinessType, error) {
	var businessType string
	err := r.db.QueryRow(ctx, `SELECT business_type FROM shops WHERE id = $1`, shopID).Scan(&businessType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", shared.StorageError("shop business type", err)
	}
	return BusinessType(businessType), nil
}

func (r *repository) HasShopAccess(ctx context.Context, shopID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shop_members WHERE shop_id = $1 AND user_id = $2)`,
		shopID, userID).Scan(&exists)
	if err != nil {
		return false, shared.StorageError("shop access", err)
	}
	return exists, nil
}

// pageFilter appends the keyset predicate: rows strictly below the cursor
// under the (at, id) tuple order.
func pageFilter(fb *filterBuilder, atColumn string, cursor *Cursor) {
	if cursor != nil {
		fb.add("("+atColumn+", id) < ($%d, $%d)", cursor.At, cursor.ID)
	}
}

func (r *repository) SalesPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]SaleRow, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.window("sale_date", w)
	pageFilter(fb, "sale_date", cursor)

	query := fmt.Sprintf(`
		SELECT id, sale_date, total_amount::numeric, status, payment_method
		FROM sales %s
		ORDER BY sale_date DESC, id DESC
		LIMIT $%d`, fb.where(), fb.next(fetch))
	rows, err := r.db.Query(ctx, query, fb.args...)
	if err != nil {
		return nil, shared.StorageError("sales page", err)
	}
	defer rows.Close()

	var out []SaleRow
	for rows.Next() {
		var row SaleRow
		var amount pgtype.Numeric
		var status string
		if err := rows.Scan(&row.ID, &row.SaleDate, &amount, &status, &row.PaymentMethod); err != nil {
			return nil, shared.StorageError("sales page scan", err)
		}
		row.TotalAmount = numericToFloat(amount)
		row.Status = SaleStatus(status)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("sales page rows", err)
	}
	return out, nil
}

func (r *repository) ExpensesPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]ExpenseRow, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.window("expense_date", w)
	pageFilter(fb, "expense_date", cursor)

	query := fmt.Sprintf(`
		SELECT id, expense_date, amount::numeric, category
		FROM expenses %s
		ORDER BY expense_date DESC, id DESC
		LIMIT $%d`, fb.where(), fb.next(fetch))
	rows, err := r.db.Query(ctx, query, fb.args...)
	if err != nil {
		return nil, shared.StorageError("expenses page", err)
	}
	defer rows.Close()

	var out []ExpenseRow
	for rows.Next() {
		var row ExpenseRow
		var amount pgtype.Numeric
		if err := rows.Scan(&row.ID, &row.ExpenseDate, &amount, &row.Category); err != nil {
			return nil, shared.StorageError("expenses page scan", err)
		}
		row.Amount = numericToFloat(amount)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("expenses page rows", err)
	}
	return out, nil
}

func (r *repository) CashPage(ctx context.Context, shopID int64, w Window, cursor *Cursor, fetch int) ([]CashEntryRow, error) {
	fb := &filterBuilder{}
	fb.add("shop_id = $%d", shopID)
	fb.window("created_at", w)
	pageFilter(fb, "created_at", cursor)

	query := fmt.Sprintf(`
		SELECT id, entry_type, amount::numeric, created_at
		FROM cash_entries %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, fb.where(), fb.next(fetch))
	rows, err := r.db.Query(ctx, query, fb.args...)
	if err != nil {
		return nil, shared.StorageError("cash page", err)
	}
	defer rows.Close()

	var out []CashEntryRow
	for rows.Next() {
		var row CashEntryRow
		var amount pgtype.Numeric
		var entryType string
		if err := rows.Scan(&row.ID, &entryType, &amount, &row.CreatedAt); err != nil {
			return nil, shared.StorageError("cash page scan", err)
		}
		row.Amount = numericToFloat(amount)
		row.EntryType = CashEntryType(entryType)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("cash page rows", err)
	}
	return out, nil
}
