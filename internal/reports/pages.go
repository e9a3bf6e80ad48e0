package reports

import (
	"context"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Page queries fetch limit+1 rows to detect a following page, trim to the
// limit, and issue the trimmed last row's sort key as the next cursor.
// Results are never cached: keyset pages are already a single indexed
// query and must reflect writes immediately.

// SalesPage returns one keyset page of the sales listing, voided rows
// included (listings show the full ledger; summaries exclude them).
func (s *Service) SalesPage(ctx context.Context, shopID int64, from, to string, limit int, cursorToken string) (SalesPage, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewSales); err != nil {
		return SalesPage{}, err
	}
	w := s.listWindow(from, to)
	limit = s.clampLimit(limit)
	cursor := s.codec.DecodeCursor(cursorToken)

	rows, err := s.repo.SalesPage(ctx, shopID, w, cursor, limit+1)
	if err != nil {
		return SalesPage{}, err
	}
	page := SalesPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	page.Rows = rows
	if page.HasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = s.codec.EncodeCursor(Cursor{At: last.SaleDate, ID: last.ID})
	}
	return page, nil
}

// ExpensesPage returns one keyset page of the expense listing.
func (s *Service) ExpensesPage(ctx context.Context, shopID int64, from, to string, limit int, cursorToken string) (ExpensesPage, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewExpenses); err != nil {
		return ExpensesPage{}, err
	}
	w := s.listWindow(from, to)
	limit = s.clampLimit(limit)
	cursor := s.codec.DecodeCursor(cursorToken)

	rows, err := s.repo.ExpensesPage(ctx, shopID, w, cursor, limit+1)
	if err != nil {
		return ExpensesPage{}, err
	}
	page := ExpensesPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	page.Rows = rows
	if page.HasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = s.codec.EncodeCursor(Cursor{At: last.ExpenseDate, ID: last.ID})
	}
	return page, nil
}

// CashPage returns one keyset page of the cash entry listing.
func (s *Service) CashPage(ctx context.Context, shopID int64, from, to string, limit int, cursorToken string) (CashPage, error) {
	if err := s.gate.Authorize(ctx, shopID, shared.PermReportsViewCash); err != nil {
		return CashPage{}, err
	}
	w := s.listWindow(from, to)
	limit = s.clampLimit(limit)
	cursor := s.codec.DecodeCursor(cursorToken)

	rows, err := s.repo.CashPage(ctx, shopID, w, cursor, limit+1)
	if err != nil {
		return CashPage{}, err
	}
	page := CashPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	page.Rows = rows
	if page.HasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = s.codec.EncodeCursor(Cursor{At: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
