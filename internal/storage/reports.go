package storage

import (
	"context"

	"smartledger/internal/core"
)

const defaultReceiptLimit = 50

// liveExpenses matches the rows that count as spending.
const liveExpenses = `user_id = ? AND status = 'CONFIRMED' AND is_deleted = 0 AND type = 'expense'`

// ReadMonthOverview returns the total and the per-category totals of live
// expenses of userID in month. Categories are ordered by amount, largest
// first.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, userID int64, month core.Month) (core.MonthOverview, error) {
	overview := core.MonthOverview{Month: month}
	from := month.Start().Format(core.DateLayout)
	to := month.Next().Start().Format(core.DateLayout)

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM receipts
		WHERE `+liveExpenses+` AND purchased_at >= ? AND purchased_at < ?`,
		userID, from, to).Scan(&overview.Total)
	if err != nil {
		return overview, wrapErr("month total", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(category, ''), ?) AS cat, SUM(total) AS amount
		FROM receipts
		WHERE `+liveExpenses+` AND purchased_at >= ? AND purchased_at < ?
		GROUP BY cat
		ORDER BY amount DESC, cat`,
		core.Uncategorized, userID, from, to)
	if err != nil {
		return overview, wrapErr("category totals", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Category, &ca.Amount); err != nil {
			return overview, wrapErr("scan category total", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	return overview, wrapErr("category totals", rows.Err())
}

// SpendingMonths returns the newest months, at most n, in which userID has
// live expenses.
func (r *SQLiteRepository) SpendingMonths(ctx context.Context, userID int64, n int) ([]core.Month, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT substr(purchased_at, 1, 7) AS month
		FROM receipts
		WHERE `+liveExpenses+`
		ORDER BY month DESC
		LIMIT ?`, userID, n)
	if err != nil {
		return nil, wrapErr("list months", err)
	}
	defer rows.Close()

	var out []core.Month
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, wrapErr("scan month", err)
		}
		m, err := core.ParseMonth(s)
		if err != nil {
			return nil, wrapErr("parse month", err)
		}
		out = append(out, m)
	}
	return out, wrapErr("list months", rows.Err())
}

// ListTransactions returns receipts of userID that are not deleted, newest
// first, paged by limit and offset.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = defaultReceiptLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, selectTransaction+`
		WHERE user_id = ? AND is_deleted = 0
		ORDER BY id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, wrapErr("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapErr("scan transaction", err)
		}
		out = append(out, t)
	}
	return out, wrapErr("list transactions", rows.Err())
}
