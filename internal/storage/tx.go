package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"smartledger/internal/alerts"
	"smartledger/internal/core"
)

var _ alerts.Ledger = (*Tx)(nil)

// Tx is the transaction-scoped view handed to WithTx callbacks. A *sql.Tx
// runs on a single connection, so calls are serialised with mu; detectors
// may share one Tx from several goroutines.
type Tx struct {
	mu sync.Mutex
	tx *sql.Tx
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectTransaction = `
	SELECT id, user_id, merchant, COALESCE(category, ''), total, purchased_at,
	       status, type, is_deleted, created_at, updated_at
	FROM receipts`

// CreateTransaction inserts a receipt and its items. total is stored as
// given; callers compute it from the items.
func (t *Tx) CreateTransaction(ctx context.Context, in core.TransactionInput, total int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO receipts (user_id, merchant, category, total, purchased_at, status, type, image_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.UserID, strings.TrimSpace(in.Merchant), nullString(in.Category), total,
		in.PurchasedAt.Format(core.DateLayout), string(in.Status), string(in.Type), nullString(in.ImagePath))
	if err != nil {
		return 0, wrapErr("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr("insert transaction", err)
	}
	if err := t.insertItems(ctx, id, in.Items); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateTransaction rewrites a live receipt owned by in.UserID and replaces
// its items. ErrNotFound when no such receipt exists.
func (t *Tx) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput, total int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.tx.ExecContext(ctx, `
		UPDATE receipts
		SET merchant = ?, category = ?, total = ?, purchased_at = ?, status = ?, type = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND is_deleted = 0`,
		strings.TrimSpace(in.Merchant), nullString(in.Category), total,
		in.PurchasedAt.Format(core.DateLayout), string(in.Status), string(in.Type), id, in.UserID)
	if err != nil {
		return wrapErr("update transaction", err)
	}
	if err := requireRow(res, "update transaction"); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM receipt_items WHERE receipt_id = ?`, id); err != nil {
		return wrapErr("delete items", err)
	}
	return t.insertItems(ctx, id, in.Items)
}

// DeleteTransaction soft-deletes a receipt owned by userID.
func (t *Tx) DeleteTransaction(ctx context.Context, userID, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.tx.ExecContext(ctx, `
		UPDATE receipts SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND is_deleted = 0`, id, userID)
	if err != nil {
		return wrapErr("delete transaction", err)
	}
	return requireRow(res, "delete transaction")
}

func (t *Tx) insertItems(ctx context.Context, receiptID int64, items []core.LineItem) error {
	for _, it := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO receipt_items (receipt_id, name, qty, unit_price, category)
			VALUES (?, ?, ?, ?, ?)`,
			receiptID, strings.TrimSpace(it.Name), it.Qty, it.Price, nullString(it.Category))
		if err != nil {
			return wrapErr("insert item", err)
		}
	}
	return nil
}

// Transaction implements alerts.Ledger.
func (t *Tx) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, err := scanTransaction(t.tx.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, wrapErr("get transaction", err)
	}
	return tr, nil
}

// SumExpenses implements alerts.Ledger.
func (t *Tx) SumExpenses(ctx context.Context, f alerts.ExpenseFilter) (alerts.Aggregate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	where, args := expenseWhere(f)
	var agg alerts.Aggregate
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0), COUNT(*) FROM receipts WHERE `+where, args...).
		Scan(&agg.Sum, &agg.Count)
	if err != nil {
		return alerts.Aggregate{}, wrapErr("sum expenses", err)
	}
	return agg, nil
}

// ExpenseMonths implements alerts.Ledger.
func (t *Tx) ExpenseMonths(ctx context.Context, f alerts.ExpenseFilter) ([]core.Month, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	where, args := expenseWhere(f)
	rows, err := t.tx.QueryContext(ctx,
		`SELECT DISTINCT substr(purchased_at, 1, 7) FROM receipts WHERE `+where+` ORDER BY 1`, args...)
	if err != nil {
		return nil, wrapErr("list expense months", err)
	}
	defer rows.Close()

	var months []core.Month
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, wrapErr("scan expense month", err)
		}
		m, err := core.ParseMonth(s)
		if err != nil {
			return nil, &StorageError{Op: "scan expense month", Err: fmt.Errorf("%q: %w", s, err)}
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list expense months", err)
	}
	return months, nil
}

// BudgetTotal implements alerts.Ledger.
func (t *Tx) BudgetTotal(ctx context.Context, userID int64, month core.Month) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return budgetTotal(ctx, t.tx, userID, month)
}

// InsertAlert implements alerts.Ledger.
func (t *Tx) InsertAlert(ctx context.Context, a core.NewAlert) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var related sql.NullInt64
	if a.RelatedTransactionID != nil {
		related = sql.NullInt64{Int64: *a.RelatedTransactionID, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO alerts (user_id, type, message, related_receipt_id) VALUES (?, ?, ?, ?)`,
		a.UserID, string(a.Kind), a.Message, related)
	if err != nil {
		return 0, wrapErr("insert alert", err)
	}
	id, err := res.LastInsertId()
	return id, wrapErr("insert alert", err)
}

func budgetTotal(ctx context.Context, q queryer, userID int64, month core.Month) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM budgets WHERE user_id = ? AND month = ?`,
		userID, month.String()).Scan(&total)
	if err != nil {
		return 0, wrapErr("sum budget", err)
	}
	return total, nil
}

// expenseWhere renders f as a WHERE clause over live expenses.
func expenseWhere(f alerts.ExpenseFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(liveExpenses)
	args := []any{f.UserID}

	if f.Category != "" {
		b.WriteString(` AND category = ?`)
		args = append(args, f.Category)
	}
	if f.Merchant != "" {
		b.WriteString(` AND merchant = ?`)
		args = append(args, f.Merchant)
	}
	if f.Band != nil {
		lo, hi := f.Band.Bounds()
		b.WriteString(` AND 100 * total BETWEEN ? AND ?`)
		args = append(args, lo, hi)
	}
	if !f.From.IsZero() {
		b.WriteString(` AND purchased_at >= ?`)
		args = append(args, f.From.Format(core.DateLayout))
	}
	if !f.To.IsZero() {
		b.WriteString(` AND purchased_at < ?`)
		args = append(args, f.To.Format(core.DateLayout))
	}
	if f.ExcludeID != 0 {
		b.WriteString(` AND id != ?`)
		args = append(args, f.ExcludeID)
	}
	return b.String(), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		purchased        string
		status, typ      string
		created, updated string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Merchant, &t.Category, &t.AmountTotal, &purchased,
		&status, &typ, &t.IsDeleted, &created, &updated)
	if err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(purchased)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("purchased_at %q: %w", purchased, err)
	}
	t.PurchasedAt = d
	t.Status = core.Status(status)
	t.Type = core.TxType(typ)
	t.CreatedAt = parseTimestamp(created)
	t.UpdatedAt = parseTimestamp(updated)
	return t, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
