// Package storage is the SQLite ledger store: receipts and their items,
// budgets, users and alerts. Writes that must be atomic with alert
// detection go through WithTx, whose *Tx also serves as the detectors'
// alerts.Ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartledger/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

// DSN builds the connection string for dbPath with the pragmas every
// connection needs.
func DSN(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := DSN(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath)
	return &SQLiteRepository{db: db}, nil
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return wrapErr("ping", r.db.PingContext(ctx))
}

// WithTx runs fn inside a database transaction. The transaction commits only
// when fn returns nil; any error, panic or context cancellation rolls it
// back.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
	}()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return wrapErr("commit", err)
	}
	committed = true
	return nil
}

// Transaction returns a receipt owned by userID, deleted or not.
func (r *SQLiteRepository) Transaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Transaction{}, wrapErr("get transaction", err)
	}
	return t, nil
}

// Items returns the line items of a receipt in insertion order.
func (r *SQLiteRepository) Items(ctx context.Context, receiptID int64) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, qty, unit_price, COALESCE(category, '')
		FROM receipt_items
		WHERE receipt_id = ?
		ORDER BY id`, receiptID)
	if err != nil {
		return nil, wrapErr("list items", err)
	}
	defer rows.Close()

	var items []core.LineItem
	for rows.Next() {
		var it core.LineItem
		if err := rows.Scan(&it.Name, &it.Qty, &it.Price, &it.Category); err != nil {
			return nil, wrapErr("scan item", err)
		}
		items = append(items, it)
	}
	return items, wrapErr("list items", rows.Err())
}

// CreateUser stores a user with an already hashed password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, name) VALUES (?, ?, ?)`,
		strings.TrimSpace(username), passwordHash, name)
	if err != nil {
		return 0, wrapErr("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr("create user", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", id, "username", username)
	return id, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.user(ctx, `WHERE username = ?`, strings.TrimSpace(username))
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	return r.user(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepository) user(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, name, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &created)
	if err != nil {
		return core.User{}, wrapErr("get user", err)
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

// AddBudget stores one budget entry. Entries for the same month add up.
func (r *SQLiteRepository) AddBudget(ctx context.Context, b core.BudgetEntry) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, month, category, amount) VALUES (?, ?, ?, ?)`,
		b.UserID, b.Month.String(), nullString(b.Category), b.Amount)
	if err != nil {
		return 0, wrapErr("add budget", err)
	}
	id, err := res.LastInsertId()
	return id, wrapErr("add budget", err)
}

// BudgetTotal is the non-transactional form of Tx.BudgetTotal.
func (r *SQLiteRepository) BudgetTotal(ctx context.Context, userID int64, month core.Month) (int64, error) {
	return budgetTotal(ctx, r.db, userID, month)
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
