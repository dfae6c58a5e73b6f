package storage

import (
	"context"
	"database/sql"
	"log/slog"

	"smartledger/internal/core"
)

const defaultAlertLimit = 50

// ListUnread returns the newest unread alerts of userID, at most limit.
func (r *SQLiteRepository) ListUnread(ctx context.Context, userID int64, limit int) ([]core.Alert, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, related_receipt_id, is_read, created_at
		FROM alerts
		WHERE user_id = ? AND is_read = 0
		ORDER BY id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, wrapErr("list alerts", err)
	}
	defer rows.Close()

	var out []core.Alert
	for rows.Next() {
		var (
			a       core.Alert
			kind    string
			related sql.NullInt64
			created string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &kind, &a.Message, &related, &a.IsRead, &created); err != nil {
			return nil, wrapErr("scan alert", err)
		}
		a.Kind = core.AlertKind(kind)
		if related.Valid {
			id := related.Int64
			a.RelatedTransactionID = &id
		}
		a.CreatedAt = parseTimestamp(created)
		out = append(out, a)
	}
	return out, wrapErr("list alerts", rows.Err())
}

func (r *SQLiteRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, wrapErr("count unread alerts", err)
	}
	return n, nil
}

// MarkRead flags one alert as read. ErrNotFound when the alert does not
// exist or belongs to someone else. Marking an already read alert succeeds.
func (r *SQLiteRepository) MarkRead(ctx context.Context, userID, alertID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?`, alertID, userID)
	if err != nil {
		return wrapErr("mark alert read", err)
	}
	return requireRow(res, "mark alert read")
}

// MarkAllRead flags every unread alert of userID and returns how many
// changed.
func (r *SQLiteRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, wrapErr("mark all alerts read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("mark all alerts read", err)
	}
	slog.DebugContext(ctx, "Alerts marked read", "user_id", userID, "count", n)
	return n, nil
}
