package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"smartledger/internal/alerts"
	"smartledger/internal/core"
	"smartledger/internal/log"
	"smartledger/internal/storage"
)

// TransactionService writes receipts and runs alert detection in the same
// database transaction: a receipt is never stored without its alerts and an
// alert never outlives a rolled back receipt.
type TransactionService struct {
	storage *storage.SQLiteRepository
	engine  *alerts.Engine
	alerts  *AlertService
}

// WriteResult describes a committed write.
type WriteResult struct {
	ID     int64
	Total  int64
	Alerts []core.AlertKind
}

func NewTransactionService(storage *storage.SQLiteRepository, engine *alerts.Engine, alerts *AlertService) *TransactionService {
	return &TransactionService{
		storage: storage,
		engine:  engine,
		alerts:  alerts,
	}
}

// Confirm stores a new receipt. The stored total is the sum of its items and
// the category defaults to the one carrying most of the amount.
func (s *TransactionService) Confirm(ctx context.Context, in core.TransactionInput) (WriteResult, error) {
	in, total, err := prepare(in)
	if err != nil {
		return WriteResult{}, err
	}

	var res WriteResult
	err = s.storage.WithTx(ctx, func(tx *storage.Tx) error {
		id, err := tx.CreateTransaction(ctx, in, total)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		detected, err := s.engine.Run(ctx, tx, in.UserID, id)
		if err != nil {
			return fmt.Errorf("run detectors: %w", err)
		}
		res = WriteResult{ID: id, Total: total, Alerts: detected.Kinds}
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}

	s.afterCommit(in.UserID, res)
	logWrite(ctx, log.OpCreate, "Transaction confirmed", in.UserID, res)
	return res, nil
}

// Update rewrites a receipt owned by in.UserID and re-runs detection. Alerts
// from earlier writes are kept.
func (s *TransactionService) Update(ctx context.Context, id int64, in core.TransactionInput) (WriteResult, error) {
	in, total, err := prepare(in)
	if err != nil {
		return WriteResult{}, err
	}

	var res WriteResult
	err = s.storage.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.UpdateTransaction(ctx, id, in, total); err != nil {
			return fmt.Errorf("update transaction %d: %w", id, err)
		}
		detected, err := s.engine.Run(ctx, tx, in.UserID, id)
		if err != nil {
			return fmt.Errorf("run detectors: %w", err)
		}
		res = WriteResult{ID: id, Total: total, Alerts: detected.Kinds}
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}

	s.afterCommit(in.UserID, res)
	logWrite(ctx, log.OpUpdate, "Transaction updated", in.UserID, res)
	return res, nil
}

// Delete soft-deletes a receipt. Deleted rows drop out of every detector
// query; their alerts stay.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	err := s.storage.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.DeleteTransaction(ctx, userID, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	logWrite(ctx, log.OpDelete, "Transaction deleted", userID, WriteResult{ID: id})
	return nil
}

// Get returns a live receipt of userID with its items. Deleted receipts are
// reported as not found.
func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, []core.LineItem, error) {
	t, err := s.storage.Transaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	if t.IsDeleted {
		return core.Transaction{}, nil, fmt.Errorf("get transaction %d: %w", id, storage.ErrNotFound)
	}
	items, err := s.storage.Items(ctx, id)
	if err != nil {
		return core.Transaction{}, nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, items, nil
}

// List returns a page of the user's receipts, newest first. Deleted receipts
// are left out.
func (s *TransactionService) List(ctx context.Context, userID int64, limit, offset int) ([]core.Transaction, error) {
	list, err := s.storage.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}

func (s *TransactionService) afterCommit(userID int64, res WriteResult) {
	if len(res.Alerts) > 0 && s.alerts != nil {
		s.alerts.Invalidate(userID)
	}
}

func logWrite(ctx context.Context, op, msg string, userID int64, res WriteResult) {
	kinds := make([]string, 0, len(res.Alerts))
	for _, k := range res.Alerts {
		kinds = append(kinds, string(k))
	}
	fields := log.NewFields().
		WithOperation(op).
		WithUser(userID).
		WithTransaction(res.ID).
		WithAlertKinds(kinds)
	log.FromContext(ctx).WithComponent(log.ComponentLedger).LogFields(ctx, slog.LevelInfo, msg, fields)
}

func prepare(in core.TransactionInput) (core.TransactionInput, int64, error) {
	in.Merchant = strings.TrimSpace(in.Merchant)
	in.Category = strings.TrimSpace(in.Category)
	if in.Status == "" {
		in.Status = core.StatusConfirmed
	}
	if in.Type == "" {
		in.Type = core.TypeExpense
	}
	if err := in.Validate(); err != nil {
		return in, 0, err
	}
	total, err := core.TotalOf(in.Items)
	if err != nil {
		return in, 0, err
	}
	if in.Category == "" {
		in.Category = core.DominantCategory(in.Items)
	}
	return in, total, nil
}
