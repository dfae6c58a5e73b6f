package services

import (
	"context"
	"fmt"
	"log/slog"

	"smartledger/internal/core"
	"smartledger/internal/storage"
)

// BudgetService records monthly budget entries. Detectors read the sum of
// all entries for a month.
type BudgetService struct {
	storage *storage.SQLiteRepository
}

func NewBudgetService(storage *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{storage: storage}
}

// Add stores b and returns the new month total.
func (s *BudgetService) Add(ctx context.Context, b core.BudgetEntry) (int64, error) {
	if _, err := s.storage.AddBudget(ctx, b); err != nil {
		return 0, fmt.Errorf("add budget: %w", err)
	}
	total, err := s.storage.BudgetTotal(ctx, b.UserID, b.Month)
	if err != nil {
		return 0, fmt.Errorf("sum budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget added", "user_id", b.UserID, "month", b.Month.String(), "total", total)
	return total, nil
}
