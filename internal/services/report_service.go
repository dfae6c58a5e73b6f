package services

import (
	"context"
	"fmt"

	"smartledger/internal/core"
	"smartledger/internal/storage"
)

// RecentReportMonths is how many months Recent reports.
const RecentReportMonths = 6

// ReportService summarises a user's live spending by month.
type ReportService struct {
	storage *storage.SQLiteRepository
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{storage: storage}
}

// Month returns the overview of one month. Months without spending report a
// zero total.
func (s *ReportService) Month(ctx context.Context, userID int64, month core.Month) (core.MonthOverview, error) {
	if userID <= 0 {
		return core.MonthOverview{}, core.ErrInvalidUser
	}
	if month.IsZero() {
		return core.MonthOverview{}, core.ErrInvalidMonth
	}
	o, err := s.storage.ReadMonthOverview(ctx, userID, month)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("read overview %s: %w", month, err)
	}
	return o, nil
}

// Recent returns the overviews of the newest months with spending, newest
// first.
func (s *ReportService) Recent(ctx context.Context, userID int64) ([]core.MonthOverview, error) {
	if userID <= 0 {
		return nil, core.ErrInvalidUser
	}
	months, err := s.storage.SpendingMonths(ctx, userID, RecentReportMonths)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	out := make([]core.MonthOverview, 0, len(months))
	for _, m := range months {
		o, err := s.Month(ctx, userID, m)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
