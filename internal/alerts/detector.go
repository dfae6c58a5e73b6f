// Package alerts runs the anomaly detectors that inspect a user's ledger
// right after a transaction is written. Detectors read and insert through a
// Ledger bound to the caller's database transaction, so an alert only
// exists if the write that caused it commits.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartledger/internal/core"
)

// Detector inspects one trigger transaction and inserts at most one alert.
// The absence of a condition is not an error; only Ledger failures are.
type Detector interface {
	Name() string
	Kind() core.AlertKind
	Detect(ctx context.Context, l Ledger, userID, txID int64) error
}

// Clock returns the current time. Detector windows are anchored on it.
type Clock func() time.Time

// liveTrigger loads the trigger and reports whether detectors should look at
// it: it must exist, belong to userID and be a live expense.
func liveTrigger(ctx context.Context, l Ledger, userID, txID int64) (core.Transaction, bool, error) {
	tx, err := l.Transaction(ctx, txID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("load trigger %d: %w", txID, err)
	}
	if tx.UserID != userID || !tx.Live() {
		return core.Transaction{}, false, nil
	}
	return tx, true, nil
}

func insert(ctx context.Context, l Ledger, a core.NewAlert) error {
	if _, err := l.InsertAlert(ctx, a); err != nil {
		return fmt.Errorf("insert %s alert: %w", a.Kind, err)
	}
	return nil
}

func related(id int64) *int64 { return &id }

// CategoryOverspend flags an expense larger than 2.5 times the user's
// recent average for the same category.
type CategoryOverspend struct {
	Now    Clock
	Format *Formatter
}

func (CategoryOverspend) Name() string         { return "category_overspend" }
func (CategoryOverspend) Kind() core.AlertKind { return core.AlertAnomaly }

func (d CategoryOverspend) Detect(ctx context.Context, l Ledger, userID, txID int64) error {
	tx, ok, err := liveTrigger(ctx, l, userID, txID)
	if err != nil || !ok || tx.Category == "" {
		return err
	}

	agg, err := l.SumExpenses(ctx, ExpenseFilter{
		UserID:    userID,
		Category:  tx.Category,
		From:      monthsBefore(d.Now(), 3),
		ExcludeID: tx.ID,
	})
	if err != nil {
		return fmt.Errorf("sum category history: %w", err)
	}
	if agg.Count == 0 || agg.Sum <= 0 {
		return nil
	}

	// amount > 2.5 * (sum / count)
	if 2*tx.AmountTotal*agg.Count <= 5*agg.Sum {
		return nil
	}
	return insert(ctx, l, core.NewAlert{
		UserID:               userID,
		Kind:                 core.AlertAnomaly,
		Message:              fmt.Sprintf("%s spending is higher than usual (%s)", tx.Category, d.Format.Amount(tx.AmountTotal)),
		RelatedTransactionID: related(tx.ID),
	})
}

// DailyOverspend flags a day whose spending exceeds 1.5 times the daily
// share of the monthly budget.
type DailyOverspend struct {
	Format *Formatter
}

func (DailyOverspend) Name() string         { return "daily_overspend" }
func (DailyOverspend) Kind() core.AlertKind { return core.AlertOverspend }

func (d DailyOverspend) Detect(ctx context.Context, l Ledger, userID, txID int64) error {
	tx, ok, err := liveTrigger(ctx, l, userID, txID)
	if err != nil || !ok {
		return err
	}

	month := core.MonthOf(tx.PurchasedAt)
	budget, err := l.BudgetTotal(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("load budget %s: %w", month, err)
	}
	if budget <= 0 {
		return nil
	}
	days := int64(month.DaysIn())

	from, to := dayWindow(tx.PurchasedAt)
	agg, err := l.SumExpenses(ctx, ExpenseFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return fmt.Errorf("sum day total: %w", err)
	}

	// dayTotal > 1.5 * budget / days
	if 2*agg.Sum*days <= 3*budget {
		return nil
	}
	return insert(ctx, l, core.NewAlert{
		UserID: userID,
		Kind:   core.AlertOverspend,
		Message: fmt.Sprintf("Spending on %s exceeded the daily target of %s (%s)",
			tx.Day(), d.Format.Amount(budget/days), d.Format.Amount(agg.Sum)),
		RelatedTransactionID: related(tx.ID),
	})
}

// FixedCost flags a merchant charged a similar amount (within 5%) in at
// least three distinct months of the last four.
type FixedCost struct {
	Now Clock
}

const (
	fixedCostTolerance = 5
	fixedCostMinMonths = 3
)

func (FixedCost) Name() string         { return "fixed_cost" }
func (FixedCost) Kind() core.AlertKind { return core.AlertFixedDetected }

func (d FixedCost) Detect(ctx context.Context, l Ledger, userID, txID int64) error {
	tx, ok, err := liveTrigger(ctx, l, userID, txID)
	if err != nil || !ok {
		return err
	}

	months, err := l.ExpenseMonths(ctx, ExpenseFilter{
		UserID:   userID,
		Merchant: tx.Merchant,
		Band:     &Band{Center: tx.AmountTotal, Percent: fixedCostTolerance},
		From:     monthsBefore(d.Now(), 4),
	})
	if err != nil {
		return fmt.Errorf("list merchant months: %w", err)
	}
	if len(months) < fixedCostMinMonths {
		return nil
	}
	return insert(ctx, l, core.NewAlert{
		UserID:               userID,
		Kind:                 core.AlertFixedDetected,
		Message:              fmt.Sprintf("Looks like a recurring expense (%s)", tx.Merchant),
		RelatedTransactionID: related(tx.ID),
	})
}

// MonthlyBudget flags a month whose spending is over its budget.
type MonthlyBudget struct {
	Format *Formatter
}

func (MonthlyBudget) Name() string         { return "monthly_budget" }
func (MonthlyBudget) Kind() core.AlertKind { return core.AlertBudgetExceeded }

func (d MonthlyBudget) Detect(ctx context.Context, l Ledger, userID, txID int64) error {
	tx, ok, err := liveTrigger(ctx, l, userID, txID)
	if err != nil || !ok {
		return err
	}

	month := core.MonthOf(tx.PurchasedAt)
	budget, err := l.BudgetTotal(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("load budget %s: %w", month, err)
	}
	if budget <= 0 {
		return nil
	}

	from, to := monthWindow(month)
	agg, err := l.SumExpenses(ctx, ExpenseFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return fmt.Errorf("sum month total: %w", err)
	}
	if agg.Sum <= budget {
		return nil
	}
	return insert(ctx, l, core.NewAlert{
		UserID:  userID,
		Kind:    core.AlertBudgetExceeded,
		Message: fmt.Sprintf("%s budget exceeded (%s spent)", month, d.Format.Amount(agg.Sum)),
	})
}

// DefaultDetectors returns the four built-in detectors sharing now and f.
func DefaultDetectors(now Clock, f *Formatter) []Detector {
	if now == nil {
		now = time.Now
	}
	if f == nil {
		f = DefaultFormatter()
	}
	return []Detector{
		CategoryOverspend{Now: now, Format: f},
		DailyOverspend{Format: f},
		FixedCost{Now: now},
		MonthlyBudget{Format: f},
	}
}
