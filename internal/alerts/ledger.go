package alerts

import (
	"context"
	"time"

	"smartledger/internal/core"
)

// Ledger is the read/write surface detectors see. Implementations run every
// call on the caller's open transaction, and only ever match live expenses:
// confirmed, not deleted, type expense.
type Ledger interface {
	// Transaction returns the row with the given id, live or not.
	// core.ErrNotFound when absent.
	Transaction(ctx context.Context, id int64) (core.Transaction, error)
	SumExpenses(ctx context.Context, f ExpenseFilter) (Aggregate, error)
	// ExpenseMonths returns the distinct months with at least one match.
	ExpenseMonths(ctx context.Context, f ExpenseFilter) ([]core.Month, error)
	// BudgetTotal sums every budget entry of the user for month.
	BudgetTotal(ctx context.Context, userID int64, month core.Month) (int64, error)
	InsertAlert(ctx context.Context, a core.NewAlert) (int64, error)
}

// ExpenseFilter narrows a query over live expenses. Zero values mean "any".
type ExpenseFilter struct {
	UserID   int64
	Category string
	Merchant string
	Band     *Band
	// From is inclusive, To exclusive. Only the date part is compared.
	From time.Time
	To   time.Time
	// ExcludeID leaves one transaction out, usually the trigger.
	ExcludeID int64
}

// Aggregate is the sum and row count of matching expenses.
type Aggregate struct {
	Sum   int64
	Count int64
}

// Band matches amounts within Percent of Center, bounds included.
type Band struct {
	Center  int64
	Percent int64
}

// Bounds returns the inclusive range for 100*amount.
func (b Band) Bounds() (lo, hi int64) {
	return (100 - b.Percent) * b.Center, (100 + b.Percent) * b.Center
}

func (b Band) Contains(amount int64) bool {
	lo, hi := b.Bounds()
	return 100*amount >= lo && 100*amount <= hi
}

// Matches reports whether t passes every condition of f, including the live
// check. Ledger implementations without a query language use it directly.
func (f ExpenseFilter) Matches(t core.Transaction) bool {
	if !t.Live() || t.UserID != f.UserID {
		return false
	}
	if f.ExcludeID != 0 && t.ID == f.ExcludeID {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Merchant != "" && t.Merchant != f.Merchant {
		return false
	}
	if f.Band != nil && !f.Band.Contains(t.AmountTotal) {
		return false
	}
	day := t.Day()
	if !f.From.IsZero() && day < f.From.Format(core.DateLayout) {
		return false
	}
	if !f.To.IsZero() && day >= f.To.Format(core.DateLayout) {
		return false
	}
	return true
}

// dayWindow returns the [day, day+1) range of t.
func dayWindow(t time.Time) (time.Time, time.Time) {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d, d.AddDate(0, 0, 1)
}

// monthWindow returns the [first day, first day of next month) range.
func monthWindow(m core.Month) (time.Time, time.Time) {
	return m.Start(), m.Next().Start()
}

// monthsBefore returns the date n months before now's calendar day.
func monthsBefore(now time.Time, n int) time.Time {
	d, _ := dayWindow(now)
	return d.AddDate(0, -n, 0)
}
