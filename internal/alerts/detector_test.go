package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartledger/internal/core"
)

const user = int64(1)

func TestCategoryOverspend(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		wantHit bool
	}{
		{"well above average", 30000, true},
		{"below threshold", 24000, false},
		{"exactly two and a half times", 25000, false},
		{"just above threshold", 25001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newMemLedger()
			l.addExpense(user, "Mart", "Groceries", 10000, "2025-08-01")
			l.addExpense(user, "Mart", "Groceries", 10000, "2025-08-10")
			l.addExpense(user, "Mart", "Groceries", 10000, "2025-09-01")
			trigger := l.addExpense(user, "Mart", "Groceries", tt.amount, "2025-09-15")

			d := CategoryOverspend{Now: fixedClock("2025-09-15"), Format: DefaultFormatter()}
			require.NoError(t, d.Detect(context.Background(), l, user, trigger))

			got := l.alertsOf(core.AlertAnomaly)
			if !tt.wantHit {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, trigger, *got[0].RelatedTransactionID)
			assert.Contains(t, got[0].Message, "Groceries")
			assert.Contains(t, got[0].Message, DefaultFormatter().Amount(tt.amount))
		})
	}
}

func TestCategoryOverspend_Skips(t *testing.T) {
	ctx := context.Background()
	d := CategoryOverspend{Now: fixedClock("2025-09-15"), Format: DefaultFormatter()}

	t.Run("no history", func(t *testing.T) {
		l := newMemLedger()
		id := l.addExpense(user, "Mart", "Groceries", 99000, "2025-09-15")
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("history older than three months", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Mart", "Groceries", 1000, "2025-06-14")
		id := l.addExpense(user, "Mart", "Groceries", 99000, "2025-09-15")
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("no category", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Mart", "", 1000, "2025-09-01")
		id := l.addExpense(user, "Mart", "", 99000, "2025-09-15")
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("pending trigger", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Mart", "Groceries", 1000, "2025-09-01")
		d0, _ := core.ParseDate("2025-09-15")
		id := l.add(core.Transaction{UserID: user, Merchant: "Mart", Category: "Groceries",
			AmountTotal: 99000, PurchasedAt: d0, Status: core.StatusPending, Type: core.TypeExpense})
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("other users history ignored", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(2, "Mart", "Groceries", 1000, "2025-09-01")
		id := l.addExpense(user, "Mart", "Groceries", 99000, "2025-09-15")
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("trigger of another user", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Mart", "Groceries", 1000, "2025-09-01")
		id := l.addExpense(2, "Mart", "Groceries", 99000, "2025-09-15")
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("missing trigger", func(t *testing.T) {
		l := newMemLedger()
		require.NoError(t, d.Detect(ctx, l, user, 404))
		assert.Empty(t, l.alerts)
	})
}

func TestDailyOverspend(t *testing.T) {
	ctx := context.Background()
	d := DailyOverspend{Format: DefaultFormatter()}

	// 300,000 over 30 days: target 10,000, threshold 15,000.
	tests := []struct {
		name    string
		amounts []int64
		wantHit bool
	}{
		{"over threshold", []int64{9000, 7000}, true},
		{"exactly threshold", []int64{15000}, false},
		{"under threshold", []int64{12000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newMemLedger()
			l.addBudget(user, "2025-09", 200000)
			l.addBudget(user, "2025-09", 100000)
			l.addExpense(user, "Cafe", "Food", 50000, "2025-09-09")
			var trigger int64
			for _, a := range tt.amounts {
				trigger = l.addExpense(user, "Cafe", "Food", a, "2025-09-10")
			}

			require.NoError(t, d.Detect(ctx, l, user, trigger))
			got := l.alertsOf(core.AlertOverspend)
			if !tt.wantHit {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Contains(t, got[0].Message, "2025-09-10")
			assert.Contains(t, got[0].Message, "10,000 KRW")
			assert.Contains(t, got[0].Message, "16,000 KRW")
		})
	}

	t.Run("no budget", func(t *testing.T) {
		l := newMemLedger()
		id := l.addExpense(user, "Cafe", "Food", 1_000_000, "2025-09-10")
		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})
}

func TestFixedCost(t *testing.T) {
	ctx := context.Background()
	d := FixedCost{Now: fixedClock("2025-09-15")}

	t.Run("three trailing months and current", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-06-20")
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-07-20")
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-08-20")
		id := l.addExpense(user, "Netflix", "Subscriptions", 9950, "2025-09-15")

		require.NoError(t, d.Detect(ctx, l, user, id))
		got := l.alertsOf(core.AlertFixedDetected)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "Netflix")
		assert.Equal(t, id, *got[0].RelatedTransactionID)
	})

	t.Run("only two distinct months", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-08-01")
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-08-20")
		id := l.addExpense(user, "Netflix", "Subscriptions", 9950, "2025-09-15")

		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("amounts outside band", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Netflix", "Subscriptions", 13500, "2025-06-20")
		l.addExpense(user, "Netflix", "Subscriptions", 9400, "2025-07-20")
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-08-20")
		l.addExpense(user, "Gym", "Health", 9950, "2025-07-20")
		id := l.addExpense(user, "Netflix", "Subscriptions", 9950, "2025-09-15")

		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})

	t.Run("largest storable amount", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Lease", "Housing", core.MaxAmount, "2025-06-20")
		l.addExpense(user, "Lease", "Housing", core.MaxAmount, "2025-07-20")
		l.addExpense(user, "Lease", "Housing", core.MaxAmount, "2025-08-20")
		id := l.addExpense(user, "Lease", "Housing", core.MaxAmount, "2025-09-15")

		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Len(t, l.alertsOf(core.AlertFixedDetected), 1)
	})

	t.Run("deleted rows ignored", func(t *testing.T) {
		l := newMemLedger()
		l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-08-20")
		d0, _ := core.ParseDate("2025-06-20")
		l.add(core.Transaction{UserID: user, Merchant: "Netflix", AmountTotal: 9900, PurchasedAt: d0,
			Status: core.StatusConfirmed, Type: core.TypeExpense, IsDeleted: true})
		id := l.addExpense(user, "Netflix", "Subscriptions", 9950, "2025-09-15")

		require.NoError(t, d.Detect(ctx, l, user, id))
		assert.Empty(t, l.alerts)
	})
}

func TestMonthlyBudget(t *testing.T) {
	ctx := context.Background()
	d := MonthlyBudget{Format: DefaultFormatter()}

	tests := []struct {
		name    string
		last    int64
		wantHit bool
	}{
		{"over budget", 10000, true},
		{"exactly at budget", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newMemLedger()
			l.addBudget(user, "2025-09", 500000)
			l.addExpense(user, "Rent", "Housing", 450000, "2025-09-01")
			l.addExpense(user, "Rent", "Housing", 100000, "2025-08-31")
			trigger := l.addExpense(user, "Mart", "Groceries", 50000+tt.last, "2025-09-20")

			require.NoError(t, d.Detect(ctx, l, user, trigger))
			got := l.alertsOf(core.AlertBudgetExceeded)
			if !tt.wantHit {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Nil(t, got[0].RelatedTransactionID)
			assert.Contains(t, got[0].Message, "2025-09")
			assert.Contains(t, got[0].Message, "510,000 KRW")
		})
	}
}

func TestDetectors_PropagateLedgerErrors(t *testing.T) {
	boom := errors.New("disk I/O error")
	ctx := context.Background()

	l := newMemLedger()
	l.addBudget(user, "2025-09", 1)
	id := l.addExpense(user, "Netflix", "Subscriptions", 9900, "2025-09-15")
	l.failSum = boom
	l.failMonths = boom

	for _, d := range DefaultDetectors(fixedClock("2025-09-15"), nil) {
		t.Run(d.Name(), func(t *testing.T) {
			err := d.Detect(ctx, l, user, id)
			assert.ErrorIs(t, err, boom)
		})
	}
}
