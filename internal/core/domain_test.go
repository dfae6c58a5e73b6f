package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransactionLive(t *testing.T) {
	base := Transaction{Status: StatusConfirmed, Type: TypeExpense}
	assert.True(t, base.Live())

	pending := base
	pending.Status = StatusPending
	assert.False(t, pending.Live())

	deleted := base
	deleted.IsDeleted = true
	assert.False(t, deleted.Live())

	income := base
	income.Type = TypeIncome
	assert.False(t, income.Live())
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		UserID:      1,
		Merchant:    "Netflix",
		PurchasedAt: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:      StatusConfirmed,
		Type:        TypeExpense,
		Items:       []LineItem{{Name: "plan", Qty: 1, Price: 9900}},
	}
	assert.NoError(t, good.Validate())

	cases := []struct {
		name   string
		mutate func(*TransactionInput)
		want   error
	}{
		{"no user", func(in *TransactionInput) { in.UserID = 0 }, ErrInvalidUser},
		{"blank merchant", func(in *TransactionInput) { in.Merchant = "  " }, ErrEmptyMerchant},
		{"zero date", func(in *TransactionInput) { in.PurchasedAt = time.Time{} }, ErrInvalidDate},
		{"bad status", func(in *TransactionInput) { in.Status = "DONE" }, ErrInvalidStatus},
		{"bad type", func(in *TransactionInput) { in.Type = "gift" }, ErrInvalidType},
		{"no items", func(in *TransactionInput) { in.Items = nil }, ErrNoItems},
		{"bad item", func(in *TransactionInput) { in.Items = []LineItem{{Name: "x", Qty: 0}} }, ErrInvalidQty},
		{"huge price", func(in *TransactionInput) { in.Items = []LineItem{{Name: "x", Qty: 1, Price: 1e17}} }, ErrAmountOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mutate(&in)
			assert.ErrorIs(t, in.Validate(), tc.want)
		})
	}
}

func TestBudgetEntryValidate(t *testing.T) {
	month, err := ParseMonth("2025-09")
	assert.NoError(t, err)
	good := BudgetEntry{UserID: 1, Month: month, Amount: 50000}
	assert.NoError(t, good.Validate())

	zero := good
	zero.Amount = 0
	assert.ErrorIs(t, zero.Validate(), ErrNegativeBudget)

	huge := good
	huge.Amount = MaxAmount + 1
	assert.ErrorIs(t, huge.Validate(), ErrAmountOverflow)
}

func TestNewAlertValidate(t *testing.T) {
	assert.NoError(t, NewAlert{UserID: 1, Kind: AlertOverspend, Message: "m"}.Validate())
	assert.ErrorIs(t, NewAlert{UserID: 1, Kind: "loud", Message: "m"}.Validate(), ErrInvalidKind)
	assert.ErrorIs(t, NewAlert{UserID: 1, Kind: AlertAnomaly}.Validate(), ErrEmptyMessage)
	assert.ErrorIs(t, NewAlert{Kind: AlertAnomaly, Message: "m"}.Validate(), ErrInvalidUser)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-09-30")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("2025-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
