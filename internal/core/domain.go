package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"

	TypeExpense  TxType = "expense"
	TypeIncome   TxType = "income"
	TypeTransfer TxType = "transfer"

	AlertAnomaly        AlertKind = "anomaly"
	AlertOverspend      AlertKind = "overspend"
	AlertFixedDetected  AlertKind = "fixed_detected"
	AlertBudgetExceeded AlertKind = "budget_exceeded"
)

// DateLayout is the storage and wire format of purchase dates.
const DateLayout = "2006-01-02"

type (
	Status    string
	TxType    string
	AlertKind string

	// Transaction is the read-only view of a ledger row (a confirmed receipt).
	Transaction struct {
		ID          int64
		UserID      int64
		Merchant    string
		Category    string // empty when unset
		AmountTotal int64
		PurchasedAt time.Time
		Status      Status
		Type        TxType
		IsDeleted   bool
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// TransactionInput carries the user-editable fields of a transaction write.
	TransactionInput struct {
		UserID      int64
		Merchant    string
		Category    string
		PurchasedAt time.Time
		Status      Status
		Type        TxType
		Items       []LineItem
		ImagePath   string
	}

	BudgetEntry struct {
		ID       int64
		UserID   int64
		Month    Month
		Category string
		Amount   int64
	}

	Alert struct {
		ID                   int64
		UserID               int64
		Kind                 AlertKind
		Message              string
		RelatedTransactionID *int64
		IsRead               bool
		CreatedAt            time.Time
	}

	// NewAlert is the insert shape produced by detectors.
	NewAlert struct {
		UserID               int64
		Kind                 AlertKind
		Message              string
		RelatedTransactionID *int64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Name         string
		CreatedAt    time.Time
	}
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

var (
	ErrEmptyMerchant   = errors.New("empty merchant")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid purchase date")
	ErrNoItems         = errors.New("at least one item is required")
	ErrInvalidUser     = errors.New("invalid user id")
	ErrInvalidKind     = errors.New("invalid alert kind")
	ErrEmptyMessage    = errors.New("empty alert message")
	ErrNegativeBudget  = errors.New("budget amount must be positive")
	ErrMerchantTooLong = errors.New("merchant too long (max 200 characters)")
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (t TxType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return true
	}
	return false
}

func (k AlertKind) Valid() bool {
	switch k {
	case AlertAnomaly, AlertOverspend, AlertFixedDetected, AlertBudgetExceeded:
		return true
	}
	return false
}

// Live reports whether the row takes part in spending analysis:
// confirmed, not deleted, and an expense.
func (t Transaction) Live() bool {
	return t.Status == StatusConfirmed && !t.IsDeleted && t.Type == TypeExpense
}

// Day returns the purchase date formatted as YYYY-MM-DD.
func (t Transaction) Day() string {
	return t.PurchasedAt.Format(DateLayout)
}

func (in TransactionInput) Validate() error {
	if in.UserID <= 0 {
		return ErrInvalidUser
	}
	if strings.TrimSpace(in.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if len(in.Merchant) > 200 {
		return ErrMerchantTooLong
	}
	if in.PurchasedAt.IsZero() {
		return ErrInvalidDate
	}
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range in.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b BudgetEntry) Validate() error {
	if b.UserID <= 0 {
		return ErrInvalidUser
	}
	if b.Month.IsZero() {
		return ErrInvalidMonth
	}
	if b.Amount <= 0 {
		return ErrNegativeBudget
	}
	if b.Amount > MaxAmount {
		return ErrAmountOverflow
	}
	return nil
}

func (a NewAlert) Validate() error {
	if a.UserID <= 0 {
		return ErrInvalidUser
	}
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(a.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD purchase date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
