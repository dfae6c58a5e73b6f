package alerts

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartledger/internal/core"
)

// memLedger is an in-memory Ledger for detector tests.
type memLedger struct {
	mu      sync.Mutex
	txs     map[int64]core.Transaction
	budgets []core.BudgetEntry
	alerts  []core.NewAlert
	nextID  int64

	failSum    error
	failMonths error
	failBudget error
	failInsert error
}

func newMemLedger() *memLedger {
	return &memLedger{txs: make(map[int64]core.Transaction)}
}

func (m *memLedger) addExpense(userID int64, merchant, category string, amount int64, day string) int64 {
	d, err := core.ParseDate(day)
	if err != nil {
		panic(err)
	}
	return m.add(core.Transaction{
		UserID:      userID,
		Merchant:    merchant,
		Category:    category,
		AmountTotal: amount,
		PurchasedAt: d,
		Status:      core.StatusConfirmed,
		Type:        core.TypeExpense,
	})
}

func (m *memLedger) add(t core.Transaction) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.txs[t.ID] = t
	return t.ID
}

func (m *memLedger) addBudget(userID int64, month string, amount int64) {
	mo, err := core.ParseMonth(month)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = append(m.budgets, core.BudgetEntry{UserID: userID, Month: mo, Amount: amount})
}

func (m *memLedger) Transaction(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (m *memLedger) SumExpenses(_ context.Context, f ExpenseFilter) (Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSum != nil {
		return Aggregate{}, m.failSum
	}
	var agg Aggregate
	for _, t := range m.txs {
		if f.Matches(t) {
			agg.Sum += t.AmountTotal
			agg.Count++
		}
	}
	return agg, nil
}

func (m *memLedger) ExpenseMonths(_ context.Context, f ExpenseFilter) ([]core.Month, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMonths != nil {
		return nil, m.failMonths
	}
	seen := make(map[core.Month]bool)
	var out []core.Month
	for _, t := range m.txs {
		if !f.Matches(t) {
			continue
		}
		mo := core.MonthOf(t.PurchasedAt)
		if !seen[mo] {
			seen[mo] = true
			out = append(out, mo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (m *memLedger) BudgetTotal(_ context.Context, userID int64, month core.Month) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBudget != nil {
		return 0, m.failBudget
	}
	var total int64
	for _, b := range m.budgets {
		if b.UserID == userID && b.Month == month {
			total += b.Amount
		}
	}
	return total, nil
}

func (m *memLedger) InsertAlert(_ context.Context, a core.NewAlert) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return 0, m.failInsert
	}
	m.alerts = append(m.alerts, a)
	return int64(len(m.alerts)), nil
}

func (m *memLedger) alertsOf(kind core.AlertKind) []core.NewAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.NewAlert
	for _, a := range m.alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func fixedClock(day string) Clock {
	t, err := time.Parse(core.DateLayout, day)
	if err != nil {
		panic(err)
	}
	t = t.Add(12 * time.Hour)
	return func() time.Time { return t }
}
