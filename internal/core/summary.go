package core

// Uncategorized labels spending on receipts without a category.
const Uncategorized = "uncategorized"

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   int64
}

// MonthOverview is the live spending of one user in one month.
type MonthOverview struct {
	Month      Month
	Total      int64
	ByCategory []CategoryAmount
}
