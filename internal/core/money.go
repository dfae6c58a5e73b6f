// Package core holds the ledger domain types shared by storage, the alert
// engine and the HTTP layer.
//
// This file contains the line-item arithmetic used when a receipt is
// confirmed: the stored total is always the sum of its items, never the
// total the client claims.
package core

import (
	"errors"
	"math"
	"strings"
)

// MaxAmount bounds every stored amount in minor units. Detectors scale
// amounts by up to a few hundred and SQLite sums them per month, both in
// int64, so the bound keeps that arithmetic far from overflow.
const (
	MaxAmount int64 = 1_000_000_000_000
	MaxQty    int64 = 1_000_000
)

var (
	ErrInvalidQty     = errors.New("item quantity must be positive")
	ErrInvalidPrice   = errors.New("item price must not be negative")
	ErrEmptyItemName  = errors.New("empty item name")
	ErrAmountOverflow = errors.New("amount exceeds the maximum of 1000000000000")
	ErrQtyTooLarge    = errors.New("item quantity exceeds the maximum of 1000000")
)

// LineItem is one receipt line as confirmed by the user.
type LineItem struct {
	Name     string
	Qty      int64
	Price    int64
	Category string
}

func (it LineItem) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrEmptyItemName
	}
	if it.Qty <= 0 {
		return ErrInvalidQty
	}
	if it.Qty > MaxQty {
		return ErrQtyTooLarge
	}
	if it.Price < 0 {
		return ErrInvalidPrice
	}
	if it.Price > MaxAmount {
		return ErrAmountOverflow
	}
	return nil
}

// Subtotal returns qty * price, or ErrAmountOverflow past MaxAmount.
func (it LineItem) Subtotal() (int64, error) {
	if it.Price != 0 && it.Qty > MaxAmount/it.Price {
		return 0, ErrAmountOverflow
	}
	return it.Qty * it.Price, nil
}

// TotalOf sums item subtotals, failing with ErrAmountOverflow when the
// total passes MaxAmount.
//
// Examples:
//
//	TotalOf([]LineItem{{Qty: 2, Price: 4500}})                    -> 9000, nil
//	TotalOf([]LineItem{{Qty: 1, Price: 9900}, {Qty: 3, Price: 0}}) -> 9900, nil
func TotalOf(items []LineItem) (int64, error) {
	var total int64
	for _, it := range items {
		sub, err := it.Subtotal()
		if err != nil {
			return 0, err
		}
		if total > MaxAmount-sub {
			return 0, ErrAmountOverflow
		}
		total += sub
	}
	return total, nil
}

// DominantCategory returns the category carrying the largest share of the
// total, ignoring items without one. Ties go to the first item seen.
func DominantCategory(items []LineItem) string {
	shares := make(map[string]int64)
	var order []string
	for _, it := range items {
		c := strings.TrimSpace(it.Category)
		if c == "" {
			continue
		}
		if _, seen := shares[c]; !seen {
			order = append(order, c)
		}
		sub, err := it.Subtotal()
		if err != nil {
			sub = math.MaxInt64
		}
		shares[c] += sub
	}
	best := ""
	var bestAmount int64 = -1
	for _, c := range order {
		if shares[c] > bestAmount {
			best, bestAmount = c, shares[c]
		}
	}
	return best
}
