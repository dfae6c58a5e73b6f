package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"smartledger/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var errBadID = errors.New("invalid id")

// decodeJSON reads a single JSON object from r into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("malformed JSON: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

type itemRequest struct {
	Name     string `json:"name"`
	Qty      int64  `json:"qty"`
	Price    int64  `json:"price"`
	Category string `json:"category,omitempty"`
}

// receiptRequest is the body of confirm and update. A client-supplied total
// is accepted for compatibility but the stored total is always recomputed.
type receiptRequest struct {
	Merchant    string        `json:"merchant"`
	PurchasedAt string        `json:"purchased_at"`
	Category    string        `json:"category,omitempty"`
	Status      string        `json:"status,omitempty"`
	Type        string        `json:"type,omitempty"`
	Items       []itemRequest `json:"items"`
	Total       *int64        `json:"total,omitempty"`
	ImagePath   string        `json:"image_path,omitempty"`
}

func (req receiptRequest) input(userID int64) (core.TransactionInput, error) {
	day, err := core.ParseDate(req.PurchasedAt)
	if err != nil {
		return core.TransactionInput{}, err
	}
	items := make([]core.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, core.LineItem{
			Name:     strings.TrimSpace(it.Name),
			Qty:      it.Qty,
			Price:    it.Price,
			Category: it.Category,
		})
	}
	return core.TransactionInput{
		UserID:      userID,
		Merchant:    req.Merchant,
		Category:    req.Category,
		PurchasedAt: day,
		Status:      core.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		Type:        core.TxType(strings.ToLower(strings.TrimSpace(req.Type))),
		Items:       items,
		ImagePath:   req.ImagePath,
	}, nil
}

type budgetRequest struct {
	Month    string `json:"month"`
	Category string `json:"category,omitempty"`
	Amount   int64  `json:"amount"`
}

func (req budgetRequest) entry(userID int64) (core.BudgetEntry, error) {
	m, err := core.ParseMonth(strings.TrimSpace(req.Month))
	if err != nil {
		return core.BudgetEntry{}, err
	}
	return core.BudgetEntry{
		UserID:   userID,
		Month:    m,
		Category: strings.TrimSpace(req.Category),
		Amount:   req.Amount,
	}, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}
