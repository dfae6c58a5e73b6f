package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"smartledger/internal/core"
	"smartledger/internal/services"
)

type writeResponse struct {
	ID     int64            `json:"id"`
	Total  int64            `json:"total"`
	Alerts []core.AlertKind `json:"alerts"`
}

func newWriteResponse(res services.WriteResult) writeResponse {
	kinds := res.Alerts
	if kinds == nil {
		kinds = []core.AlertKind{}
	}
	return writeResponse{ID: res.ID, Total: res.Total, Alerts: kinds}
}

type itemResponse struct {
	Name     string `json:"name"`
	Qty      int64  `json:"qty"`
	Price    int64  `json:"price"`
	Category string `json:"category,omitempty"`
	Subtotal int64  `json:"subtotal"`
}

type receiptResponse struct {
	ID          int64          `json:"id"`
	Merchant    string         `json:"merchant"`
	Category    string         `json:"category,omitempty"`
	Total       int64          `json:"total"`
	PurchasedAt string         `json:"purchased_at"`
	Status      core.Status    `json:"status"`
	Type        core.TxType    `json:"type"`
	Items       []itemResponse `json:"items"`
}

// receiptSummary is a receipt without its items, as listed.
type receiptSummary struct {
	ID          int64       `json:"id"`
	Merchant    string      `json:"merchant"`
	Category    string      `json:"category,omitempty"`
	Total       int64       `json:"total"`
	PurchasedAt string      `json:"purchased_at"`
	Status      core.Status `json:"status"`
	Type        core.TxType `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
}

const (
	defaultReceiptPage = 50
	maxReceiptPage     = 200
)

func (s *Server) readReceipt(w http.ResponseWriter, r *http.Request) (core.TransactionInput, bool) {
	var req receiptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.TransactionInput{}, false
	}
	in, err := req.input(userID(r))
	if err != nil {
		writeError(w, r, err)
		return core.TransactionInput{}, false
	}
	if req.Total != nil {
		if sum, err := core.TotalOf(in.Items); err == nil && sum != *req.Total {
			slog.InfoContext(r.Context(), "Client total differs from item sum",
				"client_total", *req.Total, "item_sum", sum)
		}
	}
	return in, true
}

func (s *Server) handleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readReceipt(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Transactions.Confirm(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newWriteResponse(res)).Write(w)
}

func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in, ok := s.readReceipt(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Transactions.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newWriteResponse(res)).Write(w)
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := defaultReceiptPage, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxReceiptPage {
			BadRequestError("limit must be between 1 and " + strconv.Itoa(maxReceiptPage)).Write(w)
			return
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			BadRequestError("offset must not be negative").Write(w)
			return
		}
		offset = n
	}

	list, err := s.deps.Transactions.List(r.Context(), userID(r), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]receiptSummary, 0, len(list))
	for _, t := range list {
		out = append(out, receiptSummary{
			ID:          t.ID,
			Merchant:    t.Merchant,
			Category:    t.Category,
			Total:       t.AmountTotal,
			PurchasedAt: t.Day(),
			Status:      t.Status,
			Type:        t.Type,
			CreatedAt:   t.CreatedAt,
		})
	}
	NewJSONResponse().Body(map[string]any{"count": len(out), "receipts": out}).Write(w)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, items, err := s.deps.Transactions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := receiptResponse{
		ID:          t.ID,
		Merchant:    t.Merchant,
		Category:    t.Category,
		Total:       t.AmountTotal,
		PurchasedAt: t.Day(),
		Status:      t.Status,
		Type:        t.Type,
		Items:       make([]itemResponse, 0, len(items)),
	}
	for _, it := range items {
		sub, _ := it.Subtotal()
		resp.Items = append(resp.Items, itemResponse{
			Name: it.Name, Qty: it.Qty, Price: it.Price, Category: it.Category, Subtotal: sub,
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleAddBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	entry, err := req.entry(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := s.deps.Budgets.Add(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
		"month":       entry.Month.String(),
		"amount":      entry.Amount,
		"month_total": total,
	}).Write(w)
}
