package http

import (
	"net/http"
	"strconv"
	"time"

	"smartledger/internal/core"
)

const maxAlertPage = 200

type alertResponse struct {
	ID                   int64          `json:"id"`
	Type                 core.AlertKind `json:"type"`
	Message              string         `json:"message"`
	RelatedTransactionID *int64         `json:"related_receipt_id"`
	IsRead               bool           `json:"is_read"`
	CreatedAt            time.Time      `json:"created_at"`
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxAlertPage {
			BadRequestError("limit must be between 1 and " + strconv.Itoa(maxAlertPage)).Write(w)
			return
		}
		limit = n
	}

	list, err := s.deps.Alerts.ListUnread(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]alertResponse, 0, len(list))
	for _, a := range list {
		out = append(out, alertResponse{
			ID:                   a.ID,
			Type:                 a.Kind,
			Message:              a.Message,
			RelatedTransactionID: a.RelatedTransactionID,
			IsRead:               a.IsRead,
			CreatedAt:            a.CreatedAt,
		})
	}
	NewJSONResponse().Body(map[string]any{"alerts": out}).Write(w)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Alerts.UnreadCount(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]int64{"count": n}).Write(w)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Alerts.MarkRead(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]bool{"ok": true}).Write(w)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Alerts.MarkAllRead(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]int64{"updated": n}).Write(w)
}
