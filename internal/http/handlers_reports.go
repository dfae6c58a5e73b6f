package http

import (
	"net/http"

	"smartledger/internal/core"
)

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

type monthReportResponse struct {
	Month      string                  `json:"month"`
	Total      int64                   `json:"total"`
	ByCategory []categoryTotalResponse `json:"by_category"`
}

func newMonthReportResponse(o core.MonthOverview) monthReportResponse {
	resp := monthReportResponse{
		Month:      o.Month.String(),
		Total:      o.Total,
		ByCategory: make([]categoryTotalResponse, 0, len(o.ByCategory)),
	}
	for _, c := range o.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotalResponse{Category: c.Category, Total: c.Amount})
	}
	return resp
}

// handleMonthlyReport reports one month when ?month=YYYY-MM is given and the
// most recent months with spending otherwise.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("month"); v != "" {
		month, err := core.ParseMonth(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		o, err := s.deps.Reports.Month(r.Context(), userID(r), month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		NewJSONResponse().Body(newMonthReportResponse(o)).Write(w)
		return
	}

	list, err := s.deps.Reports.Recent(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	months := make([]monthReportResponse, 0, len(list))
	for _, o := range list {
		months = append(months, newMonthReportResponse(o))
	}
	NewJSONResponse().Body(map[string]any{"months": months}).Write(w)
}
