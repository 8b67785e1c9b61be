package http

import (
	"net/http"

	"fintrack/internal/dashboard"
	applog "fintrack/internal/log"
)

// handleSummary serves GET /api/v1/dashboard?month=&year=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, applog.OpSummary, "", err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	view, err := s.dashboard.Summary(ctx, id, params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, applog.OpSummary, "Failed to fetch dashboard data", err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

// handleIncomeVsExpenses serves the comparison series. "range" is accepted
// as an alias of "period".
func (s *Server) handleIncomeVsExpenses(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	kind, err := ParsePeriodKind(query)
	if err != nil {
		s.writeServiceError(w, r, applog.OpSeries, "", err)
		return
	}
	params, err := ParseMonthParams(query)
	if err != nil {
		s.writeServiceError(w, r, applog.OpSeries, "", err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	view, err := s.dashboard.Comparison(ctx, id, kind, params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, applog.OpSeries, "Failed to fetch income vs expenses", err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

// handleRecent serves GET /api/v1/dashboard/recent?limit=&startDate=&endDate=.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	limit, err := ParseLimit(query)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRecent, "", err)
		return
	}
	from, err := ParseDateParam(query, "startDate", false)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRecent, "", err)
		return
	}
	to, err := ParseDateParam(query, "endDate", true)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRecent, "", err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	view, err := s.dashboard.Recent(ctx, id, dashboard.RecentFilter{Limit: limit, From: from, To: to})
	if err != nil {
		s.writeServiceError(w, r, applog.OpRecent, "Failed to fetch recent transactions", err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}
