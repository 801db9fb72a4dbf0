package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"pestcrm/internal/app"
	"pestcrm/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the calendar pipeline as a small read-only JSON API for
// the presentation layer. Nothing here mutates engine output.
type Handler struct {
	calendar app.CalendarService
	router   chi.Router
}

// SummarizeFunc produces a billing digest for a computed calendar result.
// A nil SummarizeFunc means the summary endpoint answers 503.
type SummarizeFunc func(ctx context.Context, result *app.CalendarResult) (any, error)

// NewHandler creates and wires the chi router with all routes.
func NewHandler(calendar app.CalendarService, summarize SummarizeFunc, allowedOrigins string) http.Handler {
	h := &Handler{calendar: calendar}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)
	r.Get("/api/calendar", h.getCalendar)
	r.Get("/api/calendar/schedules", h.getSchedules)
	r.Get("/api/calendar/summary", h.getSummary(summarize))

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// parseCalendarRequest builds a CalendarRequest from query parameters.
// year and month are required; all filters are optional.
func parseCalendarRequest(r *http.Request) (app.CalendarRequest, error) {
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return app.CalendarRequest{}, errors.New("year is required and must be an integer")
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		return app.CalendarRequest{}, errors.New("month is required and must be 1-12")
	}

	req := app.CalendarRequest{Year: year, Month: month}
	if v := q.Get("operator_id"); v != "" {
		req.Filters.OperatorID = &v
	}
	if v := q.Get("customer_id"); v != "" {
		req.Filters.CustomerID = &v
	}
	if v := q.Get("branch_id"); v != "" {
		req.Filters.BranchID = &v
	}
	if v := q.Get("status"); v != "" {
		st := core.VisitStatus(v)
		switch st {
		case core.VisitPlanned, core.VisitCompleted, core.VisitCancelled:
			req.Filters.Status = &st
		default:
			return app.CalendarRequest{}, errors.New("status must be planned, completed, or cancelled")
		}
	}
	if v := q.Get("checked"); v != "" {
		checked, err := strconv.ParseBool(v)
		if err != nil {
			return app.CalendarRequest{}, errors.New("checked must be true or false")
		}
		req.Filters.Checked = &checked
	}
	if v := q.Get("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return app.CalendarRequest{}, errors.New("strict must be true or false")
		}
		req.ScheduleOpts.Strict = strict
	}
	return req, nil
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) (*app.CalendarResult, bool) {
	req, err := parseCalendarRequest(r)
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	result, err := h.calendar.Refresh(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrSuperseded) {
			writeError(w, r, err.Error(), "SUPERSEDED", http.StatusConflict)
			return nil, false
		}
		writeError(w, r, "failed to load calendar: "+err.Error(), "FETCH_FAILED", http.StatusBadGateway)
		return nil, false
	}
	return result, true
}

// getCalendar handles GET /api/calendar.
func (h *Handler) getCalendar(w http.ResponseWriter, r *http.Request) {
	result, ok := h.refresh(w, r)
	if !ok {
		return
	}
	writeJSON(w, result)
}

// getSchedules handles GET /api/calendar/schedules, returning only the
// schedule-completion slice of the pass.
func (h *Handler) getSchedules(w http.ResponseWriter, r *http.Request) {
	result, ok := h.refresh(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"year":      result.Year,
		"month":     result.Month,
		"schedules": result.Schedules,
	})
}

// getSummary handles GET /api/calendar/summary. It refreshes the month,
// then hands the rollups to the billing digest assistant.
func (h *Handler) getSummary(summarize SummarizeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if summarize == nil {
			writeError(w, r, "summary assistant is not configured", "UNAVAILABLE", http.StatusServiceUnavailable)
			return
		}
		result, ok := h.refresh(w, r)
		if !ok {
			return
		}
		digest, err := summarize(r.Context(), result)
		if err != nil {
			writeError(w, r, "summary failed: "+err.Error(), "SUMMARY_FAILED", http.StatusBadGateway)
			return
		}
		writeJSON(w, digest)
	}
}
