package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pestcrm/internal/core"
)

// ErrSuperseded is returned by Refresh when a later-started pass finished
// first. The superseded pass must discard its result; the retained result
// already reflects the newer request.
var ErrSuperseded = errors.New("calendar pass superseded by a newer request")

// CalendarService runs the calendar pipeline: fetch the cohort, pricing,
// and schedules, then attribute, aggregate, and track in one synchronous
// compute step. All accumulator state is local to a pass; the only state
// the service holds is the last successfully published result.
type CalendarService interface {
	// Refresh runs one full fetch-compute pass for the request. A fetch
	// error aborts the pass and leaves the previously published result in
	// place (stale but valid). If another Refresh started after this one,
	// the result is discarded and ErrSuperseded returned.
	Refresh(ctx context.Context, req CalendarRequest) (*CalendarResult, error)

	// Current returns the most recently published result, or nil before
	// the first successful pass.
	Current() *CalendarResult
}

type calendarService struct {
	visits  core.VisitService
	pricing core.PricingService
	loc     *time.Location

	mu     sync.Mutex
	gen    uint64
	latest *CalendarResult
}

// NewCalendarService constructs a CalendarService over the given
// collaborators. loc controls month-window boundaries; nil means UTC.
func NewCalendarService(visits core.VisitService, pricing core.PricingService, loc *time.Location) CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &calendarService{visits: visits, pricing: pricing, loc: loc}
}

func (s *calendarService) Refresh(ctx context.Context, req CalendarRequest) (*CalendarResult, error) {
	if req.Month < 1 || req.Month > 12 {
		return nil, fmt.Errorf("invalid month %d", req.Month)
	}

	s.mu.Lock()
	s.gen++
	g := s.gen
	s.mu.Unlock()

	from, to := core.MonthWindow(req.Year, time.Month(req.Month), s.loc)

	cohort, err := s.visits.ListVisits(ctx, from, to, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("fetch visits: %w", err)
	}
	customerPricing, err := s.pricing.CustomerPricing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch customer pricing: %w", err)
	}
	branchPricing, err := s.pricing.BranchPricing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch branch pricing: %w", err)
	}
	schedules, err := s.pricing.MonthlySchedules(ctx, req.Year, req.Month)
	if err != nil {
		return nil, fmt.Errorf("fetch schedules: %w", err)
	}

	augmented := core.Attribute(cohort, customerPricing, branchPricing)
	agg := core.Aggregate(augmented)
	progress := core.TrackSchedules(schedules, cohort, req.ScheduleOpts)

	res := &CalendarResult{
		Generation: g,
		Year:       req.Year,
		Month:      req.Month,
		Visits:     augmented,
		Customers:  agg.Customers,
		Branches:   agg.Branches,
		Operators:  agg.Operators,
		Materials:  agg.MaterialUsage,
		Schedules:  progress,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g != s.gen {
		return nil, ErrSuperseded
	}
	s.latest = res
	return res, nil
}

func (s *calendarService) Current() *CalendarResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
