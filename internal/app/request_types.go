package app

import "pestcrm/internal/core"

// CalendarRequest selects the month and filter set for one pipeline pass.
// The filters shape the cohort and therefore the monthly-fee distribution
// base; two requests with different filters are different cohorts.
type CalendarRequest struct {
	Year         int
	Month        int
	Filters      core.VisitFilters
	ScheduleOpts core.ScheduleTrackerOptions
}
