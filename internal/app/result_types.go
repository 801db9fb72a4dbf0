package app

import "pestcrm/internal/core"

// CalendarResult is the full output of one fetch-compute pass. It is
// immutable once published; a new pass produces a new value.
type CalendarResult struct {
	Generation uint64                        `json:"generation"`
	Year       int                           `json:"year"`
	Month      int                           `json:"month"`
	Visits     []core.AugmentedVisit         `json:"visits"`
	Customers  []core.CustomerRevenueRollup  `json:"customers"`
	Branches   []core.BranchRevenueRollup    `json:"branches"`
	Operators  []core.OperatorRevenueSummary `json:"operators"`
	Materials  []core.CustomerMaterialUsage  `json:"materials"`
	Schedules  []core.ScheduleProgress       `json:"schedules"`
}
