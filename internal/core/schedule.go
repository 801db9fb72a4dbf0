package core

import "log"

// ScheduleTrackerOptions controls schedule matching.
//
// With Strict off (the default) a visit counts toward every schedule it
// matches: a schedule keyed by a customer and another keyed by one of that
// customer's branches both count the same visit. This mirrors how the
// calendar screen has always reported completion and is kept as the default
// on purpose. Strict assigns each visit to at most one schedule, the first
// match in input order.
type ScheduleTrackerOptions struct {
	Strict bool
}

// TrackSchedules computes completion progress for each monthly schedule
// quota against the visit cohort. A schedule matches a visit when the
// schedule's branch id equals the visit's branch id, or the schedule's
// customer id equals the visit's customer id. A schedule with a negative
// quota is excluded from the result and logged.
func TrackSchedules(schedules []MonthlyScheduleRequirement, cohort []Visit, opts ScheduleTrackerOptions) []ScheduleProgress {
	out := make([]ScheduleProgress, 0, len(schedules))
	claimed := map[string]bool{}
	for _, s := range schedules {
		if s.VisitsRequired < 0 {
			log.Printf("schedule %s: negative visits_required %d, excluded", s.ID, s.VisitsRequired)
			continue
		}
		done := 0
		for _, v := range cohort {
			if !scheduleMatches(s, v) {
				continue
			}
			if opts.Strict {
				if claimed[v.ID] {
					continue
				}
				claimed[v.ID] = true
			}
			done++
		}
		remaining := s.VisitsRequired - done
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, ScheduleProgress{
			Schedule:   s,
			DoneCount:  done,
			Remaining:  remaining,
			IsComplete: done >= s.VisitsRequired,
		})
	}
	return out
}

func scheduleMatches(s MonthlyScheduleRequirement, v Visit) bool {
	if s.BranchID != nil && v.BranchID != nil && *s.BranchID == *v.BranchID {
		return true
	}
	if s.CustomerID != nil && *s.CustomerID == v.CustomerID {
		return true
	}
	return false
}
