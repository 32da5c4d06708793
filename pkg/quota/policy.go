package quota

import "time"

// RemainingPU returns the processing-unit allowance left this month. May be
// negative after an overage commit.
func RemainingPU(st *State) int {
	return st.MonthlyLimitPU - st.ProcessingUnitsUsed
}

// RemainingRequests returns the request allowance left this month.
func RemainingRequests(st *State) int {
	return st.MonthlyLimitRequests - st.RequestsUsed
}

// PercentUsed returns the processing-unit consumption as a percentage of the
// monthly limit.
func PercentUsed(st *State) float64 {
	if st.MonthlyLimitPU <= 0 {
		return 0
	}
	return float64(st.ProcessingUnitsUsed) / float64(st.MonthlyLimitPU) * 100
}

// DaysRemainingInMonth returns the number of whole days from now to the
// first day of the next month.
func DaysRemainingInMonth(now time.Time) int {
	var next time.Time
	if now.Month() == time.December {
		next = time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, now.Location())
	} else {
		next = time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	}
	return int(next.Sub(now) / (24 * time.Hour))
}

// SafeDailyPU returns the advisory even division of the remaining monthly
// allowance across the remaining calendar days, or 0 when no whole day is
// left in the month. It is not enforced anywhere.
func SafeDailyPU(st *State, now time.Time) int {
	days := DaysRemainingInMonth(now)
	if days <= 0 {
		return 0
	}
	return RemainingPU(st) / days
}
