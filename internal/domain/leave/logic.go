package leave

import (
	"fmt"
	"time"
)

// CalculateDays returns the inclusive calendar-day count between start and end.
// Times are reduced to their calendar date first, so time of day never changes the result.
func CalculateDays(start, end time.Time) (int, error) {
	s, e := dateOnly(start), dateOnly(end)
	if e.Before(s) {
		return 0, ErrInvalidRange
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// periodStart returns the first day of the accrual period containing t.
func periodStart(t time.Time, freq AccrualFrequency) time.Time {
	t = dateOnly(t)
	switch freq {
	case FrequencyMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case FrequencyQuarterly:
		month := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC)
	case FrequencyAnnual:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// monthsBetween counts whole months from a to b. Both must be period starts.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func periodLabel(t time.Time, freq AccrualFrequency) string {
	switch freq {
	case FrequencyMonthly:
		return t.Format("2006-01")
	case FrequencyQuarterly:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	default:
		return fmt.Sprintf("%d", t.Year())
	}
}

func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
