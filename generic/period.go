package generic

import "time"

// =============================================================================
// PERIOD - Windows that aggregate records
// =============================================================================

// Period is an inclusive [Start, End] window. Every aggregate in the engine
// (vacation balance, overtime caps, sick leave statistics) is computed for a
// period derived from a reference date.
//
// Examples:
//   - Vacation year 2024/2025: Apr 1 2024 - Mar 31 2025
//   - Overtime month: Mar 1 - Mar 31
//   - Sick leave statistics: the 365 days before the reference date
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodType defines how periods are calculated
type PeriodType string

const (
	PeriodCalendarYear  PeriodType = "calendar_year"  // Jan 1 - Dec 31
	PeriodCalendarMonth PeriodType = "calendar_month" // 1st - last day of month
	PeriodFiscalYear    PeriodType = "fiscal_year"    // Custom start (e.g., Apr 1)
	PeriodRolling       PeriodType = "rolling"        // Trailing window ending at the date
)

// PeriodConfig defines how to calculate periods
type PeriodConfig struct {
	Type PeriodType

	// For fiscal year: which month starts the fiscal year (1-12)
	FiscalYearStartMonth time.Month

	// For rolling: window length in days (default 365)
	RollingDays int
}

// =============================================================================
// PERIOD CALCULATOR - Determines which period a date falls into
// =============================================================================

// PeriodFor returns the period that contains the given date
func (pc PeriodConfig) PeriodFor(date TimePoint) Period {
	switch pc.Type {
	case PeriodCalendarYear:
		return Period{
			Start: StartOfYear(date.Year()),
			End:   EndOfYear(date.Year()),
		}

	case PeriodCalendarMonth:
		return Period{
			Start: StartOfMonth(date.Year(), date.Month()),
			End:   EndOfMonth(date.Year(), date.Month()),
		}

	case PeriodFiscalYear:
		return pc.fiscalYearPeriod(date)

	case PeriodRolling:
		days := pc.RollingDays
		if days <= 0 {
			days = 365
		}
		return Period{
			Start: date.AddDays(-days),
			End:   date,
		}

	default:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
	}
}

func (pc PeriodConfig) fiscalYearPeriod(date TimePoint) Period {
	year := date.Year()
	fiscalStart := NewTimePoint(year, pc.FiscalYearStartMonth, 1)

	// If date is before fiscal year start, we're in previous fiscal year
	if date.Before(fiscalStart) {
		fiscalStart = NewTimePoint(year-1, pc.FiscalYearStartMonth, 1)
	}

	fiscalEnd := fiscalStart.AddYears(1).AddDays(-1)
	return Period{Start: fiscalStart, End: fiscalEnd}
}
