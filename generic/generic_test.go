package generic_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/entitlement-engine/generic"
)

func date(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name   string
		config generic.PeriodConfig
		date   generic.TimePoint
		start  generic.TimePoint
		end    generic.TimePoint
	}{
		{
			name:   "fiscal year after start month",
			config: generic.PeriodConfig{Type: generic.PeriodFiscalYear, FiscalYearStartMonth: time.April},
			date:   date(2024, time.May, 15),
			start:  date(2024, time.April, 1),
			end:    date(2025, time.March, 31),
		},
		{
			name:   "fiscal year before start month",
			config: generic.PeriodConfig{Type: generic.PeriodFiscalYear, FiscalYearStartMonth: time.April},
			date:   date(2025, time.March, 31),
			start:  date(2024, time.April, 1),
			end:    date(2025, time.March, 31),
		},
		{
			name:   "calendar month in a leap year",
			config: generic.PeriodConfig{Type: generic.PeriodCalendarMonth},
			date:   date(2024, time.February, 10),
			start:  date(2024, time.February, 1),
			end:    date(2024, time.February, 29),
		},
		{
			name:   "rolling defaults to 365 days",
			config: generic.PeriodConfig{Type: generic.PeriodRolling},
			date:   date(2024, time.June, 1),
			start:  date(2023, time.June, 2),
			end:    date(2024, time.June, 1),
		},
		{
			name:   "calendar year",
			config: generic.PeriodConfig{Type: generic.PeriodCalendarYear},
			date:   date(2024, time.June, 1),
			start:  date(2024, time.January, 1),
			end:    date(2024, time.December, 31),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.config.PeriodFor(tt.date)

			assert.True(t, p.Start.Equal(tt.start), "start %s", p.Start)
			assert.True(t, p.End.Equal(tt.end), "end %s", p.End)
			assert.True(t, p.Contains(tt.date))
		})
	}
}

func TestPeriodDays(t *testing.T) {
	p := generic.Period{Start: date(2024, time.February, 27), End: date(2024, time.March, 2)}

	days := p.Days()

	require.Len(t, days, 5)
	assert.True(t, days[2].Equal(date(2024, time.February, 29)))
}

// =============================================================================
// AMOUNTS AND RANGES
// =============================================================================

func TestAmount(t *testing.T) {
	a := generic.Days(2.5)
	b := generic.NewAmountFromInt(1, generic.UnitDays)

	assert.True(t, a.Add(b).Value.Equal(decimal.RequireFromString("3.5")))
	assert.True(t, b.Sub(a).IsNegative())
	assert.True(t, a.GreaterThan(b))
	assert.True(t, a.Min(b).Equal(b))
	assert.Equal(t, "2.5 days", a.String())
	assert.True(t, generic.SumAmounts(generic.UnitHours).IsZero())
	assert.Equal(t, generic.UnitHours, generic.SumAmounts(generic.UnitHours).Unit)
}

func TestDateRange(t *testing.T) {
	may := generic.Between(date(2024, time.May, 1), date(2024, time.May, 31))

	assert.True(t, may.Contains(date(2024, time.May, 1)))
	assert.True(t, may.Contains(date(2024, time.May, 31)))
	assert.False(t, may.Contains(date(2024, time.June, 1)))

	open := generic.DateRange{From: date(2024, time.May, 1)}
	assert.True(t, open.Contains(date(2030, time.January, 1)))
	assert.True(t, generic.DateRange{}.IsUnbounded())
}

func TestParseDate(t *testing.T) {
	tp, err := generic.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", tp.String())

	_, err = generic.ParseDate("2023-02-29")
	assert.Error(t, err)
}

// =============================================================================
// HOLIDAY CALENDARS
// =============================================================================

type fixedCalendar map[string]generic.Holiday

func (c fixedCalendar) IsHoliday(_ string, d generic.TimePoint) bool {
	_, ok := c[d.String()]
	return ok
}

func (c fixedCalendar) GetHolidays(_ string, year int) []generic.Holiday {
	var out []generic.Holiday
	for _, h := range c {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out
}

func TestCalendars(t *testing.T) {
	national := fixedCalendar{"2024-06-06": {Date: date(2024, time.June, 6), Name: "Sveriges nationaldag"}}
	company := fixedCalendar{"2024-06-07": {Date: date(2024, time.June, 7), Name: "Kickoff"}}
	cals := generic.Calendars{national, nil, company}

	assert.True(t, cals.IsHoliday("acme", date(2024, time.June, 6)))
	assert.True(t, cals.IsHoliday("acme", date(2024, time.June, 7)))
	assert.False(t, cals.IsHoliday("acme", date(2024, time.June, 5)))
	assert.Len(t, cals.GetHolidays("acme", 2024), 2)

	// Friday June 7 is a weekday but not a workday for acme.
	assert.False(t, date(2024, time.June, 7).IsWorkdayWithHolidays(cals, "acme"))
	assert.True(t, date(2024, time.June, 5).IsWorkdayWithHolidays(cals, "acme"))
	assert.False(t, date(2024, time.June, 8).IsWorkdayWithHolidays(nil, "acme"))
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrorClassification(t *testing.T) {
	violation := &generic.RuleViolation{Rule: generic.ErrMonthlyLimitExceeded, Field: "hours"}
	wrapped := fmt.Errorf("approve: %w", violation)

	assert.True(t, generic.IsRuleViolation(wrapped))
	assert.True(t, errors.Is(wrapped, generic.ErrMonthlyLimitExceeded))
	assert.Equal(t, generic.ErrMonthlyLimitExceeded.Error(), violation.Error())

	balance := &generic.InsufficientBalanceError{
		EmployeeID: "emp-1", Year: "2024/2025",
		Available: generic.Days(3), Requested: generic.Days(5),
	}
	assert.True(t, generic.IsRuleViolation(balance))
	assert.Contains(t, balance.Error(), "available 3")

	notConfigured := generic.Violation(generic.ErrLookupNotConfigured, "no rate for %s", "emp-1")
	assert.False(t, generic.IsRuleViolation(notConfigured))
	assert.True(t, generic.IsNotConfigured(notConfigured))
	assert.Equal(t, "no rate for emp-1", notConfigured.Error())

	assert.True(t, generic.IsNotFound(fmt.Errorf("employee x: %w", generic.ErrNotFound)))
	assert.False(t, generic.IsRuleViolation(generic.ErrDuplicateIdempotencyKey))
}
