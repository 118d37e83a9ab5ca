/*
Package vacation implements Swedish statutory vacation accounting.

PURPOSE:
  Determines the vacation year (semesterår) of a date, computes the
  allocated, consumed and remaining vacation days of an employee within that
  year, the days earned over a period, and the accrued vacation pay. It also
  runs the annual allocation batch that grants every active employee their
  yearly entitlement on April 1.

VACATION YEAR:
  April 1 of year Y to March 31 of year Y+1, written "Y/Y+1". Dates in
  January-March belong to the year that started the previous April:

    2024-04-01 -> "2024/2025"
    2025-03-31 -> "2024/2025"
    2025-04-01 -> "2025/2026"

BALANCE:
  remaining = sum(validated allocations effective in-window)
            - sum(validated or pending-second-validation leaves starting in-window)

  The window is always derived from dates. A recorded year tag on an
  allocation that disagrees is reported by ValidateAllocationYear, never used.

SEE ALSO:
  - accrual.go: StatutoryAccrual (2.08 days per month)
  - engine.go: Balance and sufficiency checks
  - allocate.go: Annual allocation batch
*/
package vacation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/entitlement-engine/generic"
)

// YearConfig is the fiscal period definition of the vacation year.
var YearConfig = generic.PeriodConfig{
	Type:                 generic.PeriodFiscalYear,
	FiscalYearStartMonth: time.April,
}

// Year identifies a vacation year by the calendar year it starts in.
type Year struct {
	StartYear int
}

// YearOf returns the vacation year containing date.
func YearOf(date generic.TimePoint) Year {
	return Year{StartYear: YearConfig.PeriodFor(date).Start.Year()}
}

// Period returns [April 1, March 31].
func (y Year) Period() generic.Period {
	return YearConfig.PeriodFor(generic.NewTimePoint(y.StartYear, time.April, 1))
}

// String returns "YYYY/YYYY".
func (y Year) String() string {
	return fmt.Sprintf("%d/%d", y.StartYear, y.StartYear+1)
}

// ParseYear parses "YYYY/YYYY". The second year must follow the first.
func ParseYear(s string) (Year, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Year{}, fmt.Errorf("invalid vacation year %q: want YYYY/YYYY", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return Year{}, fmt.Errorf("invalid vacation year %q: %w", s, err)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return Year{}, fmt.Errorf("invalid vacation year %q: %w", s, err)
	}
	if end != start+1 {
		return Year{}, fmt.Errorf("invalid vacation year %q: years must be consecutive", s)
	}
	return Year{StartYear: start}, nil
}
