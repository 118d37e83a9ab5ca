/*
Package overtime implements the Swedish overtime ledger.

PURPOSE:
  Classifies overtime entries, computes their compensation, enforces the
  statutory caps and drives the approval workflow. Approval of time or
  mixed compensation is the one place the engine writes back: it grants
  compensatory time off on the OVERTIME leave type.

COMPUTATION:
  Duration:    end - start, plus 24h when the entry crosses midnight
  Multiplier:  first match wins
                 qualified OR weekend OR holiday  2.0
                 emergency                        2.5
                 standby                          0.5
                 simple, preparation              1.5
  Money:       hourly wage x duration x multiplier
  Time:        duration x multiplier hours
  Mixed:       half of each

HOURLY WAGE:
  Active contract at the entry date: hourly wage as is, monthly wage / 168.
  No contract means wage 0.

LIMITS (arbetstidslagen):
  Approved and paid entries in the same calendar month  <= 48h
  Approved and paid entries in the same calendar year   <= 200h
  Emergency overtime is exempt from both.

LIFECYCLE:
  draft -> submitted -> approved -> paid
                     -> rejected (reason required)

SEE ALSO:
  - holidays.go: Swedish public holiday calendar
  - ledger.go: state machine and compensatory grant
*/
package overtime

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

type Policy struct {
	MonthlyCapHours decimal.Decimal // 48
	YearlyCapHours  decimal.Decimal // 200
	MonthHours      decimal.Decimal // 168, monthly wage divisor
	HoursPerDay     decimal.Decimal // 8, converts granted hours to days
}

func DefaultPolicy() Policy {
	return Policy{
		MonthlyCapHours: decimal.NewFromInt(48),
		YearlyCapHours:  decimal.NewFromInt(200),
		MonthHours:      decimal.NewFromInt(168),
		HoursPerDay:     decimal.NewFromInt(8),
	}
}

var (
	dayHours      = decimal.NewFromInt(24)
	half          = decimal.RequireFromString("0.5")
	multDouble    = decimal.NewFromInt(2)
	multEmergency = decimal.RequireFromString("2.5")
	multStandby   = decimal.RequireFromString("0.5")
	multSimple    = decimal.RequireFromString("1.5")
	zeroHours     = generic.NewAmountFromInt(0, generic.UnitHours)
	zeroSEK       = generic.NewAmountFromInt(0, generic.UnitSEK)
)

// =============================================================================
// PURE RULES
// =============================================================================

// Duration returns the length of the entry, wrapping past midnight.
func Duration(start, end decimal.Decimal) generic.Amount {
	d := end.Sub(start)
	if d.IsNegative() {
		d = d.Add(dayHours)
	}
	return generic.NewAmountFromDecimal(d, generic.UnitHours)
}

// Multiplier applies the rule table. Weekends and holidays override the type.
func Multiplier(t generic.OvertimeType, weekend, holiday bool) decimal.Decimal {
	switch {
	case t == generic.OvertimeQualified || weekend || holiday:
		return multDouble
	case t == generic.OvertimeEmergency:
		return multEmergency
	case t == generic.OvertimeStandby:
		return multStandby
	default:
		return multSimple
	}
}

// ValidateTimes checks that both times of day lie in [0, 24).
func ValidateTimes(start, end decimal.Decimal) error {
	for _, v := range []struct {
		field string
		value decimal.Decimal
	}{{"time_start", start}, {"time_end", end}} {
		if v.value.IsNegative() || v.value.GreaterThanOrEqual(dayHours) {
			return &generic.RuleViolation{
				Rule:    generic.ErrInvalidTimeRange,
				Field:   v.field,
				Message: fmt.Sprintf("Time must be between 0 and 24 (%s is %s).", v.field, v.value),
			}
		}
	}
	return nil
}

// Computation holds the derived values of one overtime entry.
type Computation struct {
	Duration   generic.Amount // hours
	Weekend    bool
	Holiday    bool
	Multiplier decimal.Decimal
	HourlyWage decimal.Decimal
	Money      generic.Amount // SEK
	TimeHours  generic.Amount // compensatory hours
}

// Compensate splits duration x multiplier between money and time according
// to the compensation mode.
func Compensate(mode generic.CompensationMode, duration generic.Amount, multiplier, hourlyWage decimal.Decimal) (money, timeHours generic.Amount) {
	weighted := duration.Value.Mul(multiplier)
	fullMoney := generic.NewAmountFromDecimal(weighted.Mul(hourlyWage), generic.UnitSEK)
	fullTime := generic.NewAmountFromDecimal(weighted, generic.UnitHours)

	switch mode {
	case generic.CompensationTime:
		return zeroSEK, fullTime
	case generic.CompensationMixed:
		return fullMoney.Mul(half), fullTime.Mul(half)
	default:
		return fullMoney, zeroHours
	}
}

// =============================================================================
// CALCULATOR - Rules plus wage and holiday lookups
// =============================================================================

type Calculator struct {
	contracts generic.ContractQuery
	holidays  generic.HolidayCalendar
	policy    Policy
}

// NewCalculator builds a calculator. A nil calendar falls back to the Swedish
// public holidays.
func NewCalculator(contracts generic.ContractQuery, holidays generic.HolidayCalendar, policy Policy) *Calculator {
	if holidays == nil {
		holidays = PublicHolidays{}
	}
	return &Calculator{contracts: contracts, holidays: holidays, policy: policy}
}

// Compute derives duration, multiplier and compensation of entry.
func (c *Calculator) Compute(ctx context.Context, entry generic.OvertimeEntry) (Computation, error) {
	return c.ComputeOn(ctx, entry, c.IsHoliday(entry))
}

// IsHoliday reports whether the entry falls on a holiday of its company.
func (c *Calculator) IsHoliday(entry generic.OvertimeEntry) bool {
	return c.holidays.IsHoliday(entry.CompanyID, entry.Date)
}

// ComputeOn is Compute with the holiday flag already resolved.
func (c *Calculator) ComputeOn(ctx context.Context, entry generic.OvertimeEntry, holiday bool) (Computation, error) {
	wage, err := c.HourlyWage(ctx, entry.EmployeeID, entry.Date)
	if err != nil {
		return Computation{}, err
	}

	comp := Computation{
		Duration:   Duration(entry.StartHour, entry.EndHour),
		Weekend:    entry.Date.IsWeekend(),
		Holiday:    holiday,
		HourlyWage: wage,
	}
	comp.Multiplier = Multiplier(entry.Type, comp.Weekend, comp.Holiday)
	comp.Money, comp.TimeHours = Compensate(entry.Mode, comp.Duration, comp.Multiplier, wage)
	return comp, nil
}

// HourlyWage resolves the wage from the contract active on date.
func (c *Calculator) HourlyWage(ctx context.Context, employeeID generic.EntityID, date generic.TimePoint) (decimal.Decimal, error) {
	contract, err := c.contracts.FindActiveContract(ctx, employeeID, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("find active contract: %w", err)
	}
	if contract == nil {
		return decimal.Zero, nil
	}
	if contract.WageType == generic.WageHourly {
		return contract.HourlyWage, nil
	}
	return contract.Wage.Div(c.policy.MonthHours), nil
}

// =============================================================================
// LIMITS
// =============================================================================

// CheckLimits verifies that adding entry keeps the employee within the
// monthly and yearly caps. Only approved and paid entries count, and the
// entry itself is excluded. Emergency overtime is never limited.
func CheckLimits(ctx context.Context, q generic.OvertimeQuery, entry generic.OvertimeEntry, policy Policy) error {
	if entry.Type == generic.OvertimeEmergency {
		return nil
	}
	adding := Duration(entry.StartHour, entry.EndHour)
	date := entry.Date

	for _, limit := range []struct {
		rule   error
		window generic.DateRange
		cap    decimal.Decimal
	}{
		{generic.ErrMonthlyLimitExceeded, generic.Between(generic.StartOfMonth(date.Year(), date.Month()), generic.EndOfMonth(date.Year(), date.Month())), policy.MonthlyCapHours},
		{generic.ErrYearlyLimitExceeded, generic.Between(generic.StartOfYear(date.Year()), generic.EndOfYear(date.Year())), policy.YearlyCapHours},
	} {
		existing, err := q.FindOvertime(ctx, generic.OvertimeFilter{
			EmployeeID: entry.EmployeeID,
			States:     generic.CountedOvertimeStates,
			Dated:      limit.window,
			ExcludeID:  entry.ID,
		})
		if err != nil {
			return fmt.Errorf("load overtime history: %w", err)
		}

		total := zeroHours
		for _, e := range existing {
			total = total.Add(Duration(e.StartHour, e.EndHour))
		}
		if total.Add(adding).Value.GreaterThan(limit.cap) {
			return &generic.LimitExceededError{
				Limit:    limit.rule,
				Cap:      generic.NewAmountFromDecimal(limit.cap, generic.UnitHours),
				Existing: total,
				Adding:   adding,
			}
		}
	}
	return nil
}
