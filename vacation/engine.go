package vacation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

// =============================================================================
// POLICY
// =============================================================================

// Policy holds the tunable vacation rules.
type Policy struct {
	// AnnualDays is the default yearly entitlement (semesterlagen: 25).
	AnnualDays decimal.Decimal

	// AllowNegative lets vacation leaves exceed the remaining balance.
	AllowNegative bool

	// PayPercent is the vacation pay percentage of the salary base (12).
	PayPercent decimal.Decimal
}

// DefaultPolicy is the statutory minimum: 25 days and 12% pay.
func DefaultPolicy() Policy {
	return Policy{
		AnnualDays: decimal.NewFromInt(25),
		PayPercent: decimal.NewFromInt(12),
	}
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance is an employee's vacation position within one vacation year.
type Balance struct {
	EmployeeID  generic.EntityID
	Year        Year
	Entitlement generic.Amount
	Allocated   generic.Amount
	Consumed    generic.Amount
	Remaining   generic.Amount

	// Configured is false when no vacation leave type is set up; all
	// amounts are then zero.
	Configured bool
}

// Queries is what the engine reads.
type Queries interface {
	generic.AllocationQuery
	generic.LeaveQuery
}

// Engine computes vacation balances. It never writes.
type Engine struct {
	queries   Queries
	employees generic.EmployeeQuery
	refs      generic.LeaveTypeRefs
	policy    Policy
}

func NewEngine(queries Queries, refs generic.LeaveTypeRefs, policy Policy) *Engine {
	return &Engine{queries: queries, refs: refs, policy: policy}
}

// WithEmployees lets the engine read per-employee entitlements.
func (e *Engine) WithEmployees(q generic.EmployeeQuery) *Engine {
	e.employees = q
	return e
}

// RemainingBalance computes the balance of the vacation year containing asOf.
func (e *Engine) RemainingBalance(ctx context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (Balance, error) {
	return e.balance(ctx, employeeID, YearOf(asOf), "")
}

func (e *Engine) balance(ctx context.Context, employeeID generic.EntityID, year Year, exclude generic.RecordID) (Balance, error) {
	b := Balance{
		EmployeeID:  employeeID,
		Year:        year,
		Entitlement: generic.NewAmountFromInt(0, generic.UnitDays),
		Allocated:   generic.NewAmountFromInt(0, generic.UnitDays),
		Consumed:    generic.NewAmountFromInt(0, generic.UnitDays),
		Remaining:   generic.NewAmountFromInt(0, generic.UnitDays),
	}
	if e.refs.Vacation == nil {
		return b, nil
	}
	b.Configured = true

	entitlement, err := e.entitlement(ctx, employeeID)
	if err != nil {
		return Balance{}, err
	}
	b.Entitlement = entitlement

	window := generic.RangeOf(year.Period())

	allocations, err := e.queries.FindAllocations(ctx, generic.AllocationFilter{
		EmployeeID:  employeeID,
		LeaveTypeID: *e.refs.Vacation,
		States:      []generic.AllocationState{generic.AllocationValidated},
		Effective:   window,
	})
	if err != nil {
		return Balance{}, fmt.Errorf("load vacation allocations: %w", err)
	}
	for _, a := range allocations {
		b.Allocated = b.Allocated.Add(a.Days)
	}

	leaves, err := e.queries.FindLeaves(ctx, generic.LeaveFilter{
		EmployeeID:  employeeID,
		LeaveTypeID: *e.refs.Vacation,
		States:      generic.CountedLeaveStates,
		Starting:    window,
		ExcludeID:   exclude,
	})
	if err != nil {
		return Balance{}, fmt.Errorf("load vacation leaves: %w", err)
	}
	for _, l := range leaves {
		b.Consumed = b.Consumed.Add(l.Days)
	}

	b.Remaining = b.Allocated.Sub(b.Consumed)
	return b, nil
}

func (e *Engine) entitlement(ctx context.Context, employeeID generic.EntityID) (generic.Amount, error) {
	def := generic.NewAmountFromDecimal(e.policy.AnnualDays, generic.UnitDays)
	if e.employees == nil {
		return def, nil
	}
	emp, err := e.employees.FindEmployee(ctx, employeeID)
	if generic.IsNotFound(err) {
		return def, nil
	}
	if err != nil {
		return generic.Amount{}, fmt.Errorf("load employee: %w", err)
	}
	if emp.VacationDays.IsPositive() {
		return emp.VacationDays, nil
	}
	return def, nil
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

// CheckSufficientBalance rejects a vacation leave whose days exceed the
// remaining balance of the vacation year its start date falls in. The leave
// itself is excluded from the consumed total, so the check can run before or
// after the leave is stored. Leaves of other types pass.
func (e *Engine) CheckSufficientBalance(ctx context.Context, leave generic.Leave) error {
	if e.refs.Vacation == nil || leave.LeaveTypeID != *e.refs.Vacation {
		return nil
	}
	if e.policy.AllowNegative {
		return nil
	}

	b, err := e.balance(ctx, leave.EmployeeID, YearOf(leave.DateFrom), leave.ID)
	if err != nil {
		return err
	}
	if leave.Days.GreaterThan(b.Remaining) {
		return &generic.InsufficientBalanceError{
			EmployeeID: leave.EmployeeID,
			Year:       b.Year.String(),
			Available:  b.Remaining,
			Requested:  leave.Days,
		}
	}
	return nil
}

// ValidateAllocationYear reports an allocation whose recorded year tag
// disagrees with the year derived from its effective date.
func ValidateAllocationYear(a generic.Allocation) error {
	if a.VacationYear == "" {
		return nil
	}
	derived := YearOf(a.EffectiveDate).String()
	if a.VacationYear != derived {
		return &generic.RuleViolation{
			Rule:    generic.ErrVacationYearMismatch,
			Field:   "vacation_year",
			Message: fmt.Sprintf("Allocation is tagged %s but its effective date %s falls in %s.", a.VacationYear, a.EffectiveDate, derived),
		}
	}
	return nil
}

// =============================================================================
// EARNED DAYS AND VACATION PAY
// =============================================================================

// EarnedDays returns the statutory days earned in [start, end], capped at the
// employee's annual entitlement.
func (e *Engine) EarnedDays(ctx context.Context, employeeID generic.EntityID, start, end generic.TimePoint) (generic.Amount, error) {
	entitlement, err := e.entitlement(ctx, employeeID)
	if err != nil {
		return generic.Amount{}, err
	}
	schedule := &StatutoryAccrual{Cap: entitlement.Value}
	return generic.TotalAccrued(schedule, start, end, generic.UnitDays), nil
}

// AccruedVacationPay returns base × percent / 100, rounded to öre.
func AccruedVacationPay(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

// AccruedVacationPay applies the policy percentage.
func (e *Engine) AccruedVacationPay(base decimal.Decimal) decimal.Decimal {
	return AccruedVacationPay(base, e.policy.PayPercent)
}
