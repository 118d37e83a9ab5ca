/*
Package generic provides the shared vocabulary of the entitlement engine.

PURPOSE:
  This package contains the value types, record shapes and query interfaces
  that every rule engine (vacation, sick leave, parental leave, overtime,
  payroll tax) is written against. It has no knowledge of Swedish statute;
  the rules live in the domain packages.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 2.08 days, 4.5 hours, 9600 SEK)
  - Identifiers: Type-safe IDs for employees, leave types and records
  - DateRange: Optional inclusive date bounds used by every query

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, never float64, for days, hours and money
  2. Type Safety: Strong typing prevents mixing employee/record/leave-type IDs
  3. Snapshots: Engines receive immutable records and return computed values

USAGE:
  days := generic.NewAmount(2.08, generic.UnitDays)
  total := days.Mul(decimal.NewFromInt(12))

SEE ALSO:
  - records.go: Allocation, Leave, Contract, Child, Employee, OvertimeEntry
  - store.go: Query interfaces the engines consume
  - errors.go: Rule violation taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
	UnitSEK   Unit = "SEK"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func Days(value float64) Amount  { return NewAmount(value, UnitDays) }
func Hours(value float64) Amount { return NewAmount(value, UnitHours) }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) Round(places int32) Amount    { return Amount{Value: a.Value.Round(places), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) String() string               { return a.Value.String() + " " + string(a.Unit) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Float64 is for presentation only. Arithmetic stays in decimal.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// SumAmounts adds amounts of the same unit. An empty slice yields zero of unit.
func SumAmounts(unit Unit, amounts ...Amount) Amount {
	total := Amount{Value: decimal.Zero, Unit: unit}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies an employee.
type EntityID string

// LeaveTypeID identifies a leave type record (vacation, sick, parental...).
type LeaveTypeID string

// RecordID identifies a stored record (allocation, leave, overtime entry...).
type RecordID string

// =============================================================================
// DATE RANGE - Optional query bounds
// =============================================================================

// DateRange is an inclusive [From, To] range. A zero bound is open.
type DateRange struct {
	From TimePoint
	To   TimePoint
}

// Between builds a closed range.
func Between(from, to TimePoint) DateRange { return DateRange{From: from, To: to} }

// RangeOf converts a Period into a DateRange.
func RangeOf(p Period) DateRange { return DateRange{From: p.Start, To: p.End} }

func (r DateRange) Contains(t TimePoint) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

func (r DateRange) IsUnbounded() bool { return r.From.IsZero() && r.To.IsZero() }
