/*
Package parental tracks Swedish parental leave usage per employee.

PURPOSE:
  Aggregates the parental benefit quota (240 days per child) against the
  days already taken, counts temporary care for a sick child (VAB) in the
  current calendar year, and enforces the paternity leave cap.

QUOTA RULES:
  Quota:      240 days x number of children
  Used:       pregnancy + parental + paternity days on counted leaves
  Excluded:   temporary care (VAB) and reduced hours
  Remaining:  max(0, quota - used)
  VAB:        temporary care leaves starting in the reference calendar year

FORM DEFAULTS:
  ApplyKindDefaults fills in what a leave form would pre-select when the
  sub-type changes. Its findings are advisory warnings, never errors:
    paternity   -> end date = start + 9 days (10 calendar days)
    pregnancy   -> benefit 100%
    supplement  -> supplement percent = policy default (10%)
    bad child identity number -> warning, number cleared

SEE ALSO:
  - identity/personnummer.go: child identity numbers
  - report.go: agency report rows
*/
package parental

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/identity"
)

// Policy holds the parental quota and paternity limits.
type Policy struct {
	QuotaDaysPerChild        int             // 240
	PaternityMaxDays         int             // 10
	SupplementDefaultPercent decimal.Decimal // 10
}

// DefaultPolicy is 240 days per child and 10 paternity days.
func DefaultPolicy() Policy {
	return Policy{
		QuotaDaysPerChild:        240,
		PaternityMaxDays:         10,
		SupplementDefaultPercent: decimal.NewFromInt(10),
	}
}

// BenefitTiers are the benefit percentages Försäkringskassan pays out.
var BenefitTiers = []decimal.Decimal{
	decimal.NewFromInt(100),
	decimal.NewFromInt(75),
	decimal.NewFromInt(50),
	decimal.NewFromInt(25),
	decimal.RequireFromString("12.5"),
}

// quotaKinds are the sub-types drawn from the per-child day quota.
var quotaKinds = map[generic.ParentalKind]bool{
	generic.ParentalPregnancy: true,
	generic.ParentalParental:  true,
	generic.ParentalPaternity: true,
}

// Tracker computes parental quota usage and validates parental leaves.
type Tracker struct {
	leaves    generic.LeaveQuery
	children  generic.ChildQuery
	employees generic.EmployeeQuery // optional, for report rows
	refs      generic.LeaveTypeRefs
	policy    Policy
}

func NewTracker(leaves generic.LeaveQuery, children generic.ChildQuery, refs generic.LeaveTypeRefs, policy Policy) *Tracker {
	return &Tracker{leaves: leaves, children: children, refs: refs, policy: policy}
}

// IsParentalLeave reports whether the leave is of the configured parental
// leave type.
func (t *Tracker) IsParentalLeave(leave generic.Leave) bool {
	return t.refs.Parental != nil && leave.LeaveTypeID == *t.refs.Parental
}

// =============================================================================
// STATISTICS
// =============================================================================

// ChildSummary is a child with its age at the statistics date.
type ChildSummary struct {
	ID        generic.RecordID
	Name      string
	BirthDate generic.TimePoint
	Age       int
}

// Statistics is an employee's parental leave position as of a date.
type Statistics struct {
	EmployeeID      generic.EntityID
	ChildCount      int
	Children        []ChildSummary
	QuotaDays       generic.Amount
	UsedDays        generic.Amount
	RemainingDays   generic.Amount
	VABUsedThisYear generic.Amount
	ByKind          map[generic.ParentalKind]generic.Amount
	Configured      bool
}

// Statistics aggregates quota usage as of asOf. Without a configured parental
// leave type the leave-derived figures are zero and Configured is false.
func (t *Tracker) Statistics(ctx context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (Statistics, error) {
	zero := generic.NewAmountFromInt(0, generic.UnitDays)
	stats := Statistics{
		EmployeeID:      employeeID,
		QuotaDays:       zero,
		UsedDays:        zero,
		RemainingDays:   zero,
		VABUsedThisYear: zero,
		ByKind:          map[generic.ParentalKind]generic.Amount{},
	}

	children, err := t.children.ListChildren(ctx, employeeID)
	if err != nil {
		return Statistics{}, fmt.Errorf("list children: %w", err)
	}
	stats.ChildCount = len(children)
	for _, c := range children {
		stats.Children = append(stats.Children, ChildSummary{
			ID:        c.ID,
			Name:      c.Name,
			BirthDate: c.BirthDate,
			Age:       identity.AgeAt(c.BirthDate, asOf),
		})
	}
	stats.QuotaDays = generic.NewAmountFromInt(t.policy.QuotaDaysPerChild*stats.ChildCount, generic.UnitDays)

	if t.refs.Parental == nil {
		return stats, nil
	}
	stats.Configured = true

	leaves, err := t.leaves.FindLeaves(ctx, generic.LeaveFilter{
		EmployeeID:  employeeID,
		LeaveTypeID: *t.refs.Parental,
		States:      generic.CountedLeaveStates,
	})
	if err != nil {
		return Statistics{}, fmt.Errorf("load parental leaves: %w", err)
	}

	year := generic.Between(generic.StartOfYear(asOf.Year()), generic.EndOfYear(asOf.Year()))
	for _, l := range leaves {
		kind := kindOf(l)
		if kind == "" {
			continue
		}
		total, ok := stats.ByKind[kind]
		if !ok {
			total = zero
		}
		stats.ByKind[kind] = total.Add(l.Days)
		if quotaKinds[kind] {
			stats.UsedDays = stats.UsedDays.Add(l.Days)
		}
		if kind == generic.ParentalTemporary && year.Contains(l.DateFrom) {
			stats.VABUsedThisYear = stats.VABUsedThisYear.Add(l.Days)
		}
	}
	stats.RemainingDays = stats.QuotaDays.Sub(stats.UsedDays).Max(zero)
	return stats, nil
}

// kindOf returns the sub-type of a parental leave, empty when it has none.
// Untyped leaves count towards no quota or per-kind total.
func kindOf(l generic.Leave) generic.ParentalKind {
	if l.Parental == nil {
		return ""
	}
	return l.Parental.Kind
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateLeave checks the blocking constraints of a parental leave record:
// the paternity cap and the benefit tier.
func (t *Tracker) ValidateLeave(leave generic.Leave) error {
	if !t.IsParentalLeave(leave) || leave.Parental == nil {
		return nil
	}
	p := leave.Parental

	maxDays := decimal.NewFromInt(int64(t.policy.PaternityMaxDays))
	if p.Kind == generic.ParentalPaternity && leave.Days.Value.GreaterThan(maxDays) {
		return &generic.RuleViolation{
			Rule:  generic.ErrPaternityLimitExceeded,
			Field: "number_of_days",
			Message: fmt.Sprintf("Paternity leave cannot exceed %d days (requested %s).",
				t.policy.PaternityMaxDays, leave.Days.Value),
		}
	}

	if !p.BenefitPercent.IsZero() && !ValidBenefitTier(p.BenefitPercent) {
		return &generic.RuleViolation{
			Rule:    generic.ErrInvalidBenefitTier,
			Field:   "benefit_percentage",
			Message: fmt.Sprintf("Benefit percentage %s%% is not one of 100, 75, 50, 25 or 12.5.", p.BenefitPercent),
		}
	}
	return nil
}

func ValidBenefitTier(percent decimal.Decimal) bool {
	for _, tier := range BenefitTiers {
		if percent.Equal(tier) {
			return true
		}
	}
	return false
}

// ValidateChild checks a child's identity number and that it encodes the
// recorded birth date. An empty number is accepted.
func ValidateChild(c generic.Child, ref generic.TimePoint) error {
	if c.PersonalNumber == "" {
		return nil
	}
	n, err := identity.ChildValidator().Validate(c.PersonalNumber, ref)
	if err != nil {
		return err
	}
	if !c.BirthDate.IsZero() && !n.BirthDate.Equal(c.BirthDate) {
		return &generic.RuleViolation{
			Rule:  generic.ErrIdentityDate,
			Field: "personal_number",
			Message: fmt.Sprintf("The identity number encodes birth date %s, but the recorded birth date is %s.",
				n.BirthDate, c.BirthDate),
		}
	}
	return nil
}

// =============================================================================
// FORM DEFAULTS
// =============================================================================

type Warning struct {
	Field   string
	Message string
}

// ApplyKindDefaults returns leave with the defaults of its parental sub-type
// filled in. It never fails; problems are returned as warnings and the
// offending field is cleared.
func (t *Tracker) ApplyKindDefaults(leave generic.Leave, ref generic.TimePoint) (generic.Leave, []Warning) {
	if leave.Parental == nil {
		return leave, nil
	}
	details := *leave.Parental
	leave.Parental = &details

	var warnings []Warning
	switch details.Kind {
	case generic.ParentalPaternity:
		if !leave.DateFrom.IsZero() {
			leave.DateTo = leave.DateFrom.AddDays(t.policy.PaternityMaxDays - 1)
		}
	case generic.ParentalPregnancy:
		details.BenefitPercent = decimal.NewFromInt(100)
	}

	if details.SalarySupplement && details.SupplementPercent.IsZero() {
		details.SupplementPercent = t.policy.SupplementDefaultPercent
	}

	if details.ChildPersonalNumber != "" {
		child := generic.Child{
			Name:           details.ChildName,
			BirthDate:      details.ChildBirthDate,
			PersonalNumber: details.ChildPersonalNumber,
		}
		if err := ValidateChild(child, ref); err != nil {
			warnings = append(warnings, Warning{Field: "child_personal_number", Message: err.Error()})
			details.ChildPersonalNumber = ""
		}
	}

	if details.Kind == generic.ParentalPaternity && leave.Days.Value.GreaterThan(decimal.NewFromInt(int64(t.policy.PaternityMaxDays))) {
		warnings = append(warnings, Warning{
			Field:   "number_of_days",
			Message: fmt.Sprintf("Paternity leave is limited to %d days.", t.policy.PaternityMaxDays),
		})
	}
	return leave, warnings
}
