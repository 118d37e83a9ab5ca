/*
Package sickleave tracks Swedish sick leave spells.

PURPOSE:
  Decides whether a sick leave continues an earlier spell, and derives the
  flags that follow from spell state: the qualifying deduction (karensavdrag),
  the employer liability period (sjuklöneperiod), the doctor certificate
  requirement and whether the case must be reported to Försäkringskassan.
  All flags are recomputed on read from the leave history; none is stored.

SPELL RULES:
  Continuation:  a counted prior sick leave ended at most 5 days before this
                 leave starts (gap = start - previous end, in days)
  Spell start:   earliest start of the contiguous chain (ChainFull) or the
                 start of the immediate predecessor (ChainSingleHop)
  Cumulative:    days from spell start to this leave's start, plus its days
  Liability:     cumulative <= 14
  Certificate:   cumulative > 7, enforced at approval
  Deduction:     only on the first leave of a new spell
  Benefit:       80%, or 100% for work injuries

EXAMPLE:
  A: Jan 1-10.  B: Jan 14-16 (gap 4).  C: Jan 20-22 (gap 4 from B).
    ChainFull:      C spell start Jan 1,  cumulative 19 + 3 = 22
    ChainSingleHop: C spell start Jan 14, cumulative  6 + 3 = 9

SEE ALSO:
  - statistics.go: 12-month statistics and agency report rows
*/
package sickleave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

// ChainMode selects how far back a continuation walks.
type ChainMode string

const (
	ChainFull      ChainMode = "full"
	ChainSingleHop ChainMode = "single"
)

// NoPriorSpell is the display value of DaysSinceLastSpell when the employee
// has no earlier sick leave. It is not a day count.
const NoPriorSpell = 999

type Policy struct {
	Chain               ChainMode
	ContinuationGapDays int // 5
	LiabilityDays       int // 14
	CertificateDays     int // 7
	FrequentIllCount    int // 6
}

func DefaultPolicy() Policy {
	return Policy{
		Chain:               ChainFull,
		ContinuationGapDays: 5,
		LiabilityDays:       14,
		CertificateDays:     7,
		FrequentIllCount:    6,
	}
}

var (
	benefitStandard   = decimal.NewFromInt(80)
	benefitWorkInjury = decimal.NewFromInt(100)
)

// Classification is the derived spell state of one sick leave.
type Classification struct {
	// Applicable is false for leaves that are not sick leave, or when no sick
	// leave type is configured. All other fields are then zero.
	Applicable bool

	SpellStart          generic.TimePoint
	CumulativeDays      generic.Amount
	Continuation        bool
	PreviousLeaveID     generic.RecordID // immediate predecessor, if continuing
	DaysSinceLastSpell  int
	QualifyingDeduction bool
	EmployerLiability   bool
	CertificateRequired bool
	ReportToAgency      bool
	BenefitPercent      decimal.Decimal
}

// Tracker classifies sick leaves against an employee's history.
type Tracker struct {
	leaves generic.LeaveQuery
	refs   generic.LeaveTypeRefs
	policy Policy
}

func NewTracker(leaves generic.LeaveQuery, refs generic.LeaveTypeRefs, policy Policy) *Tracker {
	return &Tracker{leaves: leaves, refs: refs, policy: policy}
}

// IsSickLeave reports whether the leave is of the configured sick leave type.
func (t *Tracker) IsSickLeave(leave generic.Leave) bool {
	return t.refs.Sick != nil && leave.LeaveTypeID == *t.refs.Sick
}

// Classify derives the spell state of leave from the employee's counted sick
// leave history.
func (t *Tracker) Classify(ctx context.Context, leave generic.Leave) (Classification, error) {
	if !t.IsSickLeave(leave) {
		return Classification{}, nil
	}

	c := Classification{
		Applicable:         true,
		SpellStart:         leave.DateFrom,
		DaysSinceLastSpell: NoPriorSpell,
		BenefitPercent:     benefitStandard,
	}
	if leave.Sick != nil && leave.Sick.IllnessType == generic.IllnessWorkInjury {
		c.BenefitPercent = benefitWorkInjury
	}

	last, err := t.latestBefore(ctx, leave, generic.TimePoint{})
	if err != nil {
		return Classification{}, err
	}
	if last != nil {
		c.DaysSinceLastSpell = generic.DaysBetween(last.DateTo, leave.DateFrom)
	}

	if last != nil && c.DaysSinceLastSpell <= t.policy.ContinuationGapDays {
		c.Continuation = true
		c.PreviousLeaveID = last.ID
		start, err := t.spellOrigin(ctx, leave, *last)
		if err != nil {
			return Classification{}, err
		}
		c.SpellStart = start
	}
	c.QualifyingDeduction = !c.Continuation

	elapsed := decimal.NewFromInt(int64(generic.DaysBetween(c.SpellStart, leave.DateFrom)))
	c.CumulativeDays = generic.NewAmountFromDecimal(elapsed, generic.UnitDays).Add(leave.Days)

	c.EmployerLiability = !c.CumulativeDays.Value.GreaterThan(decimal.NewFromInt(int64(t.policy.LiabilityDays)))
	c.CertificateRequired = c.CumulativeDays.Value.GreaterThan(decimal.NewFromInt(int64(t.policy.CertificateDays)))
	c.ReportToAgency = !c.EmployerLiability
	return c, nil
}

// spellOrigin walks back from the immediate predecessor to the first leave of
// the contiguous chain.
func (t *Tracker) spellOrigin(ctx context.Context, leave, prev generic.Leave) (generic.TimePoint, error) {
	origin := prev.DateFrom
	if t.policy.Chain == ChainSingleHop {
		return origin, nil
	}

	seen := map[generic.RecordID]bool{leave.ID: true, prev.ID: true}
	current := prev
	for {
		earlier, err := t.latestBefore(ctx, current, current.DateFrom.AddDays(-t.policy.ContinuationGapDays))
		if err != nil {
			return generic.TimePoint{}, err
		}
		if earlier == nil || seen[earlier.ID] {
			return origin, nil
		}
		seen[earlier.ID] = true
		if earlier.DateFrom.Before(origin) {
			origin = earlier.DateFrom
		}
		current = *earlier
	}
}

// latestBefore returns the counted sick leave of the same employee with the
// latest end date strictly before leave starts, optionally ending no earlier
// than notBefore.
func (t *Tracker) latestBefore(ctx context.Context, leave generic.Leave, notBefore generic.TimePoint) (*generic.Leave, error) {
	history, err := t.leaves.FindLeaves(ctx, generic.LeaveFilter{
		EmployeeID:  leave.EmployeeID,
		LeaveTypeID: *t.refs.Sick,
		States:      generic.CountedLeaveStates,
		Ending:      generic.DateRange{From: notBefore, To: leave.DateFrom.AddDays(-1)},
		ExcludeID:   leave.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("load sick leave history: %w", err)
	}

	var latest *generic.Leave
	for i := range history {
		if latest == nil || history[i].DateTo.After(latest.DateTo) {
			latest = &history[i]
		}
	}
	return latest, nil
}

// ValidateApproval blocks approving a sick leave whose spell requires a doctor
// certificate that has not been provided. Leaves not yet approved, or
// refused, pass.
func (t *Tracker) ValidateApproval(ctx context.Context, leave generic.Leave) error {
	if !leave.State.IsCounted() {
		return nil
	}
	c, err := t.Classify(ctx, leave)
	if err != nil {
		return err
	}
	if !c.Applicable || !c.CertificateRequired {
		return nil
	}
	if leave.Sick != nil && leave.Sick.CertificateProvided {
		return nil
	}
	return &generic.RuleViolation{
		Rule:  generic.ErrMissingCertificate,
		Field: "certificate_provided",
		Message: fmt.Sprintf("A doctor's certificate is required for sick leave spells longer than %d days "+
			"(this spell: %s days). Please provide it before approving this leave.",
			t.policy.CertificateDays, c.CumulativeDays.Value),
	}
}
