package sickleave

import (
	"context"
	"fmt"

	"github.com/warp/entitlement-engine/generic"
)

// StatisticsWindow is the trailing window of the sick leave statistics.
var StatisticsWindow = generic.PeriodConfig{Type: generic.PeriodRolling, RollingDays: 365}

// Statistics summarizes an employee's counted sick leave over the last year.
type Statistics struct {
	EmployeeID    generic.EntityID
	Window        generic.Period
	Count         int
	Days          generic.Amount
	FrequentlyIll bool
	Configured    bool
}

// Statistics counts sick leaves starting in the 365 days up to asOf.
// Without a configured sick leave type it returns zero values.
func (t *Tracker) Statistics(ctx context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (Statistics, error) {
	window := StatisticsWindow.PeriodFor(asOf)
	stats := Statistics{
		EmployeeID: employeeID,
		Window:     window,
		Days:       generic.NewAmountFromInt(0, generic.UnitDays),
	}
	if t.refs.Sick == nil {
		return stats, nil
	}
	stats.Configured = true

	leaves, err := t.leaves.FindLeaves(ctx, generic.LeaveFilter{
		EmployeeID:  employeeID,
		LeaveTypeID: *t.refs.Sick,
		States:      generic.CountedLeaveStates,
		Starting:    generic.RangeOf(window),
	})
	if err != nil {
		return Statistics{}, fmt.Errorf("load sick leaves: %w", err)
	}

	stats.Count = len(leaves)
	for _, l := range leaves {
		stats.Days = stats.Days.Add(l.Days)
	}
	stats.FrequentlyIll = stats.Count > t.policy.FrequentIllCount
	return stats, nil
}

// =============================================================================
// AGENCY REPORT
// =============================================================================

type ReportKind string

const (
	ReportInitial     ReportKind = "initial"
	ReportExtension   ReportKind = "extension"
	ReportTermination ReportKind = "termination"
)

// AgencyReport holds the fields Försäkringskassan needs once the employer
// liability period has ended. Producing the file format is the caller's job.
type AgencyReport struct {
	LeaveID        generic.RecordID
	EmployeeID     generic.EntityID
	Kind           ReportKind
	SpellStart     generic.TimePoint
	StartDate      generic.TimePoint
	EndDate        generic.TimePoint
	IllnessType    generic.IllnessType
	CumulativeDays generic.Amount
}

// AgencyReport builds the report for a sick leave whose spell has passed the
// employer liability period. During that period there is nothing to report.
func (t *Tracker) AgencyReport(ctx context.Context, leave generic.Leave, kind ReportKind) (AgencyReport, error) {
	c, err := t.Classify(ctx, leave)
	if err != nil {
		return AgencyReport{}, err
	}
	if !c.Applicable || !c.ReportToAgency {
		return AgencyReport{}, generic.Violation(generic.ErrReportNotDue,
			"Sick leave %s is within the employer liability period; no report to Försäkringskassan is due.", leave.ID)
	}
	if kind == "" {
		kind = ReportInitial
	}

	illness := generic.IllnessNormal
	if leave.Sick != nil && leave.Sick.IllnessType != "" {
		illness = leave.Sick.IllnessType
	}
	return AgencyReport{
		LeaveID:        leave.ID,
		EmployeeID:     leave.EmployeeID,
		Kind:           kind,
		SpellStart:     c.SpellStart,
		StartDate:      leave.DateFrom,
		EndDate:        leave.DateTo,
		IllnessType:    illness,
		CumulativeDays: c.CumulativeDays,
	}, nil
}
