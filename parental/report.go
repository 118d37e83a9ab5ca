package parental

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

// ReportRow is one counted parental leave as listed for Försäkringskassan.
type ReportRow struct {
	LeaveID        generic.RecordID
	EmployeeID     generic.EntityID
	EmployeeName   string
	ChildName      string
	ChildBirthDate generic.TimePoint
	Kind           generic.ParentalKind
	BenefitPercent decimal.Decimal
	DateFrom       generic.TimePoint
	DateTo         generic.TimePoint
	Days           generic.Amount
	CaseNumber     string
}

// ReportFilter selects report rows. Zero fields do not filter.
type ReportFilter struct {
	EmployeeID generic.EntityID
	Starting   generic.DateRange
}

// WithEmployees lets ReportRows resolve employee names.
func (t *Tracker) WithEmployees(employees generic.EmployeeQuery) *Tracker {
	t.employees = employees
	return t
}

// ReportRows lists counted parental leaves ordered by start date. Without a
// configured parental leave type there is nothing to report.
func (t *Tracker) ReportRows(ctx context.Context, filter ReportFilter) ([]ReportRow, error) {
	if t.refs.Parental == nil {
		return nil, nil
	}
	leaves, err := t.leaves.FindLeaves(ctx, generic.LeaveFilter{
		EmployeeID:  filter.EmployeeID,
		LeaveTypeID: *t.refs.Parental,
		States:      generic.CountedLeaveStates,
		Starting:    filter.Starting,
	})
	if err != nil {
		return nil, fmt.Errorf("load parental leaves: %w", err)
	}

	names := map[generic.EntityID]string{}
	rows := make([]ReportRow, 0, len(leaves))
	for _, l := range leaves {
		row := ReportRow{
			LeaveID:        l.ID,
			EmployeeID:     l.EmployeeID,
			Kind:           kindOf(l),
			BenefitPercent: decimal.NewFromInt(100),
			DateFrom:       l.DateFrom,
			DateTo:         l.DateTo,
			Days:           l.Days,
		}
		if p := l.Parental; p != nil {
			row.ChildName = p.ChildName
			row.ChildBirthDate = p.ChildBirthDate
			row.CaseNumber = p.CaseNumber
			if !p.BenefitPercent.IsZero() {
				row.BenefitPercent = p.BenefitPercent
			}
		}
		if t.employees != nil {
			name, ok := names[l.EmployeeID]
			if !ok {
				emp, err := t.employees.FindEmployee(ctx, l.EmployeeID)
				if err != nil && !generic.IsNotFound(err) {
					return nil, fmt.Errorf("find employee %s: %w", l.EmployeeID, err)
				}
				name = emp.Name
				names[l.EmployeeID] = name
			}
			row.EmployeeName = name
		}
		rows = append(rows, row)
	}
	return rows, nil
}
