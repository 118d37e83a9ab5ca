/*
Package payroll applies Swedish municipal income tax to payslip lines.

RULES:
  tax  = gross x municipal total rate
       + gross x church rate           (church members only)
  net  = gross - tax

  Rates are stored as percentages (0-100). All GROSS category lines are
  summed; the TAX and NET lines are replaced when present and appended
  otherwise. Amounts are rounded to whole öre.
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

const (
	CategoryGross     = "GROSS"
	CategoryDeduction = "DED"
	CategoryNet       = "NET"

	CodeTax = "TAX"
	CodeNet = "NET"
)

var hundred = decimal.NewFromInt(100)

// Line is one payslip line.
type Line struct {
	Code     string
	Name     string
	Category string
	Amount   decimal.Decimal
}

// Result summarizes one tax computation.
type Result struct {
	Gross     decimal.Decimal
	Tax       decimal.Decimal
	ChurchTax decimal.Decimal
	Net       decimal.Decimal
	Lines     []Line
}

// ApplyTax computes tax and net pay for the gross lines. The input slice is
// not modified.
func ApplyTax(lines []Line, rate generic.MunicipalityRate, churchMember bool) Result {
	gross := decimal.Zero
	for _, l := range lines {
		if l.Category == CategoryGross {
			gross = gross.Add(l.Amount)
		}
	}

	tax := gross.Mul(rate.TotalRate.Div(hundred))
	church := decimal.Zero
	if churchMember {
		church = gross.Mul(rate.ChurchRate.Div(hundred))
	}
	total := tax.Add(church).Round(2)
	net := gross.Sub(total).Round(2)

	out := make([]Line, 0, len(lines)+2)
	out = append(out, lines...)
	out = upsertLine(out, Line{Code: CodeTax, Name: "Preliminary tax", Category: CategoryDeduction, Amount: total})
	out = upsertLine(out, Line{Code: CodeNet, Name: "Net salary", Category: CategoryNet, Amount: net})

	return Result{
		Gross:     gross,
		Tax:       total,
		ChurchTax: church.Round(2),
		Net:       net,
		Lines:     out,
	}
}

func upsertLine(lines []Line, line Line) []Line {
	for i := range lines {
		if lines[i].Code == line.Code {
			lines[i].Amount = line.Amount
			return lines
		}
	}
	return append(lines, line)
}

// =============================================================================
// CALCULATOR - Resolves the employee's municipality
// =============================================================================

type Calculator struct {
	employees      generic.EmployeeQuery
	municipalities generic.MunicipalityQuery
}

func NewCalculator(employees generic.EmployeeQuery, municipalities generic.MunicipalityQuery) *Calculator {
	return &Calculator{employees: employees, municipalities: municipalities}
}

// Compute applies the tax of the employee's municipality. An employee
// without a known municipality rate fails with ErrLookupNotConfigured.
func (c *Calculator) Compute(ctx context.Context, employeeID generic.EntityID, lines []Line) (Result, error) {
	emp, err := c.employees.FindEmployee(ctx, employeeID)
	if err != nil {
		return Result{}, fmt.Errorf("find employee %s: %w", employeeID, err)
	}
	rate, err := c.municipalities.FindMunicipalityRate(ctx, emp.MunicipalityID)
	if err != nil {
		return Result{}, fmt.Errorf("find municipality rate: %w", err)
	}
	if rate == nil {
		return Result{}, generic.Violation(generic.ErrLookupNotConfigured,
			"No municipality tax rate is configured for employee %s.", employeeID)
	}
	return ApplyTax(lines, *rate, emp.ChurchMember), nil
}
