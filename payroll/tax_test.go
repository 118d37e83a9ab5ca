package payroll_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/generic/store"
	"github.com/warp/entitlement-engine/payroll"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var stockholm = generic.MunicipalityRate{
	ID:         "m-0180",
	Code:       "0180",
	Name:       "Stockholm",
	TotalRate:  dec("32"),
	ChurchRate: dec("1.5"),
}

func salary(amount string) []payroll.Line {
	return []payroll.Line{{Code: "BASIC", Name: "Monthly salary", Category: payroll.CategoryGross, Amount: dec(amount)}}
}

func findLine(t *testing.T, lines []payroll.Line, code string) payroll.Line {
	t.Helper()
	for _, l := range lines {
		if l.Code == code {
			return l
		}
	}
	t.Fatalf("line %s not found", code)
	return payroll.Line{}
}

func TestApplyTax(t *testing.T) {
	tests := []struct {
		name   string
		church bool
		tax    string
		net    string
	}{
		{"non-member", false, "9600", "20400"},
		{"church member", true, "10050", "19950"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: gross salary 30000 in a 32% municipality

			// WHEN
			res := payroll.ApplyTax(salary("30000"), stockholm, tt.church)

			// THEN
			assert.True(t, res.Tax.Equal(dec(tt.tax)), "tax %s", res.Tax)
			assert.True(t, res.Net.Equal(dec(tt.net)), "net %s", res.Net)
			assert.True(t, findLine(t, res.Lines, payroll.CodeTax).Amount.Equal(dec(tt.tax)))
			assert.True(t, findLine(t, res.Lines, payroll.CodeNet).Amount.Equal(dec(tt.net)))
		})
	}
}

func TestApplyTax_ReplacesExistingLinesAndSumsGross(t *testing.T) {
	lines := []payroll.Line{
		{Code: "BASIC", Category: payroll.CategoryGross, Amount: dec("28000")},
		{Code: "OT", Category: payroll.CategoryGross, Amount: dec("2000")},
		{Code: payroll.CodeTax, Category: payroll.CategoryDeduction, Amount: dec("1")},
		{Code: payroll.CodeNet, Category: payroll.CategoryNet, Amount: dec("1")},
	}

	res := payroll.ApplyTax(lines, stockholm, false)

	assert.Len(t, res.Lines, 4)
	assert.True(t, res.Gross.Equal(dec("30000")))
	assert.True(t, findLine(t, res.Lines, payroll.CodeTax).Amount.Equal(dec("9600")))
	assert.True(t, lines[2].Amount.Equal(dec("1")), "input left untouched")
}

func TestApplyTax_RoundsToOre(t *testing.T) {
	rate := generic.MunicipalityRate{TotalRate: dec("32.37")}

	res := payroll.ApplyTax(salary("12345.67"), rate, false)

	assert.True(t, res.Tax.Equal(dec("3996.29")), "got %s", res.Tax)
	assert.True(t, res.Net.Equal(dec("8349.38")), "got %s", res.Net)
}

func TestCalculator(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SaveMunicipalityRate(ctx, stockholm))
	require.NoError(t, s.SaveEmployee(ctx, generic.Employee{ID: "emp-1", MunicipalityID: stockholm.ID, ChurchMember: true}))
	require.NoError(t, s.SaveEmployee(ctx, generic.Employee{ID: "emp-2", MunicipalityID: "m-unknown"}))
	calc := payroll.NewCalculator(s, s)

	t.Run("church member", func(t *testing.T) {
		res, err := calc.Compute(ctx, "emp-1", salary("30000"))
		require.NoError(t, err)
		assert.True(t, res.Tax.Equal(dec("10050")))
		assert.True(t, res.ChurchTax.Equal(dec("450")))
	})

	t.Run("unknown municipality", func(t *testing.T) {
		_, err := calc.Compute(ctx, "emp-2", salary("30000"))
		assert.True(t, generic.IsNotConfigured(err))
	})

	t.Run("unknown employee", func(t *testing.T) {
		_, err := calc.Compute(ctx, "emp-404", salary("30000"))
		assert.True(t, generic.IsNotFound(err))
	})
}
