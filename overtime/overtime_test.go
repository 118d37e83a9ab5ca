package overtime_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/generic/store"
	"github.com/warp/entitlement-engine/overtime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func entry(id string, on generic.TimePoint, start, end string, t generic.OvertimeType, mode generic.CompensationMode) generic.OvertimeEntry {
	return generic.OvertimeEntry{
		ID:         generic.RecordID(id),
		EmployeeID: "emp-1",
		CompanyID:  "acme",
		Date:       on,
		StartHour:  dec(start),
		EndHour:    dec(end),
		Type:       t,
		Mode:       mode,
		State:      generic.OvertimeDraft,
	}
}

// hourlyStore holds an hourly contract at 200 SEK.
func hourlyStore(t *testing.T) *store.TxMemory {
	t.Helper()
	s := store.NewTxMemory()
	require.NoError(t, s.SaveContract(context.Background(), generic.Contract{
		ID:         "k-1",
		EmployeeID: "emp-1",
		WageType:   generic.WageHourly,
		HourlyWage: dec("200"),
		Start:      date(2020, time.January, 1),
	}))
	return s
}

func seedApproved(t *testing.T, s *store.TxMemory, e generic.OvertimeEntry) {
	t.Helper()
	e.State = generic.OvertimeApproved
	require.NoError(t, s.SaveOvertimeEntry(context.Background(), e))
}

// =============================================================================
// PURE RULES
// =============================================================================

func TestDuration(t *testing.T) {
	tests := []struct {
		start, end string
		want       string
	}{
		{"17", "20", "3"},
		{"22", "2", "4"},
		{"18.5", "21.25", "2.75"},
		{"8", "8", "0"},
	}
	for _, tt := range tests {
		got := overtime.Duration(dec(tt.start), dec(tt.end))
		assert.True(t, got.Value.Equal(dec(tt.want)), "%s-%s: got %s", tt.start, tt.end, got.Value)
		assert.Equal(t, generic.UnitHours, got.Unit)
	}
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		typ     generic.OvertimeType
		weekend bool
		holiday bool
		want    string
	}{
		{"simple weekday", generic.OvertimeSimple, false, false, "1.5"},
		{"preparation weekday", generic.OvertimePreparation, false, false, "1.5"},
		{"qualified", generic.OvertimeQualified, false, false, "2"},
		{"simple on weekend", generic.OvertimeSimple, true, false, "2"},
		{"simple on holiday", generic.OvertimeSimple, false, true, "2"},
		{"emergency", generic.OvertimeEmergency, false, false, "2.5"},
		{"emergency on weekend", generic.OvertimeEmergency, true, false, "2"},
		{"standby", generic.OvertimeStandby, false, false, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overtime.Multiplier(tt.typ, tt.weekend, tt.holiday)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestValidateTimes(t *testing.T) {
	assert.NoError(t, overtime.ValidateTimes(dec("0"), dec("23.75")))

	for _, bad := range [][2]string{{"24", "2"}, {"-1", "2"}, {"8", "24"}} {
		err := overtime.ValidateTimes(dec(bad[0]), dec(bad[1]))
		assert.ErrorIs(t, err, generic.ErrInvalidTimeRange, "%v", bad)
	}
}

func TestCompensate(t *testing.T) {
	duration := generic.Hours(2)
	wage := dec("200")
	mult := dec("1.5")

	money, hours := overtime.Compensate(generic.CompensationMoney, duration, mult, wage)
	assert.True(t, money.Value.Equal(dec("600")))
	assert.True(t, hours.IsZero())

	money, hours = overtime.Compensate(generic.CompensationTime, duration, mult, wage)
	assert.True(t, money.IsZero())
	assert.True(t, hours.Value.Equal(dec("3")))

	money, hours = overtime.Compensate(generic.CompensationMixed, duration, mult, wage)
	assert.True(t, money.Value.Equal(dec("300")))
	assert.True(t, hours.Value.Equal(dec("1.5")))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestEasterSunday(t *testing.T) {
	for year, want := range map[int]generic.TimePoint{
		2000: date(2000, time.April, 23),
		2019: date(2019, time.April, 21),
		2024: date(2024, time.March, 31),
		2025: date(2025, time.April, 20),
	} {
		assert.True(t, overtime.EasterSunday(year).Equal(want), "%d", year)
	}
}

func TestPublicHolidays(t *testing.T) {
	cal := overtime.PublicHolidays{}

	holidays := []generic.TimePoint{
		date(2024, time.January, 1),
		date(2024, time.March, 29), // Långfredagen
		date(2024, time.April, 1),  // Annandag påsk
		date(2024, time.May, 9),    // Kristi himmelsfärdsdag
		date(2024, time.June, 6),
		date(2024, time.June, 21), // Midsommarafton
		date(2024, time.November, 2),
		date(2024, time.December, 24),
		date(2025, time.June, 20), // Midsommarafton
	}
	for _, d := range holidays {
		assert.True(t, cal.IsHoliday("", d), "%s", d)
	}

	for _, d := range []generic.TimePoint{
		date(2024, time.June, 3),
		date(2024, time.June, 20),
		date(2024, time.March, 28),
	} {
		assert.False(t, cal.IsHoliday("", d), "%s", d)
	}

	assert.Len(t, cal.GetHolidays("acme", 2024), 16)
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestCompute_WeekdaySimpleMoney(t *testing.T) {
	// GIVEN: 2h on a Monday at 200 SEK/h
	s := hourlyStore(t)
	calc := overtime.NewCalculator(s, nil, overtime.DefaultPolicy())
	e := entry("ot-1", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationMoney)

	// WHEN
	comp, err := calc.Compute(context.Background(), e)

	// THEN
	require.NoError(t, err)
	assert.False(t, comp.Weekend)
	assert.False(t, comp.Holiday)
	assert.True(t, comp.Multiplier.Equal(dec("1.5")))
	assert.True(t, comp.Money.Value.Equal(dec("600")), "got %s", comp.Money.Value)
	assert.Equal(t, generic.UnitSEK, comp.Money.Unit)
}

func TestCompute_WeekendOverridesType(t *testing.T) {
	s := hourlyStore(t)
	calc := overtime.NewCalculator(s, nil, overtime.DefaultPolicy())
	e := entry("ot-1", date(2024, time.June, 1), "10", "12", generic.OvertimeSimple, generic.CompensationTime)

	comp, err := calc.Compute(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, comp.Weekend)
	assert.True(t, comp.Multiplier.Equal(dec("2")))
	assert.True(t, comp.TimeHours.Value.Equal(dec("4")))
	assert.True(t, comp.Money.IsZero())
}

func TestCompute_CompanyHolidayCalendar(t *testing.T) {
	// GIVEN: a company holiday on a plain Monday
	company := companyHolidays{"acme": date(2024, time.June, 3)}
	calc := overtime.NewCalculator(hourlyStore(t), generic.Calendars{overtime.PublicHolidays{}, company}, overtime.DefaultPolicy())
	e := entry("ot-1", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationMoney)

	comp, err := calc.Compute(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, comp.Holiday)
	assert.True(t, comp.Multiplier.Equal(dec("2")))
}

func TestHourlyWage(t *testing.T) {
	ctx := context.Background()
	s := store.NewTxMemory()
	require.NoError(t, s.SaveContract(ctx, generic.Contract{
		ID:         "k-monthly",
		EmployeeID: "emp-1",
		WageType:   generic.WageMonthly,
		Wage:       dec("33600"),
		Start:      date(2024, time.January, 1),
		End:        date(2024, time.December, 31),
	}))
	calc := overtime.NewCalculator(s, nil, overtime.DefaultPolicy())

	wage, err := calc.HourlyWage(ctx, "emp-1", date(2024, time.June, 3))
	require.NoError(t, err)
	assert.True(t, wage.Equal(dec("200")), "33600 / 168, got %s", wage)

	wage, err = calc.HourlyWage(ctx, "emp-1", date(2025, time.June, 3))
	require.NoError(t, err)
	assert.True(t, wage.IsZero(), "no active contract")
}

type companyHolidays map[string]generic.TimePoint

func (c companyHolidays) IsHoliday(companyID string, d generic.TimePoint) bool {
	h, ok := c[companyID]
	return ok && h.Equal(d)
}

func (c companyHolidays) GetHolidays(companyID string, year int) []generic.Holiday {
	return nil
}

// =============================================================================
// LIMITS
// =============================================================================

func TestCheckLimits_Monthly(t *testing.T) {
	// GIVEN: 46 approved hours in June, 10 draft hours that do not count
	ctx := context.Background()
	s := hourlyStore(t)
	for i, day := range []int{3, 4, 5, 6} {
		seedApproved(t, s, entry(fmt.Sprintf("ot-%d", i), date(2024, time.June, day), "8", "19.5", generic.OvertimeSimple, generic.CompensationMoney))
	}
	require.NoError(t, s.SaveOvertimeEntry(ctx, entry("ot-draft", date(2024, time.June, 10), "8", "18", generic.OvertimeSimple, generic.CompensationMoney)))
	policy := overtime.DefaultPolicy()

	t.Run("within cap", func(t *testing.T) {
		e := entry("new", date(2024, time.June, 20), "17", "19", generic.OvertimeSimple, generic.CompensationMoney)
		assert.NoError(t, overtime.CheckLimits(ctx, s, e, policy))
	})

	t.Run("over cap", func(t *testing.T) {
		e := entry("new", date(2024, time.June, 20), "17", "20", generic.OvertimeSimple, generic.CompensationMoney)
		err := overtime.CheckLimits(ctx, s, e, policy)
		assert.ErrorIs(t, err, generic.ErrMonthlyLimitExceeded)
		assert.Contains(t, err.Error(), "Monthly overtime limit (48 hours)")
	})

	t.Run("emergency is exempt", func(t *testing.T) {
		e := entry("new", date(2024, time.June, 20), "17", "23", generic.OvertimeEmergency, generic.CompensationMoney)
		assert.NoError(t, overtime.CheckLimits(ctx, s, e, policy))
	})

	t.Run("other month", func(t *testing.T) {
		e := entry("new", date(2024, time.July, 1), "17", "23", generic.OvertimeSimple, generic.CompensationMoney)
		assert.NoError(t, overtime.CheckLimits(ctx, s, e, policy))
	})
}

func TestCheckLimits_Yearly(t *testing.T) {
	// GIVEN: 40 approved hours in each of January to May
	ctx := context.Background()
	s := hourlyStore(t)
	for month := time.January; month <= time.May; month++ {
		for day := 10; day < 14; day++ {
			seedApproved(t, s, entry(fmt.Sprintf("ot-%d-%d", month, day), date(2024, month, day), "8", "18", generic.OvertimeSimple, generic.CompensationMoney))
		}
	}

	// WHEN: one more hour in June
	e := entry("new", date(2024, time.June, 3), "17", "18", generic.OvertimeSimple, generic.CompensationMoney)
	err := overtime.CheckLimits(ctx, s, e, overtime.DefaultPolicy())

	// THEN
	assert.ErrorIs(t, err, generic.ErrYearlyLimitExceeded)
	assert.True(t, generic.IsRuleViolation(err))

	next := entry("next", date(2025, time.January, 2), "17", "18", generic.OvertimeSimple, generic.CompensationMoney)
	assert.NoError(t, overtime.CheckLimits(ctx, s, next, overtime.DefaultPolicy()))
}

// =============================================================================
// LEDGER
// =============================================================================

func newLedger(s generic.TxStore, refs generic.LeaveTypeRefs) *overtime.Ledger {
	return overtime.NewLedger(s, nil, refs, overtime.DefaultPolicy(), nil)
}

func TestLedger_ApproveTimeCompensationGrantsTimeOff(t *testing.T) {
	// GIVEN: 2h simple overtime on a Monday, compensated in time
	ctx := context.Background()
	s := hourlyStore(t)
	ledger := newLedger(s, generic.LeaveTypeRefs{})
	approvedAt := date(2024, time.June, 10)

	created, err := ledger.Create(ctx, entry("", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationTime))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, generic.OvertimeDraft, created.State)

	_, err = ledger.Submit(ctx, created.ID, "emp-1", approvedAt)
	require.NoError(t, err)

	// WHEN
	approved, err := ledger.Approve(ctx, created.ID, "mgr-1", approvedAt)

	// THEN: 2h x 1.5 = 3h = 0.375 days on the OVERTIME type
	require.NoError(t, err)
	assert.Equal(t, generic.OvertimeApproved, approved.State)
	assert.Equal(t, "mgr-1", approved.ApprovedBy)
	assert.True(t, approved.ApprovedAt.Equal(approvedAt))
	require.NotEmpty(t, approved.AllocationID)

	grants, err := s.FindAllocations(ctx, generic.AllocationFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, approved.AllocationID, grants[0].ID)
	assert.Equal(t, generic.LeaveTypeID(generic.OvertimeTypeCode), grants[0].LeaveTypeID)
	assert.Equal(t, generic.AllocationValidated, grants[0].State)
	assert.True(t, grants[0].Days.Value.Equal(dec("0.375")), "got %s", grants[0].Days.Value)
	assert.True(t, grants[0].EffectiveDate.Equal(approvedAt))
	assert.Equal(t, overtime.GrantKey(created.ID), grants[0].IdempotencyKey)

	audit, err := s.QueryAudit(ctx, generic.AuditFilter{RecordID: &created.ID})
	require.NoError(t, err)
	assert.Len(t, audit, 2)
}

func TestLedger_ConfiguredOvertimeType(t *testing.T) {
	ctx := context.Background()
	s := hourlyStore(t)
	ledger := newLedger(s, generic.LeaveTypeRefs{Overtime: generic.RefOf("lt-comp")})
	at := date(2024, time.June, 10)

	created, err := ledger.Create(ctx, entry("ot-1", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationMixed))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, created.ID, "emp-1", at)
	require.NoError(t, err)
	_, err = ledger.Approve(ctx, created.ID, "mgr-1", at)
	require.NoError(t, err)

	grants, err := s.FindAllocations(ctx, generic.AllocationFilter{LeaveTypeID: "lt-comp"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Days.Value.Equal(dec("0.1875")), "half of 3h over 8h, got %s", grants[0].Days.Value)
}

func TestLedger_MoneyCompensationCreatesNoGrant(t *testing.T) {
	ctx := context.Background()
	s := hourlyStore(t)
	ledger := newLedger(s, generic.LeaveTypeRefs{})
	at := date(2024, time.June, 10)

	created, err := ledger.Create(ctx, entry("ot-1", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationMoney))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, created.ID, "emp-1", at)
	require.NoError(t, err)
	approved, err := ledger.Approve(ctx, created.ID, "mgr-1", at)
	require.NoError(t, err)

	assert.Empty(t, approved.AllocationID)
	assert.True(t, approved.Computation.Money.Value.Equal(dec("600")))
	grants, err := s.FindAllocations(ctx, generic.AllocationFilter{})
	require.NoError(t, err)
	assert.Empty(t, grants)

	paid, err := ledger.MarkPaid(ctx, created.ID, "payroll", at)
	require.NoError(t, err)
	assert.Equal(t, generic.OvertimePaid, paid.State)
}

func TestLedger_StateMachine(t *testing.T) {
	ctx := context.Background()
	s := hourlyStore(t)
	ledger := newLedger(s, generic.LeaveTypeRefs{})
	at := date(2024, time.June, 10)

	created, err := ledger.Create(ctx, entry("ot-1", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationMoney))
	require.NoError(t, err)

	t.Run("cannot approve a draft", func(t *testing.T) {
		_, err := ledger.Approve(ctx, created.ID, "mgr-1", at)
		assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	})

	t.Run("cannot pay a draft", func(t *testing.T) {
		_, err := ledger.MarkPaid(ctx, created.ID, "payroll", at)
		assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		_, err := ledger.Submit(ctx, created.ID, "emp-1", at)
		require.NoError(t, err)

		_, err = ledger.Reject(ctx, created.ID, "mgr-1", "  ", at)
		assert.ErrorIs(t, err, generic.ErrRejectionReasonRequired)
	})

	t.Run("reject with reason", func(t *testing.T) {
		rejected, err := ledger.Reject(ctx, created.ID, "mgr-1", "Not agreed in advance", at)
		require.NoError(t, err)
		assert.Equal(t, generic.OvertimeRejected, rejected.State)
		assert.Equal(t, "Not agreed in advance", rejected.RejectionReason)
	})

	t.Run("rejected is final", func(t *testing.T) {
		_, err := ledger.Submit(ctx, created.ID, "emp-1", at)
		assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := ledger.Submit(ctx, "missing", "emp-1", at)
		assert.True(t, generic.IsNotFound(err))
	})
}

func TestLedger_ApproveRechecksLimits(t *testing.T) {
	// GIVEN: a submitted 3h entry, then 46h approved elsewhere in the month
	ctx := context.Background()
	s := hourlyStore(t)
	ledger := newLedger(s, generic.LeaveTypeRefs{})
	at := date(2024, time.June, 28)

	created, err := ledger.Create(ctx, entry("ot-late", date(2024, time.June, 24), "17", "20", generic.OvertimeSimple, generic.CompensationTime))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, created.ID, "emp-1", at)
	require.NoError(t, err)
	for i, day := range []int{3, 4, 5, 6} {
		seedApproved(t, s, entry(fmt.Sprintf("ot-%d", i), date(2024, time.June, day), "8", "19.5", generic.OvertimeSimple, generic.CompensationMoney))
	}

	// WHEN
	_, err = ledger.Approve(ctx, created.ID, "mgr-1", at)

	// THEN: nothing is committed
	assert.ErrorIs(t, err, generic.ErrMonthlyLimitExceeded)
	got, err := ledger.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.OvertimeSubmitted, got.State)
	grants, err := s.FindAllocations(ctx, generic.AllocationFilter{})
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestLedger_CreateRejectsInvalidTimes(t *testing.T) {
	ledger := newLedger(hourlyStore(t), generic.LeaveTypeRefs{})
	_, err := ledger.Create(context.Background(), entry("ot-1", date(2024, time.June, 3), "17", "24", generic.OvertimeSimple, generic.CompensationMoney))
	assert.ErrorIs(t, err, generic.ErrInvalidTimeRange)
}

func TestLedger_Statistics(t *testing.T) {
	ctx := context.Background()
	s := hourlyStore(t)
	seedApproved(t, s, entry("ot-1", date(2024, time.June, 3), "17", "19", generic.OvertimeSimple, generic.CompensationMoney))
	seedApproved(t, s, entry("ot-2", date(2024, time.June, 4), "22", "1", generic.OvertimeSimple, generic.CompensationMoney))
	require.NoError(t, s.SaveOvertimeEntry(ctx, entry("ot-3", date(2024, time.June, 5), "17", "19", generic.OvertimeSimple, generic.CompensationMoney)))

	stats, err := newLedger(s, generic.LeaveTypeRefs{}).Statistics(ctx, "emp-1")

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.True(t, stats.Hours.Value.Equal(dec("5")), "got %s", stats.Hours.Value)
}
