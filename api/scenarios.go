/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos of the HR frontend. Each scenario creates one employee
	with the contracts, children and leaves that exercise one engine.

AVAILABLE SCENARIOS:

	vacation-year:   Annual allocation and a summer vacation
	long-sick-spell: Chained sick leaves past the employer liability period
	new-parent:      Two children, pregnancy, parental and VAB leave
	overtime-month:  Approved overtime with time and money compensation

HOW SCENARIOS WORK:
 1. Upsert the scenario employee and reference records (fixed IDs)
 2. Upsert leaves dated relative to today
 3. Run the engine operations a user would (allocation, overtime approval)

Loading a scenario twice leaves the same records in place: every write is
an upsert on a fixed ID or an idempotent allocation.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "new-parent"}

SEE ALSO:
  - handlers.go: Record endpoints used by the frontend afterwards
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/vacation"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	EmployeeID  string `json:"employee_id"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "vacation-year",
		Name:        "Vacation Year",
		Description: "25 days allocated on April 1, two weeks taken in July",
		Category:    "vacation",
		EmployeeID:  "demo-vacation",
	},
	{
		ID:          "long-sick-spell",
		Name:        "Long Sick Spell",
		Description: "Three chained sick leaves crossing day 14 of the spell",
		Category:    "sick_leave",
		EmployeeID:  "demo-sick",
	},
	{
		ID:          "new-parent",
		Name:        "New Parent",
		Description: "Two children with pregnancy, parental and VAB leave",
		Category:    "parental",
		EmployeeID:  "demo-parent",
	},
	{
		ID:          "overtime-month",
		Name:        "Overtime Month",
		Description: "Approved overtime paid in money and in compensatory time",
		Category:    "overtime",
		EmployeeID:  "demo-overtime",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var loader func(context.Context) error
	switch req.ScenarioID {
	case "vacation-year":
		loader = h.loadVacationYearScenario
	case "long-sick-spell":
		loader = h.loadLongSickSpellScenario
	case "new-parent":
		loader = h.loadNewParentScenario
	case "overtime-month":
		loader = h.loadOvertimeMonthScenario
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := loader(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}
	for _, s := range scenarios {
		if s.ID == req.ScenarioID {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) demoEmployee(ctx context.Context, id generic.EntityID, name string) error {
	if err := h.Store.SaveMunicipalityRate(ctx, generic.MunicipalityRate{
		ID: "demo-0180", Code: "0180", Name: "Stockholm", Region: "Stockholm",
		TotalRate: decimal.RequireFromString("30.55"), ChurchRate: decimal.RequireFromString("1.01"),
	}); err != nil {
		return err
	}
	if err := h.Store.SaveEmployee(ctx, generic.Employee{
		ID: id, Name: name, Active: true,
		VacationDays:   generic.Days(25),
		VacationBase:   decimal.NewFromInt(420000),
		MunicipalityID: "demo-0180",
	}); err != nil {
		return err
	}
	return h.Store.SaveContract(ctx, generic.Contract{
		ID: generic.RecordID(id) + "-contract", EmployeeID: id, WageType: generic.WageMonthly,
		Wage: decimal.NewFromInt(35000), Start: h.today().AddYears(-3),
	})
}

// leaveType returns the configured ID, or fallback when the type is not
// configured so the records still load.
func leaveType(ref *generic.LeaveTypeID, fallback string) generic.LeaveTypeID {
	if ref != nil {
		return *ref
	}
	return generic.LeaveTypeID(fallback)
}

func (h *Handler) loadVacationYearScenario(ctx context.Context) error {
	const emp = generic.EntityID("demo-vacation")
	if err := h.demoEmployee(ctx, emp, "Astrid Lind"); err != nil {
		return err
	}
	if _, err := h.Allocator.AllocateAnnualVacation(ctx, h.today()); err != nil && !generic.IsNotConfigured(err) {
		return err
	}

	// The batch leaves allocations pending; confirm this one as HR would.
	vac := leaveType(h.refs.Vacation, "vacation")
	year := vacation.YearOf(h.today())
	err := h.Store.CreateTimeOffAllocation(ctx, generic.Allocation{
		ID: generic.RecordID("demo-vacation-" + year.String()), EmployeeID: emp, LeaveTypeID: vac,
		Name: "Swedish vacation " + year.String(), Days: generic.Days(25),
		EffectiveDate: year.Period().Start, State: generic.AllocationValidated, VacationYear: year.String(),
		IdempotencyKey: "demo-vacation-confirmed-" + year.String(), CreatedAt: h.today(),
	})
	if err != nil && !errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
		return err
	}

	july := generic.NewTimePoint(year.StartYear, time.July, 7)
	return h.Store.SaveLeave(ctx, generic.Leave{
		ID: "demo-vacation-july", EmployeeID: emp, LeaveTypeID: vac,
		State: generic.LeaveValidated, DateFrom: july, DateTo: july.AddDays(13), Days: generic.Days(10),
	})
}

func (h *Handler) loadLongSickSpellScenario(ctx context.Context) error {
	const emp = generic.EntityID("demo-sick")
	if err := h.demoEmployee(ctx, emp, "Erik Berg"); err != nil {
		return err
	}

	sick := leaveType(h.refs.Sick, "sick")
	start := h.today().AddDays(-30)
	spans := []struct {
		id          generic.RecordID
		from, days  int
		certificate bool
	}{
		{"demo-sick-1", 0, 5, false},
		{"demo-sick-2", 7, 6, false},
		{"demo-sick-3", 16, 8, true},
	}
	for _, s := range spans {
		from := start.AddDays(s.from)
		if err := h.Store.SaveLeave(ctx, generic.Leave{
			ID: s.id, EmployeeID: emp, LeaveTypeID: sick, State: generic.LeaveValidated,
			DateFrom: from, DateTo: from.AddDays(s.days - 1), Days: generic.NewAmountFromInt(s.days, generic.UnitDays),
			Sick: &generic.SickDetails{IllnessType: generic.IllnessNormal, CertificateProvided: s.certificate},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadNewParentScenario(ctx context.Context) error {
	const emp = generic.EntityID("demo-parent")
	if err := h.demoEmployee(ctx, emp, "Sara Nilsson"); err != nil {
		return err
	}

	today := h.today()
	older := today.AddYears(-4)
	younger := today.AddMonths(-8)
	for _, c := range []generic.Child{
		{ID: "demo-parent-child-1", EmployeeID: emp, Name: "Elsa", BirthDate: older},
		{ID: "demo-parent-child-2", EmployeeID: emp, Name: "Olle", BirthDate: younger},
	} {
		if err := h.Store.SaveChild(ctx, c); err != nil {
			return err
		}
	}

	par := leaveType(h.refs.Parental, "parental")
	leaves := []struct {
		id    generic.RecordID
		kind  generic.ParentalKind
		child string
		birth generic.TimePoint
		from  generic.TimePoint
		days  int
	}{
		{"demo-parent-pregnancy", generic.ParentalPregnancy, "Olle", younger, younger.AddDays(-30), 20},
		{"demo-parent-parental", generic.ParentalParental, "Olle", younger, younger.AddDays(14), 60},
		{"demo-parent-vab", generic.ParentalTemporary, "Elsa", older, today.AddDays(-10), 2},
	}
	for _, l := range leaves {
		if err := h.Store.SaveLeave(ctx, generic.Leave{
			ID: l.id, EmployeeID: emp, LeaveTypeID: par, State: generic.LeaveValidated,
			DateFrom: l.from, DateTo: l.from.AddDays(l.days - 1), Days: generic.NewAmountFromInt(l.days, generic.UnitDays),
			Parental: &generic.ParentalDetails{
				Kind: l.kind, ChildName: l.child, ChildBirthDate: l.birth,
				BenefitPercent: decimal.NewFromInt(100),
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadOvertimeMonthScenario(ctx context.Context) error {
	const emp = generic.EntityID("demo-overtime")
	if err := h.demoEmployee(ctx, emp, "Johan Ek"); err != nil {
		return err
	}

	today := h.today()
	entries := []generic.OvertimeEntry{
		{ID: "demo-overtime-1", Date: today.AddDays(-9), StartHour: decimal.NewFromInt(17), EndHour: decimal.NewFromInt(20),
			Type: generic.OvertimeSimple, Mode: generic.CompensationMoney},
		{ID: "demo-overtime-2", Date: today.AddDays(-5), StartHour: decimal.NewFromInt(18), EndHour: decimal.NewFromInt(22),
			Type: generic.OvertimeQualified, Mode: generic.CompensationTime},
	}
	for _, e := range entries {
		e.EmployeeID = emp
		if _, err := h.Store.GetOvertimeEntry(ctx, e.ID); err == nil {
			continue // already loaded
		}
		if _, err := h.Overtime.Create(ctx, e); err != nil {
			return err
		}
		if _, err := h.Overtime.Submit(ctx, e.ID, "demo-manager", today); err != nil {
			return err
		}
		if _, err := h.Overtime.Approve(ctx, e.ID, "demo-manager", today); err != nil {
			return err
		}
	}
	return nil
}
