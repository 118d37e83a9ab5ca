/*
handlers.go - HTTP API handlers for the entitlement engine

PURPOSE:
  Exposes the rule engines via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engines. Engines stay pure; the
  handler supplies "today" when a request does not name a reference date.

ENDPOINTS:
  Identity:
    POST   /api/identity/validate                   Validate a personnummer

  Vacation:
    GET    /api/vacation/year                       Vacation year of a date
    GET    /api/employees/{id}/vacation/balance     Remaining balance
    GET    /api/employees/{id}/vacation/earned      Earned days and vacation pay
    POST   /api/vacation/allocations/annual         Run the annual allocation
    POST   /api/allocations                         Record a confirmed allocation

  Leaves:
    POST   /api/leaves/validate                     Run every applicable rule
    POST   /api/leaves                              Validate and store
    POST   /api/sick-leaves/classify                Spell classification
    POST   /api/sick-leaves/report                  Försäkringskassan report data
    GET    /api/employees/{id}/sick-leave/statistics
    GET    /api/employees/{id}/parental/statistics
    GET    /api/parental/report                     Parental report rows

  Overtime:
    POST   /api/overtime                            Create a draft entry
    GET    /api/overtime/{id}                       Entry with derived values
    POST   /api/overtime/{id}/submit|approve|reject|pay
    GET    /api/employees/{id}/overtime/statistics

  Payroll:
    POST   /api/payroll/tax                         Municipal tax and net pay

  Records (seeding surface for collaborator-owned data):
    PUT    /api/employees/{id}, GET /api/employees/{id}
    POST   /api/contracts, /api/children, /api/municipalities, /api/holidays
    GET    /api/holidays, /api/audit

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body or parameters
  - 404: Record not found
  - 409: Duplicate idempotency key
  - 422: Rule violation or missing reference configuration
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/warp/entitlement-engine/config"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/identity"
	"github.com/warp/entitlement-engine/overtime"
	"github.com/warp/entitlement-engine/parental"
	"github.com/warp/entitlement-engine/payroll"
	"github.com/warp/entitlement-engine/sickleave"
	"github.com/warp/entitlement-engine/vacation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the handlers read and write.
type Store interface {
	generic.TxStore
	generic.RecordStore
	generic.HolidayCalendar
	SaveHoliday(ctx context.Context, h generic.Holiday) error
}

// Options configures the engines behind the handler.
type Options struct {
	Refs   generic.LeaveTypeRefs
	Policy config.PolicyFile
	Logger *slog.Logger

	// Today supplies the reference date when a request names none.
	Today func() generic.TimePoint
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Holidays  generic.HolidayCalendar
	Identity  identity.Validator
	Vacation  *vacation.Engine
	Allocator *vacation.Allocator
	Sick      *sickleave.Tracker
	Parental  *parental.Tracker
	Overtime  *overtime.Ledger
	Payroll   *payroll.Calculator
	Logger    *slog.Logger

	refs   generic.LeaveTypeRefs
	policy config.PolicyFile
	today  func() generic.TimePoint
}

// NewHandler wires every engine to the store.
func NewHandler(store Store, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	today := opts.Today
	if today == nil {
		today = generic.Today
	}
	holidays := generic.Calendars{overtime.PublicHolidays{}, store}

	return &Handler{
		Store:     store,
		Holidays:  holidays,
		Identity:  opts.Policy.IdentityValidator(),
		Vacation:  vacation.NewEngine(store, opts.Refs, opts.Policy.VacationPolicy()).WithEmployees(store),
		Allocator: vacation.NewAllocator(store, opts.Refs, opts.Policy.VacationPolicy(), logger),
		Sick:      sickleave.NewTracker(store, opts.Refs, opts.Policy.SickLeavePolicy()),
		Parental:  parental.NewTracker(store, store, opts.Refs, opts.Policy.ParentalPolicy()).WithEmployees(store),
		Overtime:  overtime.NewLedger(store, holidays, opts.Refs, opts.Policy.OvertimePolicy(), logger),
		Payroll:   payroll.NewCalculator(store, store),
		Logger:    logger,
		refs:      opts.Refs,
		policy:    opts.Policy,
		today:     today,
	}
}

// leaveRules are the engines whose checks gate a leave.
type leaveRules struct {
	vacation *vacation.Engine
	sick     *sickleave.Tracker
	parental *parental.Tracker
}

// leaveRulesOn builds the leave checks over s, typically the store view of
// an open transaction.
func (h *Handler) leaveRulesOn(s generic.Store) leaveRules {
	return leaveRules{
		vacation: vacation.NewEngine(s, h.refs, h.policy.VacationPolicy()).WithEmployees(s),
		sick:     sickleave.NewTracker(s, h.refs, h.policy.SickLeavePolicy()),
		parental: parental.NewTracker(s, s, h.refs, h.policy.ParentalPolicy()).WithEmployees(s),
	}
}

// =============================================================================
// IDENTITY
// =============================================================================

// ValidateIdentity validates a Swedish personal identity number.
// POST /api/identity/validate
func (h *Handler) ValidateIdentity(w http.ResponseWriter, r *http.Request) {
	var req ValidateIdentityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ref, err := h.dateOrToday("reference_date", req.ReferenceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reference_date", err)
		return
	}

	validator := h.Identity
	if req.Child {
		validator = identity.ChildValidator()
	}

	n, err := validator.Validate(req.Number, ref)
	if err != nil {
		v, ok := violationOf(err)
		if !ok {
			h.writeDomainError(w, "Failed to validate identity number", err)
			return
		}
		RuleViolations.WithLabelValues(v.Code).Inc()
		writeJSON(w, http.StatusOK, IdentityDTO{Valid: false, Violation: &v})
		return
	}

	writeJSON(w, http.StatusOK, IdentityDTO{
		Valid:      true,
		Normalized: n.String(),
		Short:      n.Short(),
		BirthDate:  formatDate(n.BirthDate),
		Age:        n.Age,
	})
}

// =============================================================================
// VACATION
// =============================================================================

// GetVacationYear returns the vacation year containing ?date (default today).
// GET /api/vacation/year
func (h *Handler) GetVacationYear(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateOrToday("date", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	writeJSON(w, http.StatusOK, toVacationYearDTO(date))
}

// GetVacationBalance returns the balance of the vacation year containing ?as_of.
// GET /api/employees/{id}/vacation/balance
func (h *Handler) GetVacationBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateOrToday("as_of", r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	b, err := h.Vacation.RemainingBalance(r.Context(), employeeParam(r), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute vacation balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toVacationBalanceDTO(b))
}

// GetEarnedVacation returns the days earned in [?from, ?to] and the vacation
// pay accrued on the employee's vacation base.
// GET /api/employees/{id}/vacation/earned
func (h *Handler) GetEarnedVacation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from", err)
		return
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to", err)
		return
	}

	emp, err := h.Store.FindEmployee(ctx, employeeParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	earned, err := h.Vacation.EarnedDays(ctx, emp.ID, from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to compute earned vacation", err)
		return
	}

	writeJSON(w, http.StatusOK, EarnedVacationDTO{
		EmployeeID:  string(emp.ID),
		From:        formatDate(from),
		To:          formatDate(to),
		EarnedDays:  earned.Value,
		VacationPay: h.Vacation.AccruedVacationPay(emp.VacationBase),
	})
}

// AllocateAnnualVacation runs the annual allocation batch. Safe to repeat.
// POST /api/vacation/allocations/annual
func (h *Handler) AllocateAnnualVacation(w http.ResponseWriter, r *http.Request) {
	var req AllocateAnnualRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	asOf, err := h.dateOrToday("as_of", req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	run, err := h.Allocator.AllocateAnnualVacation(r.Context(), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to allocate annual vacation", err)
		return
	}
	VacationAllocations.Add(float64(len(run.Created)))
	writeJSON(w, http.StatusOK, toAllocationRunDTO(run))
}

// CreateAllocation records an allocation confirmed by the HR system.
// POST /api/allocations
func (h *Handler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req AllocationDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	alloc, err := req.toAllocation(h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allocation", err)
		return
	}
	if err := vacation.ValidateAllocationYear(alloc); err != nil {
		h.writeDomainError(w, "Invalid allocation", err)
		return
	}

	if err := h.Store.CreateTimeOffAllocation(r.Context(), alloc); err != nil {
		h.writeDomainError(w, "Failed to create allocation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(alloc))
}

// =============================================================================
// LEAVES
// =============================================================================

// ValidateLeave runs every rule that applies to the leave and reports all
// violations and advisory warnings without storing anything.
// POST /api/leaves/validate
func (h *Handler) ValidateLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	leave, err := req.toLeave()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave", err)
		return
	}

	rules := leaveRules{vacation: h.Vacation, sick: h.Sick, parental: h.Parental}
	_, result, _, err := h.evaluateLeave(r.Context(), rules, leave)
	if err != nil {
		h.writeDomainError(w, "Failed to validate leave", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateLeave validates a leave and stores it when no rule blocks it.
// POST /api/leaves
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LeaveDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	leave, err := req.toLeave()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave", err)
		return
	}
	if leave.ID == "" {
		leave.ID = generic.RecordID(uuid.New().String())
	}

	// Balance read and save share one transaction.
	var result LeaveValidationDTO
	var violations []error
	err = h.Store.WithTx(ctx, func(s generic.Store) error {
		var err error
		leave, result, violations, err = h.evaluateLeave(ctx, h.leaveRulesOn(s), leave)
		if err != nil || len(violations) > 0 {
			return err
		}
		return s.SaveLeave(ctx, leave)
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save leave", err)
		return
	}
	if len(violations) > 0 {
		h.writeDomainError(w, "Leave violates a rule", violations[0])
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// evaluateLeave applies parental kind defaults, then runs the vacation
// balance, sick certificate and parental checks against the adjusted leave.
// Rule violations are collected; any other error aborts.
func (h *Handler) evaluateLeave(ctx context.Context, rules leaveRules, leave generic.Leave) (generic.Leave, LeaveValidationDTO, []error, error) {
	result := LeaveValidationDTO{Valid: true, Violations: []ViolationDTO{}, Warnings: []WarningDTO{}}

	if rules.parental.IsParentalLeave(leave) {
		var warnings []parental.Warning
		leave, warnings = rules.parental.ApplyKindDefaults(leave, h.today())
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, WarningDTO{Field: w.Field, Message: w.Message})
		}
	}

	checks := []func() error{
		func() error { return rules.vacation.CheckSufficientBalance(ctx, leave) },
		func() error { return rules.sick.ValidateApproval(ctx, leave) },
		func() error { return rules.parental.ValidateLeave(leave) },
	}

	var violations []error
	for _, check := range checks {
		err := check()
		if err == nil {
			continue
		}
		v, ok := violationOf(err)
		if !ok {
			return leave, LeaveValidationDTO{}, nil, err
		}
		violations = append(violations, err)
		result.Violations = append(result.Violations, v)
	}

	result.Valid = len(violations) == 0
	result.Leave = toLeaveDTO(leave)
	return leave, result, violations, nil
}

// ClassifySickLeave classifies a sick leave within its spell.
// POST /api/sick-leaves/classify
func (h *Handler) ClassifySickLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	leave, err := req.toLeave()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave", err)
		return
	}

	c, err := h.Sick.Classify(r.Context(), leave)
	if err != nil {
		h.writeDomainError(w, "Failed to classify sick leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toSickClassificationDTO(c))
}

// GetSickReport returns the Försäkringskassan report data of a sick leave.
// POST /api/sick-leaves/report
func (h *Handler) GetSickReport(w http.ResponseWriter, r *http.Request) {
	var req SickReportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	leave, err := req.Leave.toLeave()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave", err)
		return
	}

	report, err := h.Sick.AgencyReport(r.Context(), leave, sickleave.ReportKind(req.Kind))
	if err != nil {
		h.writeDomainError(w, "Failed to build sick leave report", err)
		return
	}
	writeJSON(w, http.StatusOK, toSickReportDTO(report))
}

// GetSickStatistics returns sick leave statistics for the year before ?as_of.
// GET /api/employees/{id}/sick-leave/statistics
func (h *Handler) GetSickStatistics(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateOrToday("as_of", r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	stats, err := h.Sick.Statistics(r.Context(), employeeParam(r), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute sick leave statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toSickStatisticsDTO(stats))
}

// GetParentalStatistics returns parental quota usage as of ?as_of.
// GET /api/employees/{id}/parental/statistics
func (h *Handler) GetParentalStatistics(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateOrToday("as_of", r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	stats, err := h.Parental.Statistics(r.Context(), employeeParam(r), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute parental statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toParentalStatisticsDTO(stats))
}

// GetParentalReport lists counted parental leaves, optionally for one
// ?employee_id and starting within [?from, ?to].
// GET /api/parental/report
func (h *Handler) GetParentalReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseOptionalDate("from", q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from", err)
		return
	}
	to, err := parseOptionalDate("to", q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to", err)
		return
	}

	rows, err := h.Parental.ReportRows(r.Context(), parental.ReportFilter{
		EmployeeID: generic.EntityID(q.Get("employee_id")),
		Starting:   generic.Between(from, to),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to build parental report", err)
		return
	}

	dtos := make([]ParentalReportRowDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toParentalReportRowDTO(row))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// OVERTIME
// =============================================================================

// CreateOvertime creates a draft overtime entry.
// POST /api/overtime
func (h *Handler) CreateOvertime(w http.ResponseWriter, r *http.Request) {
	var req OvertimeEntryDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	entry, err := req.toEntry()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overtime entry", err)
		return
	}

	created, err := h.Overtime.Create(r.Context(), entry)
	if err != nil {
		h.writeDomainError(w, "Failed to create overtime entry", err)
		return
	}
	OvertimeTransitions.WithLabelValues(string(created.State)).Inc()
	writeJSON(w, http.StatusCreated, toOvertimeEntryDTO(created))
}

// GetOvertime returns an entry with its derived values.
// GET /api/overtime/{id}
func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Overtime.Get(r.Context(), generic.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get overtime entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeEntryDTO(entry))
}

// TransitionOvertime returns the handler moving an entry to state.
// POST /api/overtime/{id}/{submit|approve|reject|pay}
func (h *Handler) TransitionOvertime(to generic.OvertimeState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := generic.RecordID(chi.URLParam(r, "id"))

		var req TransitionRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if strings.TrimSpace(req.Actor) == "" {
			writeError(w, http.StatusBadRequest, "actor is required", nil)
			return
		}
		at, err := h.dateOrToday("at", req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid at", err)
			return
		}

		var entry overtime.Entry
		switch to {
		case generic.OvertimeSubmitted:
			entry, err = h.Overtime.Submit(ctx, id, req.Actor, at)
		case generic.OvertimeApproved:
			entry, err = h.Overtime.Approve(ctx, id, req.Actor, at)
		case generic.OvertimeRejected:
			entry, err = h.Overtime.Reject(ctx, id, req.Actor, req.Reason, at)
		case generic.OvertimePaid:
			entry, err = h.Overtime.MarkPaid(ctx, id, req.Actor, at)
		}
		if err != nil {
			h.writeDomainError(w, "Failed to update overtime entry", err)
			return
		}
		OvertimeTransitions.WithLabelValues(string(to)).Inc()
		writeJSON(w, http.StatusOK, toOvertimeEntryDTO(entry))
	}
}

// GetOvertimeStatistics returns the approved and paid overtime of an employee.
// GET /api/employees/{id}/overtime/statistics
func (h *Handler) GetOvertimeStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Overtime.Statistics(r.Context(), employeeParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to compute overtime statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, OvertimeStatisticsDTO{
		EmployeeID: string(stats.EmployeeID),
		Count:      stats.Count,
		Hours:      stats.Hours.Value,
	})
}

// =============================================================================
// PAYROLL
// =============================================================================

// ComputeTax applies municipal tax to payslip lines.
// POST /api/payroll/tax
func (h *Handler) ComputeTax(w http.ResponseWriter, r *http.Request) {
	var req TaxRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	res, err := h.Payroll.Compute(r.Context(), generic.EntityID(req.EmployeeID), toPayrollLines(req.Lines))
	if err != nil {
		h.writeDomainError(w, "Failed to compute tax", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxResultDTO(res))
}

// =============================================================================
// RECORDS
// =============================================================================

// PutEmployee creates or replaces an employee.
// PUT /api/employees/{id}
func (h *Handler) PutEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	emp := req.toEmployee()

	if emp.PersonalNumber != "" {
		n, err := h.Identity.Validate(emp.PersonalNumber, h.today())
		if err != nil {
			h.writeDomainError(w, "Invalid personal_number", err)
			return
		}
		emp.PersonalNumber = n.String()
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeDomainError(w, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.FindEmployee(r.Context(), employeeParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateContract stores an employment contract.
// POST /api/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	contract, err := req.toContract()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract", err)
		return
	}
	if err := h.Store.SaveContract(r.Context(), contract); err != nil {
		h.writeDomainError(w, "Failed to save contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateChild stores a child after checking its identity number, if given.
// POST /api/children
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req ChildDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	child, err := req.toChild()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid child", err)
		return
	}
	if err := parental.ValidateChild(child, h.today()); err != nil {
		h.writeDomainError(w, "Invalid child", err)
		return
	}
	if err := h.Store.SaveChild(r.Context(), child); err != nil {
		h.writeDomainError(w, "Failed to save child", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateMunicipality stores a municipality tax rate.
// POST /api/municipalities
func (h *Handler) CreateMunicipality(w http.ResponseWriter, r *http.Request) {
	var req MunicipalityDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	if err := h.Store.SaveMunicipalityRate(r.Context(), req.toRate()); err != nil {
		h.writeDomainError(w, "Failed to save municipality", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListHolidays returns public and company holidays of ?year for ?company_id.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := h.today().Year()
	if s := q.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	holidays := h.Holidays.GetHolidays(q.Get("company_id"), year)
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a company holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	holiday := generic.Holiday{
		ID:        req.ID,
		CompanyID: req.CompanyID,
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		h.writeDomainError(w, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// ListAudit returns audit entries for ?employee_id and/or ?record_id.
// GET /api/audit
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter generic.AuditFilter
	if s := q.Get("employee_id"); s != "" {
		id := generic.EntityID(s)
		filter.EmployeeID = &id
	}
	if s := q.Get("record_id"); s != "" {
		id := generic.RecordID(s)
		filter.RecordID = &id
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to query audit log", err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeParam(r *http.Request) generic.EntityID {
	return generic.EntityID(chi.URLParam(r, "id"))
}

func (h *Handler) dateOrToday(field, s string) (generic.TimePoint, error) {
	if s == "" {
		return h.today(), nil
	}
	return parseDate(field, s)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := decode(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and storage errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		v, ok := violationOf(err)
		if !ok {
			h.Logger.Error(message, slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, message, err)
			return
		}
		RuleViolations.WithLabelValues(v.Code).Inc()
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: v.Message,
			Code:  v.Code,
			Field: v.Field,
		})
	}
}

var ruleCodes = []struct {
	rule error
	code string
}{
	{generic.ErrIdentityFormat, "identity_format"},
	{generic.ErrIdentityChecksum, "identity_checksum"},
	{generic.ErrIdentityDate, "identity_date"},
	{generic.ErrIdentityAgeRange, "identity_age_range"},
	{generic.ErrInsufficientVacationBalance, "insufficient_vacation_balance"},
	{generic.ErrVacationYearMismatch, "vacation_year_mismatch"},
	{generic.ErrMissingCertificate, "missing_certificate"},
	{generic.ErrReportNotDue, "report_not_due"},
	{generic.ErrInvalidTimeRange, "invalid_time_range"},
	{generic.ErrMonthlyLimitExceeded, "monthly_limit_exceeded"},
	{generic.ErrYearlyLimitExceeded, "yearly_limit_exceeded"},
	{generic.ErrPaternityLimitExceeded, "paternity_limit_exceeded"},
	{generic.ErrInvalidBenefitTier, "invalid_benefit_tier"},
	{generic.ErrInvalidTransition, "invalid_transition"},
	{generic.ErrRejectionReasonRequired, "rejection_reason_required"},
	{generic.ErrLookupNotConfigured, "lookup_not_configured"},
}

// violationOf describes err when it is a rule violation or a missing
// configuration; ok is false for anything else.
func violationOf(err error) (ViolationDTO, bool) {
	if !generic.IsRuleViolation(err) && !generic.IsNotConfigured(err) {
		return ViolationDTO{}, false
	}
	v := ViolationDTO{Code: "rule_violation", Message: err.Error()}
	for _, rc := range ruleCodes {
		if errors.Is(err, rc.rule) {
			v.Code = rc.code
			break
		}
	}
	var rv *generic.RuleViolation
	if errors.As(err, &rv) {
		v.Field = rv.Field
	}
	return v, true
}
