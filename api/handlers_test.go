package api_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/entitlement-engine/api"
	"github.com/warp/entitlement-engine/config"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/store/sqlite"
)

// =============================================================================
// TEST SERVER
// =============================================================================

var today = generic.NewTimePoint(2024, 5, 15)

type testServer struct {
	t       *testing.T
	router  http.Handler
	handler *api.Handler
	store   *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newTestServerOn(t, store, store)
}

// newTestServerOn serves handlers over backend, which may wrap store.
func newTestServerOn(t *testing.T, store *sqlite.Store, backend api.Store) *testServer {
	t.Helper()
	h := api.NewHandler(backend, api.Options{
		Refs: generic.LeaveTypeRefs{
			Vacation: generic.RefOf("lt-vacation"),
			Sick:     generic.RefOf("lt-sick"),
			Parental: generic.RefOf("lt-parental"),
			Overtime: generic.RefOf("lt-overtime"),
		},
		Policy: config.DefaultPolicyFile(),
		Logger: api.NewLogger(io.Discard, "test", "error"),
		Today:  func() generic.TimePoint { return today },
	})
	return &testServer{t: t, router: api.NewRouter(h), handler: h, store: store}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// seedEmployee stores an employee in a 30% municipality with a 33600 SEK
// monthly contract (200 SEK/hour at 168 hours).
func (s *testServer) seedEmployee(id string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/municipalities", api.MunicipalityDTO{
		ID: "m-0180", Code: "0180", Name: "Stockholm", TotalRate: dec("30"), ChurchRate: dec("1"),
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/api/employees/"+id, api.EmployeeDTO{
		Name: "Anna Svensson", MunicipalityID: "m-0180", VacationBase: dec("400000"),
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/contracts", api.ContractDTO{
		EmployeeID: id, WageType: "monthly", Wage: dec("33600"), Start: "2020-01-01",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestValidateIdentity(t *testing.T) {
	s := newTestServer(t)

	t.Run("valid number is normalized", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/identity/validate", api.ValidateIdentityRequest{Number: "811228-9874"})

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeAs[api.IdentityDTO](t, rec)
		assert.True(t, got.Valid)
		assert.Equal(t, "19811228-9874", got.Normalized)
		assert.Equal(t, "811228-9874", got.Short)
		assert.Equal(t, "1981-12-28", got.BirthDate)
		assert.Equal(t, 42, got.Age)
	})

	t.Run("bad checksum is reported, not failed", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/identity/validate", api.ValidateIdentityRequest{Number: "811228-9875"})

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeAs[api.IdentityDTO](t, rec)
		assert.False(t, got.Valid)
		require.NotNil(t, got.Violation)
		assert.Equal(t, "identity_checksum", got.Violation.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/identity/validate", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPutEmployee_RejectsInvalidPersonalNumber(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPut, "/api/employees/emp-1", api.EmployeeDTO{Name: "Anna", PersonalNumber: "811228-9875"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "identity_checksum", decodeAs[api.ErrorResponse](t, rec).Code)
}

// =============================================================================
// VACATION
// =============================================================================

func TestGetVacationYear(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query string
		year  string
	}{
		{"", "2024/2025"},
		{"?date=2025-03-31", "2024/2025"},
		{"?date=2025-04-01", "2025/2026"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/vacation/year"+tt.query, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.year, decodeAs[api.VacationYearDTO](t, rec).Year)
		})
	}

	t.Run("invalid date", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/vacation/year?date=15/05/2024", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAnnualAllocation_IsIdempotent(t *testing.T) {
	// GIVEN: one active employee
	s := newTestServer(t)
	s.seedEmployee("emp-1")

	// WHEN: the batch runs twice
	first := s.do(http.MethodPost, "/api/vacation/allocations/annual", nil)
	second := s.do(http.MethodPost, "/api/vacation/allocations/annual", api.AllocateAnnualRequest{AsOf: "2024-06-01"})

	// THEN: one pending allocation, skipped the second time
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	run := decodeAs[api.AllocationRunDTO](t, first)
	assert.Equal(t, "2024/2025", run.Year)
	require.Len(t, run.Created, 1)
	assert.Equal(t, "emp-1", run.Created[0].EmployeeID)
	assert.Equal(t, "2024-04-01", run.Created[0].EffectiveDate)
	assert.Equal(t, string(generic.AllocationConfirm), run.Created[0].State)
	assert.True(t, run.Created[0].Days.Equal(dec("25")))

	require.Equal(t, http.StatusOK, second.Code)
	rerun := decodeAs[api.AllocationRunDTO](t, second)
	assert.Empty(t, rerun.Created)
	assert.Equal(t, []string{"emp-1"}, rerun.Skipped)

	// Pending allocations do not count towards the balance.
	rec := s.do(http.MethodGet, "/api/employees/emp-1/vacation/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeAs[api.VacationBalanceDTO](t, rec).Allocated.IsZero())
}

func TestVacationLeave_BalanceFlow(t *testing.T) {
	// GIVEN: 25 confirmed days for 2024/2025
	s := newTestServer(t)
	s.seedEmployee("emp-1")
	rec := s.do(http.MethodPost, "/api/allocations", api.AllocationDTO{
		EmployeeID: "emp-1", LeaveTypeID: "lt-vacation", Name: "Vacation 2024/2025",
		Days: dec("25"), EffectiveDate: "2024-04-01", VacationYear: "2024/2025",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	leave := func(days string) api.LeaveDTO {
		return api.LeaveDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-vacation", State: string(generic.LeaveValidated),
			DateFrom: "2024-07-01", DateTo: "2024-07-19", Days: dec(days),
		}
	}

	t.Run("too many days is a violation", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/leaves/validate", leave("30"))

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeAs[api.LeaveValidationDTO](t, rec)
		assert.False(t, got.Valid)
		require.Len(t, got.Violations, 1)
		assert.Equal(t, "insufficient_vacation_balance", got.Violations[0].Code)

		rec = s.do(http.MethodPost, "/api/leaves", leave("30"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("stored leave is consumed", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/leaves", leave("15"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotEmpty(t, decodeAs[api.LeaveValidationDTO](t, rec).Leave.ID)

		rec = s.do(http.MethodGet, "/api/employees/emp-1/vacation/balance?as_of=2024-08-01", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		b := decodeAs[api.VacationBalanceDTO](t, rec)
		assert.Equal(t, "2024/2025", b.Year)
		assert.True(t, b.Configured)
		assert.True(t, b.Allocated.Equal(dec("25")), "allocated %s", b.Allocated)
		assert.True(t, b.Consumed.Equal(dec("15")), "consumed %s", b.Consumed)
		assert.True(t, b.Remaining.Equal(dec("10")), "remaining %s", b.Remaining)
	})

	t.Run("mismatched year tag", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/allocations", api.AllocationDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-vacation", Days: dec("5"),
			EffectiveDate: "2024-03-01", VacationYear: "2024/2025",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "vacation_year_mismatch", decodeAs[api.ErrorResponse](t, rec).Code)
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		body := api.AllocationDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-vacation", Days: dec("1"),
			EffectiveDate: "2024-05-01", IdempotencyKey: "bonus-day-2024",
		}
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/allocations", body).Code)
		assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/allocations", body).Code)
	})
}

// slowLeaves widens the gap between reading leaves and writing one.
type slowLeaves struct {
	*sqlite.Store
}

func (s slowLeaves) FindLeaves(ctx context.Context, f generic.LeaveFilter) ([]generic.Leave, error) {
	leaves, err := s.Store.FindLeaves(ctx, f)
	time.Sleep(20 * time.Millisecond)
	return leaves, err
}

func TestCreateLeave_ConcurrentRequestsShareOneBalance(t *testing.T) {
	// GIVEN: 25 confirmed vacation days
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	s := newTestServerOn(t, store, slowLeaves{store})
	s.seedEmployee("emp-1")
	rec := s.do(http.MethodPost, "/api/allocations", api.AllocationDTO{
		EmployeeID: "emp-1", LeaveTypeID: "lt-vacation", Days: dec("25"),
		EffectiveDate: "2024-04-01", VacationYear: "2024/2025",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	raw, err := json.Marshal(api.LeaveDTO{
		EmployeeID: "emp-1", LeaveTypeID: "lt-vacation", State: string(generic.LeaveValidated),
		DateFrom: "2024-07-01", DateTo: "2024-07-26", Days: dec("20"),
	})
	require.NoError(t, err)

	// WHEN: four 20-day leaves are requested at once
	const requests = 4
	codes := make([]int, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/leaves", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	// THEN: exactly one fits the balance
	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusUnprocessableEntity, code)
		}
	}
	assert.Equal(t, 1, created)

	rec = s.do(http.MethodGet, "/api/employees/emp-1/vacation/balance?as_of=2024-08-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeAs[api.VacationBalanceDTO](t, rec)
	assert.True(t, b.Consumed.Equal(dec("20")), "consumed %s", b.Consumed)
	assert.True(t, b.Remaining.Equal(dec("5")), "remaining %s", b.Remaining)
}

func TestGetEarnedVacation(t *testing.T) {
	s := newTestServer(t)
	s.seedEmployee("emp-1")

	t.Run("earned days and pay", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/employees/emp-1/vacation/earned?from=2024-04-01&to=2025-03-31", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeAs[api.EarnedVacationDTO](t, rec)
		assert.True(t, got.EarnedDays.IsPositive())
		assert.True(t, got.VacationPay.Equal(dec("48000")), "pay %s", got.VacationPay)
	})

	t.Run("missing range", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/employees/emp-1/vacation/earned", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown employee", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/employees/nobody/vacation/earned?from=2024-04-01&to=2025-03-31", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// =============================================================================
// LEAVES
// =============================================================================

func TestValidateLeave_SickAndParentalRules(t *testing.T) {
	s := newTestServer(t)
	s.seedEmployee("emp-1")

	t.Run("long sick leave needs a certificate", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/leaves/validate", api.LeaveDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-sick", State: string(generic.LeaveValidated),
			DateFrom: "2024-05-01", DateTo: "2024-05-10", Days: dec("10"),
			Sick: &api.SickDetailsDTO{},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeAs[api.LeaveValidationDTO](t, rec)
		require.Len(t, got.Violations, 1)
		assert.Equal(t, "missing_certificate", got.Violations[0].Code)
		assert.Equal(t, "certificate_provided", got.Violations[0].Field)
	})

	t.Run("draft sick leave is stored before the certificate arrives", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/leaves", api.LeaveDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-sick", State: string(generic.LeaveDraft),
			DateFrom: "2024-04-01", DateTo: "2024-04-10", Days: dec("10"),
			Sick: &api.SickDetailsDTO{},
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.True(t, decodeAs[api.LeaveValidationDTO](t, rec).Valid)
	})

	t.Run("paternity leave gets its window and limit", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/leaves/validate", api.LeaveDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-parental",
			DateFrom: "2024-05-20", Days: dec("12"),
			Parental: &api.ParentalDetailsDTO{Kind: string(generic.ParentalPaternity), ChildName: "Liv"},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeAs[api.LeaveValidationDTO](t, rec)
		assert.False(t, got.Valid)
		require.Len(t, got.Violations, 1)
		assert.Equal(t, "paternity_limit_exceeded", got.Violations[0].Code)
		assert.NotEmpty(t, got.Warnings)
		assert.Equal(t, "2024-05-29", got.Leave.DateTo)
	})

	t.Run("date_to before date_from", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/leaves/validate", api.LeaveDTO{
			EmployeeID: "emp-1", LeaveTypeID: "lt-sick", DateFrom: "2024-05-10", DateTo: "2024-05-01",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// OVERTIME
// =============================================================================

func createOvertime(t *testing.T, s *testServer, mode string) api.OvertimeEntryDTO {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/overtime", api.OvertimeEntryDTO{
		EmployeeID: "emp-1", Date: "2024-05-13", StartHour: dec("17"), EndHour: dec("19"),
		Type: string(generic.OvertimeSimple), Mode: mode,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[api.OvertimeEntryDTO](t, rec)
}

func TestOvertime_Lifecycle(t *testing.T) {
	// GIVEN: 2h simple overtime on a Monday, compensated in time
	s := newTestServer(t)
	s.seedEmployee("emp-1")
	created := createOvertime(t, s, string(generic.CompensationTime))

	assert.Equal(t, string(generic.OvertimeDraft), created.State)
	assert.True(t, created.Hours.Equal(dec("2")))
	assert.True(t, created.Multiplier.Equal(dec("1.5")))
	assert.True(t, created.HourlyWage.Equal(dec("200")), "wage %s", created.HourlyWage)
	assert.True(t, created.TimeHours.Equal(dec("3")))

	// WHEN: submitted and approved
	rec := s.do(http.MethodPost, "/api/overtime/"+created.ID+"/submit", api.TransitionRequest{Actor: "emp-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/overtime/"+created.ID+"/approve", api.TransitionRequest{Actor: "mgr-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the grant is linked and audited
	approved := decodeAs[api.OvertimeEntryDTO](t, rec)
	assert.Equal(t, string(generic.OvertimeApproved), approved.State)
	assert.Equal(t, "mgr-1", approved.ApprovedBy)
	assert.Equal(t, "2024-05-15", approved.ApprovedAt)
	require.NotEmpty(t, approved.AllocationID)

	grants, err := s.store.FindAllocations(context.Background(), generic.AllocationFilter{
		EmployeeID:  "emp-1",
		LeaveTypeID: "lt-overtime",
	})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Days.Value.Equal(dec("0.375")))

	rec = s.do(http.MethodGet, "/api/audit?record_id="+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	audit := decodeAs[[]api.AuditEntryDTO](t, rec)
	require.Len(t, audit, 2)
	assert.Equal(t, string(generic.AuditOvertimeApproved), audit[1].Action)

	rec = s.do(http.MethodGet, "/api/employees/emp-1/overtime/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeAs[api.OvertimeStatisticsDTO](t, rec)
	assert.Equal(t, 1, stats.Count)
	assert.True(t, stats.Hours.Equal(dec("2")))
}

func TestOvertime_TransitionErrors(t *testing.T) {
	s := newTestServer(t)
	s.seedEmployee("emp-1")
	created := createOvertime(t, s, string(generic.CompensationMoney))

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"approve a draft", "/api/overtime/" + created.ID + "/approve", api.TransitionRequest{Actor: "mgr-1"},
			http.StatusUnprocessableEntity, "invalid_transition"},
		{"reject without reason", "/api/overtime/" + created.ID + "/reject", api.TransitionRequest{Actor: "mgr-1"},
			http.StatusUnprocessableEntity, "rejection_reason_required"},
		{"missing actor", "/api/overtime/" + created.ID + "/submit", api.TransitionRequest{},
			http.StatusBadRequest, ""},
		{"unknown entry", "/api/overtime/missing/submit", api.TransitionRequest{Actor: "emp-1"},
			http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeAs[api.ErrorResponse](t, rec).Code)
			}
		})
	}

	t.Run("get unknown entry", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/overtime/missing", nil).Code)
	})

	t.Run("time outside the day", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/overtime", api.OvertimeEntryDTO{
			EmployeeID: "emp-1", Date: "2024-05-13", StartHour: dec("22"), EndHour: dec("25"),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_time_range", decodeAs[api.ErrorResponse](t, rec).Code)
	})
}

func TestOvertime_CompanyHolidayDoublesRate(t *testing.T) {
	// GIVEN: a company holiday on a Tuesday
	s := newTestServer(t)
	s.seedEmployee("emp-1")
	rec := s.do(http.MethodPost, "/api/holidays", api.HolidayDTO{CompanyID: "acme", Date: "2024-05-14", Name: "Company day"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN
	rec = s.do(http.MethodPost, "/api/overtime", api.OvertimeEntryDTO{
		EmployeeID: "emp-1", CompanyID: "acme", Date: "2024-05-14", StartHour: dec("18"), EndHour: dec("20"),
	})

	// THEN
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decodeAs[api.OvertimeEntryDTO](t, rec)
	assert.True(t, got.Holiday)
	assert.True(t, got.Multiplier.Equal(dec("2")))

	rec = s.do(http.MethodGet, "/api/holidays?company_id=acme&year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	holidays := decodeAs[[]api.HolidayDTO](t, rec)
	names := make([]string, 0, len(holidays))
	for _, h := range holidays {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "Company day")
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestComputeTax(t *testing.T) {
	s := newTestServer(t)
	s.seedEmployee("emp-1")

	t.Run("municipal tax", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/payroll/tax", api.TaxRequest{
			EmployeeID: "emp-1",
			Lines:      []api.PayslipLineDTO{{Code: "BASIC", Category: "GROSS", Amount: dec("30000")}},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeAs[api.TaxResultDTO](t, rec)
		assert.True(t, got.Gross.Equal(dec("30000")))
		assert.True(t, got.Tax.Equal(dec("9000")), "tax %s", got.Tax)
		assert.True(t, got.Net.Equal(dec("21000")), "net %s", got.Net)
	})

	t.Run("employee_id is required", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/payroll/tax", api.TaxRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no municipality configured", func(t *testing.T) {
		rec := s.do(http.MethodPut, "/api/employees/emp-2", api.EmployeeDTO{Name: "Bo"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, "/api/payroll/tax", api.TaxRequest{EmployeeID: "emp-2"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "lookup_not_configured", decodeAs[api.ErrorResponse](t, rec).Code)
	})
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("ping", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ping", nil).Code)
	})

	t.Run("metrics", func(t *testing.T) {
		s.do(http.MethodGet, "/api/vacation/year", nil)

		rec := s.do(http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "entitlement_http_requests_total")
	})
}

func TestScenarios(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]api.ScenarioDTO](t, rec), 4)

	for _, id := range []string{"vacation-year", "long-sick-spell", "new-parent", "overtime-month"} {
		t.Run(id, func(t *testing.T) {
			// Loading twice leaves the same records in place.
			for range 2 {
				rec := s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: id})
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("vacation balance after load", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/employees/demo-vacation/vacation/balance", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		b := decodeAs[api.VacationBalanceDTO](t, rec)
		assert.True(t, b.Allocated.Equal(dec("25")), "allocated %s", b.Allocated)
		assert.True(t, b.Consumed.Equal(dec("10")), "consumed %s", b.Consumed)
	})

	t.Run("overtime approved once", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/employees/demo-overtime/overtime/statistics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decodeAs[api.OvertimeStatisticsDTO](t, rec).Count)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAllocationScheduler_RunOnce(t *testing.T) {
	s := newTestServer(t)
	s.seedEmployee("emp-1")
	scheduler := api.NewAllocationScheduler(s.handler)

	scheduler.RunOnce(context.Background())
	scheduler.RunOnce(context.Background())

	allocations, err := s.store.FindAllocations(context.Background(), generic.AllocationFilter{
		EmployeeID:  "emp-1",
		LeaveTypeID: "lt-vacation",
	})
	require.NoError(t, err)
	assert.Len(t, allocations, 1)
}
