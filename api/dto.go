/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients, also reused as request bodies
    when the shape is the same (LeaveDTO, OvertimeEntryDTO)
  - *Request: Request body types from clients

FORMATS:
  Dates are "YYYY-MM-DD". Day counts, hours, money and percentages are
  decimals (shopspring/decimal marshals them as JSON strings and accepts
  strings or numbers on input).

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/overtime"
	"github.com/warp/entitlement-engine/parental"
	"github.com/warp/entitlement-engine/payroll"
	"github.com/warp/entitlement-engine/sickleave"
	"github.com/warp/entitlement-engine/vacation"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DATES
// =============================================================================

func formatDate(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format(generic.DateLayout)
}

// parseDate parses a required date field.
func parseDate(field, s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, fmt.Errorf("%s is required", field)
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, fmt.Errorf("%s: %w", field, err)
	}
	return tp, nil
}

// parseOptionalDate parses a date field that may be empty.
func parseOptionalDate(field, s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, nil
	}
	return parseDate(field, s)
}

// =============================================================================
// REFERENCE RECORDS
// =============================================================================

type EmployeeDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	PersonalNumber string          `json:"personal_number,omitempty"`
	CompanyID      string          `json:"company_id,omitempty"`
	Active         *bool           `json:"active,omitempty"`
	VacationDays   decimal.Decimal `json:"vacation_days"`
	VacationBase   decimal.Decimal `json:"vacation_base"`
	MunicipalityID string          `json:"municipality_id,omitempty"`
	ChurchMember   bool            `json:"church_member"`
}

func (d EmployeeDTO) toEmployee() generic.Employee {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return generic.Employee{
		ID:             generic.EntityID(d.ID),
		Name:           d.Name,
		PersonalNumber: d.PersonalNumber,
		CompanyID:      d.CompanyID,
		Active:         active,
		VacationDays:   generic.NewAmountFromDecimal(d.VacationDays, generic.UnitDays),
		VacationBase:   d.VacationBase,
		MunicipalityID: generic.RecordID(d.MunicipalityID),
		ChurchMember:   d.ChurchMember,
	}
}

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	active := e.Active
	return EmployeeDTO{
		ID:             string(e.ID),
		Name:           e.Name,
		PersonalNumber: e.PersonalNumber,
		CompanyID:      e.CompanyID,
		Active:         &active,
		VacationDays:   e.VacationDays.Value,
		VacationBase:   e.VacationBase,
		MunicipalityID: string(e.MunicipalityID),
		ChurchMember:   e.ChurchMember,
	}
}

type ContractDTO struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	WageType   string          `json:"wage_type"`
	Wage       decimal.Decimal `json:"wage"`
	HourlyWage decimal.Decimal `json:"hourly_wage"`
	Start      string          `json:"start"`
	End        string          `json:"end,omitempty"`
}

func (d ContractDTO) toContract() (generic.Contract, error) {
	start, err := parseDate("start", d.Start)
	if err != nil {
		return generic.Contract{}, err
	}
	end, err := parseOptionalDate("end", d.End)
	if err != nil {
		return generic.Contract{}, err
	}
	wageType := generic.WageType(d.WageType)
	if wageType == "" {
		wageType = generic.WageMonthly
	}
	return generic.Contract{
		ID:         generic.RecordID(d.ID),
		EmployeeID: generic.EntityID(d.EmployeeID),
		WageType:   wageType,
		Wage:       d.Wage,
		HourlyWage: d.HourlyWage,
		Start:      start,
		End:        end,
	}, nil
}

type ChildDTO struct {
	ID             string `json:"id"`
	EmployeeID     string `json:"employee_id"`
	Name           string `json:"name"`
	BirthDate      string `json:"birth_date"`
	PersonalNumber string `json:"personal_number,omitempty"`
}

func (d ChildDTO) toChild() (generic.Child, error) {
	birth, err := parseOptionalDate("birth_date", d.BirthDate)
	if err != nil {
		return generic.Child{}, err
	}
	return generic.Child{
		ID:             generic.RecordID(d.ID),
		EmployeeID:     generic.EntityID(d.EmployeeID),
		Name:           d.Name,
		BirthDate:      birth,
		PersonalNumber: d.PersonalNumber,
	}, nil
}

type MunicipalityDTO struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Region     string          `json:"region,omitempty"`
	TotalRate  decimal.Decimal `json:"total_rate"`
	ChurchRate decimal.Decimal `json:"church_rate"`
}

func (d MunicipalityDTO) toRate() generic.MunicipalityRate {
	return generic.MunicipalityRate{
		ID:         generic.RecordID(d.ID),
		Code:       d.Code,
		Name:       d.Name,
		Region:     d.Region,
		TotalRate:  d.TotalRate,
		ChurchRate: d.ChurchRate,
	}
}

type HolidayDTO struct {
	ID        string `json:"id,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		CompanyID: h.CompanyID,
		Date:      formatDate(h.Date),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}

// =============================================================================
// LEAVES
// =============================================================================

type SickDetailsDTO struct {
	IllnessType         string `json:"illness_type"`
	CertificateProvided bool   `json:"certificate_provided"`
}

type ParentalDetailsDTO struct {
	Kind                string          `json:"kind"`
	ChildName           string          `json:"child_name,omitempty"`
	ChildBirthDate      string          `json:"child_birth_date,omitempty"`
	ChildPersonalNumber string          `json:"child_personal_number,omitempty"`
	CaseNumber          string          `json:"case_number,omitempty"`
	BenefitPercent      decimal.Decimal `json:"benefit_percent"`
	SalarySupplement    bool            `json:"salary_supplement"`
	SupplementPercent   decimal.Decimal `json:"supplement_percent"`
}

type LeaveDTO struct {
	ID          string              `json:"id"`
	EmployeeID  string              `json:"employee_id"`
	LeaveTypeID string              `json:"leave_type_id"`
	State       string              `json:"state"`
	DateFrom    string              `json:"date_from"`
	DateTo      string              `json:"date_to"`
	Days        decimal.Decimal     `json:"days"`
	Sick        *SickDetailsDTO     `json:"sick,omitempty"`
	Parental    *ParentalDetailsDTO `json:"parental,omitempty"`
}

func (d LeaveDTO) toLeave() (generic.Leave, error) {
	from, err := parseDate("date_from", d.DateFrom)
	if err != nil {
		return generic.Leave{}, err
	}
	to, err := parseOptionalDate("date_to", d.DateTo)
	if err != nil {
		return generic.Leave{}, err
	}
	if to.IsZero() {
		to = from
	}
	if to.Before(from) {
		return generic.Leave{}, fmt.Errorf("date_to %s is before date_from %s", d.DateTo, d.DateFrom)
	}
	if d.EmployeeID == "" {
		return generic.Leave{}, fmt.Errorf("employee_id is required")
	}

	state := generic.LeaveState(d.State)
	if state == "" {
		state = generic.LeaveDraft
	}
	leave := generic.Leave{
		ID:          generic.RecordID(d.ID),
		EmployeeID:  generic.EntityID(d.EmployeeID),
		LeaveTypeID: generic.LeaveTypeID(d.LeaveTypeID),
		State:       state,
		DateFrom:    from,
		DateTo:      to,
		Days:        generic.NewAmountFromDecimal(d.Days, generic.UnitDays),
	}
	if d.Sick != nil {
		illness := generic.IllnessType(d.Sick.IllnessType)
		if illness == "" {
			illness = generic.IllnessNormal
		}
		leave.Sick = &generic.SickDetails{IllnessType: illness, CertificateProvided: d.Sick.CertificateProvided}
	}
	if d.Parental != nil {
		birth, err := parseOptionalDate("child_birth_date", d.Parental.ChildBirthDate)
		if err != nil {
			return generic.Leave{}, err
		}
		leave.Parental = &generic.ParentalDetails{
			Kind:                generic.ParentalKind(d.Parental.Kind),
			ChildName:           d.Parental.ChildName,
			ChildBirthDate:      birth,
			ChildPersonalNumber: d.Parental.ChildPersonalNumber,
			CaseNumber:          d.Parental.CaseNumber,
			BenefitPercent:      d.Parental.BenefitPercent,
			SalarySupplement:    d.Parental.SalarySupplement,
			SupplementPercent:   d.Parental.SupplementPercent,
		}
	}
	return leave, nil
}

func toLeaveDTO(l generic.Leave) LeaveDTO {
	dto := LeaveDTO{
		ID:          string(l.ID),
		EmployeeID:  string(l.EmployeeID),
		LeaveTypeID: string(l.LeaveTypeID),
		State:       string(l.State),
		DateFrom:    formatDate(l.DateFrom),
		DateTo:      formatDate(l.DateTo),
		Days:        l.Days.Value,
	}
	if l.Sick != nil {
		dto.Sick = &SickDetailsDTO{IllnessType: string(l.Sick.IllnessType), CertificateProvided: l.Sick.CertificateProvided}
	}
	if p := l.Parental; p != nil {
		dto.Parental = &ParentalDetailsDTO{
			Kind:                string(p.Kind),
			ChildName:           p.ChildName,
			ChildBirthDate:      formatDate(p.ChildBirthDate),
			ChildPersonalNumber: p.ChildPersonalNumber,
			CaseNumber:          p.CaseNumber,
			BenefitPercent:      p.BenefitPercent,
			SalarySupplement:    p.SalarySupplement,
			SupplementPercent:   p.SupplementPercent,
		}
	}
	return dto
}

// ViolationDTO describes one failed rule.
type ViolationDTO struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type WarningDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// LeaveValidationDTO is the outcome of running every applicable rule against
// a leave. Leave carries the kind defaults applied to parental leaves.
type LeaveValidationDTO struct {
	Valid      bool           `json:"valid"`
	Violations []ViolationDTO `json:"violations"`
	Warnings   []WarningDTO   `json:"warnings"`
	Leave      LeaveDTO       `json:"leave"`
}

// =============================================================================
// IDENTITY
// =============================================================================

type ValidateIdentityRequest struct {
	Number        string `json:"number"`
	ReferenceDate string `json:"reference_date,omitempty"`
	Child         bool   `json:"child,omitempty"`
}

type IdentityDTO struct {
	Valid      bool          `json:"valid"`
	Normalized string        `json:"normalized,omitempty"`
	Short      string        `json:"short,omitempty"`
	BirthDate  string        `json:"birth_date,omitempty"`
	Age        int           `json:"age,omitempty"`
	Violation  *ViolationDTO `json:"violation,omitempty"`
}

// =============================================================================
// VACATION
// =============================================================================

type VacationYearDTO struct {
	Date  string `json:"date"`
	Year  string `json:"vacation_year"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func toVacationYearDTO(date generic.TimePoint) VacationYearDTO {
	y := vacation.YearOf(date)
	p := y.Period()
	return VacationYearDTO{
		Date:  formatDate(date),
		Year:  y.String(),
		Start: formatDate(p.Start),
		End:   formatDate(p.End),
	}
}

type VacationBalanceDTO struct {
	EmployeeID  string          `json:"employee_id"`
	Year        string          `json:"vacation_year"`
	Entitlement decimal.Decimal `json:"entitlement_days"`
	Allocated   decimal.Decimal `json:"allocated_days"`
	Consumed    decimal.Decimal `json:"consumed_days"`
	Remaining   decimal.Decimal `json:"remaining_days"`
	Configured  bool            `json:"configured"`
}

func toVacationBalanceDTO(b vacation.Balance) VacationBalanceDTO {
	return VacationBalanceDTO{
		EmployeeID:  string(b.EmployeeID),
		Year:        b.Year.String(),
		Entitlement: b.Entitlement.Value,
		Allocated:   b.Allocated.Value,
		Consumed:    b.Consumed.Value,
		Remaining:   b.Remaining.Value,
		Configured:  b.Configured,
	}
}

type EarnedVacationDTO struct {
	EmployeeID  string          `json:"employee_id"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	EarnedDays  decimal.Decimal `json:"earned_days"`
	VacationPay decimal.Decimal `json:"vacation_pay"`
}

type AllocateAnnualRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

type AllocationDTO struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employee_id"`
	LeaveTypeID    string          `json:"leave_type_id"`
	TypeCode       string          `json:"type_code,omitempty"`
	Name           string          `json:"name"`
	Days           decimal.Decimal `json:"days"`
	EffectiveDate  string          `json:"effective_date"`
	State          string          `json:"state"`
	VacationYear   string          `json:"vacation_year,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	SourceID       string          `json:"source_id,omitempty"`
}

func toAllocationDTO(a generic.Allocation) AllocationDTO {
	return AllocationDTO{
		ID:             string(a.ID),
		EmployeeID:     string(a.EmployeeID),
		LeaveTypeID:    string(a.LeaveTypeID),
		TypeCode:       a.TypeCode,
		Name:           a.Name,
		Days:           a.Days.Value,
		EffectiveDate:  formatDate(a.EffectiveDate),
		State:          string(a.State),
		VacationYear:   a.VacationYear,
		IdempotencyKey: a.IdempotencyKey,
		SourceID:       string(a.SourceID),
	}
}

// toAllocation defaults the state to validated: allocations recorded through
// the API have already been confirmed by the HR system.
func (d AllocationDTO) toAllocation(createdAt generic.TimePoint) (generic.Allocation, error) {
	effective, err := parseDate("effective_date", d.EffectiveDate)
	if err != nil {
		return generic.Allocation{}, err
	}
	if d.EmployeeID == "" {
		return generic.Allocation{}, fmt.Errorf("employee_id is required")
	}
	if d.LeaveTypeID == "" {
		return generic.Allocation{}, fmt.Errorf("leave_type_id is required")
	}
	state := generic.AllocationState(d.State)
	if state == "" {
		state = generic.AllocationValidated
	}
	return generic.Allocation{
		ID:             generic.RecordID(d.ID),
		EmployeeID:     generic.EntityID(d.EmployeeID),
		LeaveTypeID:    generic.LeaveTypeID(d.LeaveTypeID),
		TypeCode:       d.TypeCode,
		Name:           d.Name,
		Days:           generic.NewAmountFromDecimal(d.Days, generic.UnitDays),
		EffectiveDate:  effective,
		State:          state,
		VacationYear:   d.VacationYear,
		IdempotencyKey: d.IdempotencyKey,
		SourceID:       generic.RecordID(d.SourceID),
		CreatedAt:      createdAt,
	}, nil
}

type AllocationRunDTO struct {
	Year    string          `json:"vacation_year"`
	Created []AllocationDTO `json:"created"`
	Skipped []string        `json:"skipped"`
}

func toAllocationRunDTO(run vacation.AllocationRun) AllocationRunDTO {
	dto := AllocationRunDTO{
		Year:    run.Year.String(),
		Created: make([]AllocationDTO, 0, len(run.Created)),
		Skipped: make([]string, 0, len(run.Skipped)),
	}
	for _, a := range run.Created {
		dto.Created = append(dto.Created, toAllocationDTO(a))
	}
	for _, id := range run.Skipped {
		dto.Skipped = append(dto.Skipped, string(id))
	}
	return dto
}

// =============================================================================
// SICK LEAVE
// =============================================================================

type SickClassificationDTO struct {
	Applicable          bool            `json:"applicable"`
	SpellStart          string          `json:"spell_start,omitempty"`
	CumulativeDays      decimal.Decimal `json:"cumulative_days"`
	Continuation        bool            `json:"continuation"`
	PreviousLeaveID     string          `json:"previous_leave_id,omitempty"`
	DaysSinceLastSpell  int             `json:"days_since_last_spell"`
	QualifyingDeduction bool            `json:"qualifying_deduction"`
	EmployerLiability   bool            `json:"employer_liability"`
	CertificateRequired bool            `json:"certificate_required"`
	ReportToAgency      bool            `json:"report_to_agency"`
	BenefitPercent      decimal.Decimal `json:"benefit_percent"`
}

func toSickClassificationDTO(c sickleave.Classification) SickClassificationDTO {
	return SickClassificationDTO{
		Applicable:          c.Applicable,
		SpellStart:          formatDate(c.SpellStart),
		CumulativeDays:      c.CumulativeDays.Value,
		Continuation:        c.Continuation,
		PreviousLeaveID:     string(c.PreviousLeaveID),
		DaysSinceLastSpell:  c.DaysSinceLastSpell,
		QualifyingDeduction: c.QualifyingDeduction,
		EmployerLiability:   c.EmployerLiability,
		CertificateRequired: c.CertificateRequired,
		ReportToAgency:      c.ReportToAgency,
		BenefitPercent:      c.BenefitPercent,
	}
}

type SickStatisticsDTO struct {
	EmployeeID    string          `json:"employee_id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Count         int             `json:"count"`
	Days          decimal.Decimal `json:"days"`
	FrequentlyIll bool            `json:"frequently_ill"`
	Configured    bool            `json:"configured"`
}

func toSickStatisticsDTO(s sickleave.Statistics) SickStatisticsDTO {
	return SickStatisticsDTO{
		EmployeeID:    string(s.EmployeeID),
		From:          formatDate(s.Window.Start),
		To:            formatDate(s.Window.End),
		Count:         s.Count,
		Days:          s.Days.Value,
		FrequentlyIll: s.FrequentlyIll,
		Configured:    s.Configured,
	}
}

type SickReportRequest struct {
	Leave LeaveDTO `json:"leave"`
	Kind  string   `json:"kind"`
}

type SickReportDTO struct {
	LeaveID        string          `json:"leave_id"`
	EmployeeID     string          `json:"employee_id"`
	Kind           string          `json:"kind"`
	SpellStart     string          `json:"spell_start"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	IllnessType    string          `json:"illness_type"`
	CumulativeDays decimal.Decimal `json:"cumulative_days"`
}

func toSickReportDTO(r sickleave.AgencyReport) SickReportDTO {
	return SickReportDTO{
		LeaveID:        string(r.LeaveID),
		EmployeeID:     string(r.EmployeeID),
		Kind:           string(r.Kind),
		SpellStart:     formatDate(r.SpellStart),
		StartDate:      formatDate(r.StartDate),
		EndDate:        formatDate(r.EndDate),
		IllnessType:    string(r.IllnessType),
		CumulativeDays: r.CumulativeDays.Value,
	}
}

// =============================================================================
// PARENTAL LEAVE
// =============================================================================

type ChildSummaryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date,omitempty"`
	Age       int    `json:"age"`
}

type ParentalStatisticsDTO struct {
	EmployeeID      string                     `json:"employee_id"`
	ChildCount      int                        `json:"child_count"`
	Children        []ChildSummaryDTO          `json:"children"`
	QuotaDays       decimal.Decimal            `json:"quota_days"`
	UsedDays        decimal.Decimal            `json:"used_days"`
	RemainingDays   decimal.Decimal            `json:"remaining_days"`
	VABUsedThisYear decimal.Decimal            `json:"vab_used_this_year"`
	ByKind          map[string]decimal.Decimal `json:"by_kind"`
	Configured      bool                       `json:"configured"`
}

func toParentalStatisticsDTO(s parental.Statistics) ParentalStatisticsDTO {
	dto := ParentalStatisticsDTO{
		EmployeeID:      string(s.EmployeeID),
		ChildCount:      s.ChildCount,
		Children:        make([]ChildSummaryDTO, 0, len(s.Children)),
		QuotaDays:       s.QuotaDays.Value,
		UsedDays:        s.UsedDays.Value,
		RemainingDays:   s.RemainingDays.Value,
		VABUsedThisYear: s.VABUsedThisYear.Value,
		ByKind:          make(map[string]decimal.Decimal, len(s.ByKind)),
		Configured:      s.Configured,
	}
	for _, c := range s.Children {
		dto.Children = append(dto.Children, ChildSummaryDTO{
			ID:        string(c.ID),
			Name:      c.Name,
			BirthDate: formatDate(c.BirthDate),
			Age:       c.Age,
		})
	}
	for kind, days := range s.ByKind {
		dto.ByKind[string(kind)] = days.Value
	}
	return dto
}

type ParentalReportRowDTO struct {
	LeaveID        string          `json:"leave_id"`
	EmployeeID     string          `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	ChildName      string          `json:"child_name,omitempty"`
	ChildBirthDate string          `json:"child_birth_date,omitempty"`
	Kind           string          `json:"kind"`
	BenefitPercent decimal.Decimal `json:"benefit_percent"`
	DateFrom       string          `json:"date_from"`
	DateTo         string          `json:"date_to"`
	Days           decimal.Decimal `json:"days"`
	CaseNumber     string          `json:"case_number,omitempty"`
}

func toParentalReportRowDTO(r parental.ReportRow) ParentalReportRowDTO {
	return ParentalReportRowDTO{
		LeaveID:        string(r.LeaveID),
		EmployeeID:     string(r.EmployeeID),
		EmployeeName:   r.EmployeeName,
		ChildName:      r.ChildName,
		ChildBirthDate: formatDate(r.ChildBirthDate),
		Kind:           string(r.Kind),
		BenefitPercent: r.BenefitPercent,
		DateFrom:       formatDate(r.DateFrom),
		DateTo:         formatDate(r.DateTo),
		Days:           r.Days.Value,
		CaseNumber:     r.CaseNumber,
	}
}

// =============================================================================
// OVERTIME
// =============================================================================

type OvertimeEntryDTO struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employee_id"`
	CompanyID       string          `json:"company_id,omitempty"`
	Date            string          `json:"date"`
	StartHour       decimal.Decimal `json:"start_hour"`
	EndHour         decimal.Decimal `json:"end_hour"`
	Type            string          `json:"overtime_type"`
	Mode            string          `json:"compensation_mode"`
	State           string          `json:"state"`
	Description     string          `json:"description,omitempty"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	ApprovedAt      string          `json:"approved_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	AllocationID    string          `json:"allocation_id,omitempty"`

	// Derived
	Hours      decimal.Decimal `json:"hours"`
	Weekend    bool            `json:"weekend"`
	Holiday    bool            `json:"holiday"`
	Multiplier decimal.Decimal `json:"multiplier"`
	HourlyWage decimal.Decimal `json:"hourly_wage"`
	Money      decimal.Decimal `json:"compensation_money"`
	TimeHours  decimal.Decimal `json:"compensation_time_hours"`
}

func (d OvertimeEntryDTO) toEntry() (generic.OvertimeEntry, error) {
	date, err := parseDate("date", d.Date)
	if err != nil {
		return generic.OvertimeEntry{}, err
	}
	if d.EmployeeID == "" {
		return generic.OvertimeEntry{}, fmt.Errorf("employee_id is required")
	}
	return generic.OvertimeEntry{
		ID:          generic.RecordID(d.ID),
		EmployeeID:  generic.EntityID(d.EmployeeID),
		CompanyID:   d.CompanyID,
		Date:        date,
		StartHour:   d.StartHour,
		EndHour:     d.EndHour,
		Type:        generic.OvertimeType(d.Type),
		Mode:        generic.CompensationMode(d.Mode),
		Description: d.Description,
	}, nil
}

func toOvertimeEntryDTO(e overtime.Entry) OvertimeEntryDTO {
	return OvertimeEntryDTO{
		ID:              string(e.ID),
		EmployeeID:      string(e.EmployeeID),
		CompanyID:       e.CompanyID,
		Date:            formatDate(e.Date),
		StartHour:       e.StartHour,
		EndHour:         e.EndHour,
		Type:            string(e.Type),
		Mode:            string(e.Mode),
		State:           string(e.State),
		Description:     e.Description,
		ApprovedBy:      e.ApprovedBy,
		ApprovedAt:      formatDate(e.ApprovedAt),
		RejectionReason: e.RejectionReason,
		AllocationID:    string(e.AllocationID),
		Hours:           e.Computation.Duration.Value,
		Weekend:         e.Computation.Weekend,
		Holiday:         e.Computation.Holiday,
		Multiplier:      e.Computation.Multiplier,
		HourlyWage:      e.Computation.HourlyWage,
		Money:           e.Computation.Money.Value,
		TimeHours:       e.Computation.TimeHours.Value,
	}
}

// TransitionRequest carries the actor of a state change. Reason is required
// for rejections; At defaults to today.
type TransitionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
	At     string `json:"at,omitempty"`
}

type OvertimeStatisticsDTO struct {
	EmployeeID string          `json:"employee_id"`
	Count      int             `json:"count"`
	Hours      decimal.Decimal `json:"hours"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayslipLineDTO struct {
	Code     string          `json:"code"`
	Name     string          `json:"name,omitempty"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type TaxRequest struct {
	EmployeeID string           `json:"employee_id"`
	Lines      []PayslipLineDTO `json:"lines"`
}

type TaxResultDTO struct {
	Gross     decimal.Decimal  `json:"gross"`
	Tax       decimal.Decimal  `json:"tax"`
	ChurchTax decimal.Decimal  `json:"church_tax"`
	Net       decimal.Decimal  `json:"net"`
	Lines     []PayslipLineDTO `json:"lines"`
}

func toPayrollLines(dtos []PayslipLineDTO) []payroll.Line {
	lines := make([]payroll.Line, len(dtos))
	for i, d := range dtos {
		lines[i] = payroll.Line{Code: d.Code, Name: d.Name, Category: d.Category, Amount: d.Amount}
	}
	return lines
}

func toTaxResultDTO(r payroll.Result) TaxResultDTO {
	dto := TaxResultDTO{
		Gross:     r.Gross,
		Tax:       r.Tax,
		ChurchTax: r.ChurchTax,
		Net:       r.Net,
		Lines:     make([]PayslipLineDTO, len(r.Lines)),
	}
	for i, l := range r.Lines {
		dto.Lines[i] = PayslipLineDTO{Code: l.Code, Name: l.Name, Category: l.Category, Amount: l.Amount}
	}
	return dto
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EmployeeID string         `json:"employee_id,omitempty"`
	RecordID   string         `json:"record_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Timestamp:  formatDate(e.Timestamp),
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		EmployeeID: string(e.EmployeeID),
		RecordID:   string(e.RecordID),
		Payload:    e.Payload,
	}
}
