package generic

import "github.com/shopspring/decimal"

// =============================================================================
// ALLOCATION - Days granted on a leave type
// =============================================================================

type AllocationState string

const (
	AllocationDraft     AllocationState = "draft"
	AllocationConfirm   AllocationState = "confirm"  // pending confirmation
	AllocationValidated AllocationState = "validate" // counts towards balance
	AllocationRefused   AllocationState = "refuse"
)

type Allocation struct {
	ID            RecordID
	EmployeeID    EntityID
	LeaveTypeID   LeaveTypeID
	TypeCode      string // e.g. "OVERTIME" for compensatory grants
	Name          string
	Days          Amount
	EffectiveDate TimePoint
	State         AllocationState

	// VacationYear is the window tag recorded by the collaborator ("2024/2025").
	// The date-derived window is authoritative; the tag is only cross-checked.
	VacationYear string

	IdempotencyKey string
	SourceID       RecordID // e.g. the overtime entry that produced the grant
	CreatedAt      TimePoint
}

// =============================================================================
// LEAVE - A leave request on a leave type
// =============================================================================

type LeaveState string

const (
	LeaveDraft                   LeaveState = "draft"
	LeaveConfirmed               LeaveState = "confirm"
	LeavePendingSecondValidation LeaveState = "validate1"
	LeaveValidated               LeaveState = "validate"
	LeaveRefused                 LeaveState = "refuse"
)

// CountedLeaveStates are the states whose days are consumed from a balance
// or counted towards a quota.
var CountedLeaveStates = []LeaveState{LeaveValidated, LeavePendingSecondValidation}

func (s LeaveState) IsCounted() bool {
	for _, c := range CountedLeaveStates {
		if s == c {
			return true
		}
	}
	return false
}

type Leave struct {
	ID          RecordID
	EmployeeID  EntityID
	LeaveTypeID LeaveTypeID
	State       LeaveState
	DateFrom    TimePoint
	DateTo      TimePoint
	Days        Amount

	Sick     *SickDetails
	Parental *ParentalDetails
}

// IllnessType classifies a sick leave.
type IllnessType string

const (
	IllnessNormal     IllnessType = "normal"
	IllnessWorkInjury IllnessType = "work_injury"
	IllnessPregnancy  IllnessType = "pregnancy"
	IllnessContagious IllnessType = "contagious"
)

type SickDetails struct {
	IllnessType         IllnessType
	CertificateProvided bool
}

// ParentalKind is the sub-type of a parental leave.
type ParentalKind string

const (
	ParentalPregnancy ParentalKind = "pregnancy"
	ParentalParental  ParentalKind = "parental"
	ParentalTemporary ParentalKind = "temporary" // VAB
	ParentalPaternity ParentalKind = "paternity"
	ParentalReduced   ParentalKind = "reduced"
)

type ParentalDetails struct {
	Kind                ParentalKind
	ChildName           string
	ChildBirthDate      TimePoint
	ChildPersonalNumber string          // optional
	CaseNumber          string          // agency case number
	BenefitPercent      decimal.Decimal // 100, 75, 50, 25 or 12.5
	SalarySupplement    bool
	SupplementPercent   decimal.Decimal
}

// =============================================================================
// REFERENCE RECORDS - Owned by the surrounding HR system
// =============================================================================

type WageType string

const (
	WageMonthly WageType = "monthly"
	WageHourly  WageType = "hourly"
)

type Contract struct {
	ID         RecordID
	EmployeeID EntityID
	WageType   WageType
	Wage       decimal.Decimal // monthly wage
	HourlyWage decimal.Decimal
	Start      TimePoint
	End        TimePoint // zero = open-ended
}

// ActiveOn reports whether the contract covers date.
func (c Contract) ActiveOn(date TimePoint) bool {
	return DateRange{From: c.Start, To: c.End}.Contains(date)
}

type Child struct {
	ID             RecordID
	EmployeeID     EntityID
	Name           string
	BirthDate      TimePoint
	PersonalNumber string
}

type Employee struct {
	ID             EntityID
	Name           string
	PersonalNumber string
	CompanyID      string
	Active         bool
	VacationDays   Amount // annual entitlement, statutory default 25
	VacationBase   decimal.Decimal
	MunicipalityID RecordID
	ChurchMember   bool
}

type MunicipalityRate struct {
	ID         RecordID
	Code       string
	Name       string
	Region     string
	TotalRate  decimal.Decimal // percent, 0-100
	ChurchRate decimal.Decimal // percent, 0-100
}

// =============================================================================
// OVERTIME ENTRY
// =============================================================================

type OvertimeType string

const (
	OvertimeSimple      OvertimeType = "simple"
	OvertimeQualified   OvertimeType = "qualified"
	OvertimeEmergency   OvertimeType = "emergency"
	OvertimePreparation OvertimeType = "preparation"
	OvertimeStandby     OvertimeType = "standby"
)

type CompensationMode string

const (
	CompensationMoney CompensationMode = "money"
	CompensationTime  CompensationMode = "time"
	CompensationMixed CompensationMode = "mixed"
)

type OvertimeState string

const (
	OvertimeDraft     OvertimeState = "draft"
	OvertimeSubmitted OvertimeState = "submitted"
	OvertimeApproved  OvertimeState = "approved"
	OvertimeRejected  OvertimeState = "rejected"
	OvertimePaid      OvertimeState = "paid"
)

// CountedOvertimeStates are the states that count towards the caps.
var CountedOvertimeStates = []OvertimeState{OvertimeApproved, OvertimePaid}

type OvertimeEntry struct {
	ID          RecordID
	EmployeeID  EntityID
	CompanyID   string
	Date        TimePoint
	StartHour   decimal.Decimal // fractional hour of day, [0,24)
	EndHour     decimal.Decimal
	Type        OvertimeType
	Mode        CompensationMode
	State       OvertimeState
	Description string

	ApprovedBy      string
	ApprovedAt      TimePoint
	RejectionReason string
	AllocationID    RecordID // compensatory grant created on approval
}
