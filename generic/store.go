/*
store.go - Query and write-back interfaces consumed by the rule engines

PURPOSE:
  Defines the boundary between the rule engines and the surrounding record
  system. Engines never own storage: they read snapshots through these
  narrow query interfaces and return computed values. The write-backs are
  the compensatory time-off grant created when overtime is approved and the
  leave saved once its checks pass.

KEY INTERFACES:
  AllocationQuery:   Allocations by employee, leave type, state, date range
  LeaveQuery:        Leaves by employee, leave type, states, start/end range
  ContractQuery:     Active contract at a date
  MunicipalityQuery: Municipality tax rates
  ChildQuery:        Children of an employee
  EmployeeQuery:     Employee records
  OvertimeQuery:     Overtime entries
  AllocationWriter:  Compensatory grant write-back
  LeaveWriter:       Leave save after its balance and rule checks
  Store:             All of the above
  TxStore:           Store plus WithTx for check-then-act serialization

TRANSACTIONS:
  Limit and balance checks must read committed aggregates inside the same
  transaction that commits the new record. Callers that check-then-act
  (leave creation, overtime approval, annual allocation) go through WithTx.
  Implementations serialize WithTx calls, so at most one validating
  transaction is in flight.

IDEMPOTENCY:
  Every allocation carries an idempotency key. A second write with the same
  key is rejected with ErrDuplicateIdempotencyKey, which makes the annual
  allocation batch and overtime approval safe to retry.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - records.go: Record shapes
  - store/sqlite/sqlite.go: Concrete implementation
*/
package generic

import "context"

// =============================================================================
// QUERY FILTERS
// =============================================================================

// AllocationFilter selects allocations. Zero fields do not filter.
type AllocationFilter struct {
	EmployeeID  EntityID
	LeaveTypeID LeaveTypeID
	States      []AllocationState
	Effective   DateRange // on EffectiveDate
}

// LeaveFilter selects leaves. Zero fields do not filter.
type LeaveFilter struct {
	EmployeeID  EntityID
	LeaveTypeID LeaveTypeID
	States      []LeaveState
	Starting    DateRange // on DateFrom
	Ending      DateRange // on DateTo
	ExcludeID   RecordID
}

// OvertimeFilter selects overtime entries. Zero fields do not filter.
type OvertimeFilter struct {
	EmployeeID EntityID
	States     []OvertimeState
	Dated      DateRange
	ExcludeID  RecordID
}

// =============================================================================
// QUERY INTERFACES
// =============================================================================

type AllocationQuery interface {
	FindAllocations(ctx context.Context, filter AllocationFilter) ([]Allocation, error)
}

type LeaveQuery interface {
	// FindLeaves returns matching leaves ordered by DateFrom.
	FindLeaves(ctx context.Context, filter LeaveFilter) ([]Leave, error)
}

type ContractQuery interface {
	// FindActiveContract returns nil, nil when no contract covers asOf.
	FindActiveContract(ctx context.Context, employeeID EntityID, asOf TimePoint) (*Contract, error)
}

type MunicipalityQuery interface {
	// FindMunicipalityRate returns nil, nil for an unknown municipality.
	FindMunicipalityRate(ctx context.Context, municipalityID RecordID) (*MunicipalityRate, error)
}

type ChildQuery interface {
	CountChildren(ctx context.Context, employeeID EntityID) (int, error)
	ListChildren(ctx context.Context, employeeID EntityID) ([]Child, error)
}

type EmployeeQuery interface {
	// FindEmployee returns ErrNotFound for an unknown employee.
	FindEmployee(ctx context.Context, employeeID EntityID) (Employee, error)
	ListActiveEmployees(ctx context.Context) ([]Employee, error)
}

type OvertimeQuery interface {
	// GetOvertimeEntry returns ErrNotFound for an unknown entry.
	GetOvertimeEntry(ctx context.Context, id RecordID) (OvertimeEntry, error)
	FindOvertime(ctx context.Context, filter OvertimeFilter) ([]OvertimeEntry, error)
}

// =============================================================================
// WRITE-BACK
// =============================================================================

// AllocationWriter creates time-off allocations. Returns
// ErrDuplicateIdempotencyKey if the key was already used.
type AllocationWriter interface {
	CreateTimeOffAllocation(ctx context.Context, alloc Allocation) error
}

// LeaveWriter inserts or replaces a leave by ID.
type LeaveWriter interface {
	SaveLeave(ctx context.Context, l Leave) error
}

// OvertimeWriter persists overtime entry state changes.
type OvertimeWriter interface {
	SaveOvertimeEntry(ctx context.Context, entry OvertimeEntry) error
}

// =============================================================================
// STORE - Everything the engines and services need
// =============================================================================

type Store interface {
	AllocationQuery
	LeaveQuery
	ContractQuery
	MunicipalityQuery
	ChildQuery
	EmployeeQuery
	OvertimeQuery
	AllocationWriter
	LeaveWriter
	OvertimeWriter
	AuditLog
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// RecordStore is the seeding surface used by the CLI and the HTTP facade
// to load the collaborator-owned records the engines read.
type RecordStore interface {
	SaveEmployee(ctx context.Context, e Employee) error
	SaveLeave(ctx context.Context, l Leave) error
	SaveContract(ctx context.Context, c Contract) error
	SaveChild(ctx context.Context, c Child) error
	SaveMunicipalityRate(ctx context.Context, m MunicipalityRate) error
}

// =============================================================================
// AUDIT LOG - Who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string
	Timestamp  TimePoint
	ActorID    string // who performed the action
	Action     AuditAction
	EmployeeID EntityID
	RecordID   RecordID
	Payload    map[string]any // action-specific data
}

type AuditAction string

const (
	AuditOvertimeSubmitted AuditAction = "overtime_submitted"
	AuditOvertimeApproved  AuditAction = "overtime_approved"
	AuditOvertimeRejected  AuditAction = "overtime_rejected"
	AuditOvertimePaid      AuditAction = "overtime_paid"
	AuditAllocationCreated AuditAction = "allocation_created"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EmployeeID *EntityID
	RecordID   *RecordID
	Actions    []AuditAction
}
