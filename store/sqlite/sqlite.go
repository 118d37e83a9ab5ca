/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every query interface the rule engines consume, the
  compensatory allocation write-back, the audit log, the seeding surface
  for collaborator-owned records and a company holiday calendar. In
  production the surrounding HR system owns these tables; this store is
  the reference implementation used by the server and the CLI.

INTERFACES IMPLEMENTED:
  generic.TxStore:         All queries, write-backs and WithTx
  generic.RecordStore:     Employees, leaves, contracts, children, rates
  generic.HolidayCalendar: Company-specific holidays

KEY TABLES:
  employees, contracts, children, municipalities:  reference records
  allocations:      vacation and compensatory grants (idempotency key UNIQUE)
  leaves:           leave requests, sick/parental details as JSON
  overtime_entries: overtime ledger
  audit_log:        append-only audit trail
  holidays:         company and global holidays

STORAGE FORMATS:
  Dates are TEXT "2006-01-02", so range filters compare lexically.
  Day counts, hours, wages and rates are decimal strings; aggregation
  happens in Go to keep full precision.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction, which serializes every check-then-act operation.
  Queries run through a lock-free conn bound either to the database or to
  the open transaction; methods on Store take the lock, conn never does.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/entitlements.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.TxStore         = (*Store)(nil)
	_ generic.RecordStore     = (*Store)(nil)
	_ generic.HolidayCalendar = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		personal_number TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		vacation_days TEXT NOT NULL DEFAULT '0',
		vacation_base TEXT NOT NULL DEFAULT '0',
		municipality_id TEXT NOT NULL DEFAULT '',
		church_member BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		wage_type TEXT NOT NULL,
		wage TEXT NOT NULL DEFAULT '0',
		hourly_wage TEXT NOT NULL DEFAULT '0',
		start_date TEXT NOT NULL,
		end_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_employee
		ON contracts(employee_id, start_date);

	CREATE TABLE IF NOT EXISTS children (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		birth_date TEXT,
		personal_number TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_children_employee ON children(employee_id);

	CREATE TABLE IF NOT EXISTS municipalities (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		total_rate TEXT NOT NULL,
		church_rate TEXT NOT NULL DEFAULT '0'
	);

	-- Allocations (vacation entitlement, compensatory time off)
	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		type_code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		days TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		state TEXT NOT NULL,
		vacation_year TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		source_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_employee_type_date
		ON allocations(employee_id, leave_type_id, effective_date);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		state TEXT NOT NULL,
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		days TEXT NOT NULL,
		sick_json TEXT,
		parental_json TEXT
	);

	-- Hot path: balance and spell lookups per employee and type
	CREATE INDEX IF NOT EXISTS idx_leaves_employee_type_from
		ON leaves(employee_id, leave_type_id, date_from);
	CREATE INDEX IF NOT EXISTS idx_leaves_employee_type_to
		ON leaves(employee_id, leave_type_id, date_to);

	CREATE TABLE IF NOT EXISTS overtime_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		start_hour TEXT NOT NULL,
		end_hour TEXT NOT NULL,
		overtime_type TEXT NOT NULL,
		compensation_mode TEXT NOT NULL,
		state TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT,
		rejection_reason TEXT NOT NULL DEFAULT '',
		allocation_id TEXT NOT NULL DEFAULT ''
	);

	-- Hot path: monthly and yearly cap checks
	CREATE INDEX IF NOT EXISTS idx_overtime_employee_date
		ON overtime_entries(employee_id, date);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT NOT NULL DEFAULT '',
		record_id TEXT NOT NULL DEFAULT '',
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee ON audit_log(employee_id);
	CREATE INDEX IF NOT EXISTS idx_audit_record ON audit_log(record_id);

	-- Company holidays (public holidays are computed, not stored)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_company_date
		ON holidays(company_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(company_id, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

// direct binds a conn to the database outside any transaction. Callers hold s.mu.
func (s *Store) direct() conn { return conn{q: s.db} }

func (s *Store) FindAllocations(ctx context.Context, f generic.AllocationFilter) ([]generic.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().FindAllocations(ctx, f)
}

func (s *Store) FindLeaves(ctx context.Context, f generic.LeaveFilter) ([]generic.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().FindLeaves(ctx, f)
}

func (s *Store) FindActiveContract(ctx context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (*generic.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().FindActiveContract(ctx, employeeID, asOf)
}

func (s *Store) FindMunicipalityRate(ctx context.Context, id generic.RecordID) (*generic.MunicipalityRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().FindMunicipalityRate(ctx, id)
}

func (s *Store) CountChildren(ctx context.Context, employeeID generic.EntityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().CountChildren(ctx, employeeID)
}

func (s *Store) ListChildren(ctx context.Context, employeeID generic.EntityID) ([]generic.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().ListChildren(ctx, employeeID)
}

func (s *Store) FindEmployee(ctx context.Context, id generic.EntityID) (generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().FindEmployee(ctx, id)
}

func (s *Store) ListActiveEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().ListActiveEmployees(ctx)
}

func (s *Store) GetOvertimeEntry(ctx context.Context, id generic.RecordID) (generic.OvertimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().GetOvertimeEntry(ctx, id)
}

func (s *Store) FindOvertime(ctx context.Context, f generic.OvertimeFilter) ([]generic.OvertimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().FindOvertime(ctx, f)
}

func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direct().QueryAudit(ctx, f)
}

func (s *Store) CreateTimeOffAllocation(ctx context.Context, a generic.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().CreateTimeOffAllocation(ctx, a)
}

func (s *Store) SaveOvertimeEntry(ctx context.Context, e generic.OvertimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().SaveOvertimeEntry(ctx, e)
}

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().AppendAudit(ctx, e)
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes fn within a database transaction.
// If fn returns error, transaction is rolled back.
// If fn returns nil, transaction is committed.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(conn{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// CONN - Lock-free queries over *sql.DB or *sql.Tx
// =============================================================================

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q queryer
}

var _ generic.Store = conn{}

// where accumulates AND-ed conditions.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) eq(column, value string) {
	if value != "" {
		w.add(column+" = ?", value)
	}
}

func (w *where) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	w.add(column+" IN ("+marks+")", args...)
}

func (w *where) dates(column string, r generic.DateRange) {
	if !r.From.IsZero() {
		w.add(column+" >= ?", formatDate(r.From))
	}
	if !r.To.IsZero() {
		w.add(column+" <= ?", formatDate(r.To))
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func stateStrings[T ~string](states []T) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (c conn) CreateTimeOffAllocation(ctx context.Context, a generic.Allocation) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = generic.DateOf(time.Now())
	}

	query := `
		INSERT INTO allocations
		(id, employee_id, leave_type_id, type_code, name, days, effective_date,
		 state, vacation_year, idempotency_key, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.q.ExecContext(ctx, query,
		a.ID,
		a.EmployeeID,
		a.LeaveTypeID,
		a.TypeCode,
		a.Name,
		a.Days.Value.String(),
		formatDate(a.EffectiveDate),
		a.State,
		a.VacationYear,
		nullString(a.IdempotencyKey),
		a.SourceID,
		formatDate(createdAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

func (c conn) FindAllocations(ctx context.Context, f generic.AllocationFilter) ([]generic.Allocation, error) {
	var w where
	w.eq("employee_id", string(f.EmployeeID))
	w.eq("leave_type_id", string(f.LeaveTypeID))
	w.in("state", stateStrings(f.States))
	w.dates("effective_date", f.Effective)

	rows, err := c.q.QueryContext(ctx, `
		SELECT id, employee_id, leave_type_id, type_code, name, days, effective_date,
		       state, vacation_year, idempotency_key, source_id, created_at
		FROM allocations`+w.String()+` ORDER BY effective_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var result []generic.Allocation
	for rows.Next() {
		var (
			a                        generic.Allocation
			days, effective, created string
			idempotencyKey           sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.LeaveTypeID, &a.TypeCode, &a.Name, &days, &effective,
			&a.State, &a.VacationYear, &idempotencyKey, &a.SourceID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.Days = parseAmount(days, generic.UnitDays)
		a.EffectiveDate = parseDate(effective)
		a.CreatedAt = parseDate(created)
		a.IdempotencyKey = idempotencyKey.String
		result = append(result, a)
	}
	return result, rows.Err()
}

// =============================================================================
// LEAVES
// =============================================================================

func (c conn) SaveLeave(ctx context.Context, l generic.Leave) error {
	sickJSON, err := marshalOptional(l.Sick)
	if err != nil {
		return err
	}
	parentalJSON, err := marshalOptional(l.Parental)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leaves (id, employee_id, leave_type_id, state, date_from, date_to, days, sick_json, parental_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			leave_type_id = excluded.leave_type_id,
			state = excluded.state,
			date_from = excluded.date_from,
			date_to = excluded.date_to,
			days = excluded.days,
			sick_json = excluded.sick_json,
			parental_json = excluded.parental_json
	`

	_, err = c.q.ExecContext(ctx, query,
		l.ID,
		l.EmployeeID,
		l.LeaveTypeID,
		l.State,
		formatDate(l.DateFrom),
		formatDate(l.DateTo),
		l.Days.Value.String(),
		sickJSON,
		parentalJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save leave: %w", err)
	}
	return nil
}

func (c conn) FindLeaves(ctx context.Context, f generic.LeaveFilter) ([]generic.Leave, error) {
	var w where
	w.eq("employee_id", string(f.EmployeeID))
	w.eq("leave_type_id", string(f.LeaveTypeID))
	w.in("state", stateStrings(f.States))
	w.dates("date_from", f.Starting)
	w.dates("date_to", f.Ending)
	if f.ExcludeID != "" {
		w.add("id != ?", f.ExcludeID)
	}

	rows, err := c.q.QueryContext(ctx, `
		SELECT id, employee_id, leave_type_id, state, date_from, date_to, days, sick_json, parental_json
		FROM leaves`+w.String()+` ORDER BY date_from, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var result []generic.Leave
	for rows.Next() {
		var (
			l                  generic.Leave
			from, to, days     string
			sickJSON, parental sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.EmployeeID, &l.LeaveTypeID, &l.State, &from, &to, &days, &sickJSON, &parental); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		l.DateFrom = parseDate(from)
		l.DateTo = parseDate(to)
		l.Days = parseAmount(days, generic.UnitDays)
		if sickJSON.Valid {
			l.Sick = &generic.SickDetails{}
			if err := json.Unmarshal([]byte(sickJSON.String), l.Sick); err != nil {
				return nil, fmt.Errorf("failed to decode sick details of %s: %w", l.ID, err)
			}
		}
		if parental.Valid {
			l.Parental = &generic.ParentalDetails{}
			if err := json.Unmarshal([]byte(parental.String), l.Parental); err != nil {
				return nil, fmt.Errorf("failed to decode parental details of %s: %w", l.ID, err)
			}
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// =============================================================================
// REFERENCE RECORDS
// =============================================================================

func (c conn) FindActiveContract(ctx context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (*generic.Contract, error) {
	query := `
		SELECT id, employee_id, wage_type, wage, hourly_wage, start_date, end_date
		FROM contracts
		WHERE employee_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY start_date DESC
		LIMIT 1
	`
	day := formatDate(asOf)

	var (
		k                   generic.Contract
		wage, hourly, start string
		end                 sql.NullString
	)
	err := c.q.QueryRowContext(ctx, query, employeeID, day, day).
		Scan(&k.ID, &k.EmployeeID, &k.WageType, &wage, &hourly, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query contract: %w", err)
	}
	k.Wage = parseDecimal(wage)
	k.HourlyWage = parseDecimal(hourly)
	k.Start = parseDate(start)
	if end.Valid {
		k.End = parseDate(end.String)
	}
	return &k, nil
}

func (c conn) FindMunicipalityRate(ctx context.Context, id generic.RecordID) (*generic.MunicipalityRate, error) {
	var (
		m             generic.MunicipalityRate
		total, church string
	)
	err := c.q.QueryRowContext(ctx, `
		SELECT id, code, name, region, total_rate, church_rate
		FROM municipalities WHERE id = ?`, id).
		Scan(&m.ID, &m.Code, &m.Name, &m.Region, &total, &church)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query municipality: %w", err)
	}
	m.TotalRate = parseDecimal(total)
	m.ChurchRate = parseDecimal(church)
	return &m, nil
}

func (c conn) CountChildren(ctx context.Context, employeeID generic.EntityID) (int, error) {
	var count int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM children WHERE employee_id = ?", employeeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return count, nil
}

func (c conn) ListChildren(ctx context.Context, employeeID generic.EntityID) ([]generic.Child, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, employee_id, name, birth_date, personal_number
		FROM children WHERE employee_id = ? ORDER BY birth_date, id`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var result []generic.Child
	for rows.Next() {
		var (
			ch    generic.Child
			birth sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.EmployeeID, &ch.Name, &birth, &ch.PersonalNumber); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		if birth.Valid {
			ch.BirthDate = parseDate(birth.String)
		}
		result = append(result, ch)
	}
	return result, rows.Err()
}

const employeeColumns = `id, name, personal_number, company_id, active, vacation_days, vacation_base, municipality_id, church_member`

func scanEmployee(scan func(dest ...any) error) (generic.Employee, error) {
	var (
		e                  generic.Employee
		vacationDays, base string
	)
	if err := scan(&e.ID, &e.Name, &e.PersonalNumber, &e.CompanyID, &e.Active, &vacationDays, &base,
		&e.MunicipalityID, &e.ChurchMember); err != nil {
		return generic.Employee{}, err
	}
	e.VacationDays = parseAmount(vacationDays, generic.UnitDays)
	e.VacationBase = parseDecimal(base)
	return e, nil
}

func (c conn) FindEmployee(ctx context.Context, id generic.EntityID) (generic.Employee, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	e, err := scanEmployee(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Employee{}, fmt.Errorf("employee %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return generic.Employee{}, fmt.Errorf("failed to query employee: %w", err)
	}
	return e, nil
}

func (c conn) ListActiveEmployees(ctx context.Context) ([]generic.Employee, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE active = TRUE ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var result []generic.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// OVERTIME
// =============================================================================

const overtimeColumns = `id, employee_id, company_id, date, start_hour, end_hour, overtime_type,
	compensation_mode, state, description, approved_by, approved_at, rejection_reason, allocation_id`

func scanOvertime(scan func(dest ...any) error) (generic.OvertimeEntry, error) {
	var (
		e                generic.OvertimeEntry
		date, start, end string
		approvedAt       sql.NullString
	)
	if err := scan(&e.ID, &e.EmployeeID, &e.CompanyID, &date, &start, &end, &e.Type, &e.Mode, &e.State,
		&e.Description, &e.ApprovedBy, &approvedAt, &e.RejectionReason, &e.AllocationID); err != nil {
		return generic.OvertimeEntry{}, err
	}
	e.Date = parseDate(date)
	e.StartHour = parseDecimal(start)
	e.EndHour = parseDecimal(end)
	if approvedAt.Valid {
		e.ApprovedAt = parseDate(approvedAt.String)
	}
	return e, nil
}

func (c conn) GetOvertimeEntry(ctx context.Context, id generic.RecordID) (generic.OvertimeEntry, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+overtimeColumns+" FROM overtime_entries WHERE id = ?", id)
	e, err := scanOvertime(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.OvertimeEntry{}, fmt.Errorf("overtime entry %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return generic.OvertimeEntry{}, fmt.Errorf("failed to query overtime entry: %w", err)
	}
	return e, nil
}

func (c conn) FindOvertime(ctx context.Context, f generic.OvertimeFilter) ([]generic.OvertimeEntry, error) {
	var w where
	w.eq("employee_id", string(f.EmployeeID))
	w.in("state", stateStrings(f.States))
	w.dates("date", f.Dated)
	if f.ExcludeID != "" {
		w.add("id != ?", f.ExcludeID)
	}

	rows, err := c.q.QueryContext(ctx, "SELECT "+overtimeColumns+" FROM overtime_entries"+w.String()+" ORDER BY date, id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime: %w", err)
	}
	defer rows.Close()

	var result []generic.OvertimeEntry
	for rows.Next() {
		e, err := scanOvertime(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (c conn) SaveOvertimeEntry(ctx context.Context, e generic.OvertimeEntry) error {
	query := `
		INSERT INTO overtime_entries (` + overtimeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			company_id = excluded.company_id,
			date = excluded.date,
			start_hour = excluded.start_hour,
			end_hour = excluded.end_hour,
			overtime_type = excluded.overtime_type,
			compensation_mode = excluded.compensation_mode,
			state = excluded.state,
			description = excluded.description,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			rejection_reason = excluded.rejection_reason,
			allocation_id = excluded.allocation_id
	`

	var approvedAt sql.NullString
	if !e.ApprovedAt.IsZero() {
		approvedAt = nullString(formatDate(e.ApprovedAt))
	}

	_, err := c.q.ExecContext(ctx, query,
		e.ID,
		e.EmployeeID,
		e.CompanyID,
		formatDate(e.Date),
		e.StartHour.String(),
		e.EndHour.String(),
		e.Type,
		e.Mode,
		e.State,
		e.Description,
		e.ApprovedBy,
		approvedAt,
		e.RejectionReason,
		e.AllocationID,
	)
	if err != nil {
		return fmt.Errorf("failed to save overtime entry: %w", err)
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (c conn) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	_, err = c.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, employee_id, record_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.Time.Format(time.RFC3339),
		e.ActorID,
		e.Action,
		e.EmployeeID,
		e.RecordID,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (c conn) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	var w where
	if f.EmployeeID != nil {
		w.add("employee_id = ?", string(*f.EmployeeID))
	}
	if f.RecordID != nil {
		w.add("record_id = ?", string(*f.RecordID))
	}
	w.in("action", stateStrings(f.Actions))

	rows, err := c.q.QueryContext(ctx, `
		SELECT id, timestamp, actor_id, action, employee_id, record_id, payload_json
		FROM audit_log`+w.String()+` ORDER BY rowid`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var result []generic.AuditEntry
	for rows.Next() {
		var (
			e         generic.AuditEntry
			timestamp string
			payload   sql.NullString
		)
		if err := rows.Scan(&e.ID, &timestamp, &e.ActorID, &e.Action, &e.EmployeeID, &e.RecordID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		t, _ := time.Parse(time.RFC3339, timestamp)
		e.Timestamp = generic.DateOf(t)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// RECORD STORE - Collaborator-owned records
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			personal_number = excluded.personal_number,
			company_id = excluded.company_id,
			active = excluded.active,
			vacation_days = excluded.vacation_days,
			vacation_base = excluded.vacation_base,
			municipality_id = excluded.municipality_id,
			church_member = excluded.church_member
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Name,
		e.PersonalNumber,
		e.CompanyID,
		e.Active,
		e.VacationDays.Value.String(),
		e.VacationBase.String(),
		e.MunicipalityID,
		e.ChurchMember,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) SaveLeave(ctx context.Context, l generic.Leave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().SaveLeave(ctx, l)
}

func (s *Store) SaveContract(ctx context.Context, k generic.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var end sql.NullString
	if !k.End.IsZero() {
		end = nullString(formatDate(k.End))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, employee_id, wage_type, wage, hourly_wage, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			wage_type = excluded.wage_type,
			wage = excluded.wage,
			hourly_wage = excluded.hourly_wage,
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		k.ID,
		k.EmployeeID,
		k.WageType,
		k.Wage.String(),
		k.HourlyWage.String(),
		formatDate(k.Start),
		end,
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

func (s *Store) SaveChild(ctx context.Context, ch generic.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var birth sql.NullString
	if !ch.BirthDate.IsZero() {
		birth = nullString(formatDate(ch.BirthDate))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO children (id, employee_id, name, birth_date, personal_number)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			name = excluded.name,
			birth_date = excluded.birth_date,
			personal_number = excluded.personal_number`,
		ch.ID,
		ch.EmployeeID,
		ch.Name,
		birth,
		ch.PersonalNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to save child: %w", err)
	}
	return nil
}

func (s *Store) SaveMunicipalityRate(ctx context.Context, m generic.MunicipalityRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO municipalities (id, code, name, region, total_rate, church_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			region = excluded.region,
			total_rate = excluded.total_rate,
			church_rate = excluded.church_rate`,
		m.ID,
		m.Code,
		m.Name,
		m.Region,
		m.TotalRate.String(),
		m.ChurchRate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save municipality: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

// SaveHoliday saves a company holiday. An empty company ID applies to all
// companies; recurring holidays repeat on the same month and day.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.New().String()
	}

	query := `
		INSERT INTO holidays (id, company_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.CompanyID,
		formatDate(h.Date),
		h.Name,
		h.Recurring,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// GetHolidays returns all holidays for a company in a given year.
// Includes both company-specific and global holidays.
func (s *Store) GetHolidays(companyID string, year int) []generic.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (recurring = TRUE OR strftime('%Y', date) = ?)
		ORDER BY strftime('%m-%d', date) ASC
	`

	rows, err := s.db.Query(query, companyID, fmt.Sprintf("%d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &h.CompanyID, &dateStr, &h.Name, &h.Recurring); err != nil {
			continue
		}

		t, _ := time.Parse(generic.DateLayout, dateStr)
		if h.Recurring {
			t = time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		h.Date = generic.DateOf(t)

		holidays = append(holidays, h)
	}

	return holidays
}

// IsHoliday checks if a date is a holiday for the given company.
func (s *Store) IsHoliday(companyID string, date generic.TimePoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (
			(recurring = FALSE AND date = ?)
			OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
		  )
	`

	var count int
	err := s.db.QueryRow(query, companyID, formatDate(date), date.Time.Format("01-02")).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatDate(tp generic.TimePoint) string {
	return tp.Time.Format(generic.DateLayout)
}

func parseDate(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}
	}
	return tp
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseAmount(value string, unit generic.Unit) generic.Amount {
	return generic.NewAmountFromDecimal(parseDecimal(value), unit)
}

// marshalOptional encodes v as JSON, or NULL when v is nil.
func marshalOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode details: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
