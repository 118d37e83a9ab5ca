// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/entitlement-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state *memoryState
}

// memoryState holds the records. Its methods do not lock; Memory and the
// transactional view handle locking.
type memoryState struct {
	employees      map[generic.EntityID]generic.Employee
	allocations    []generic.Allocation
	leaves         []generic.Leave
	contracts      []generic.Contract
	children       []generic.Child
	municipalities map[generic.RecordID]generic.MunicipalityRate
	overtime       map[generic.RecordID]generic.OvertimeEntry
	audit          []generic.AuditEntry
	idempotency    map[string]bool
}

func newMemoryState() *memoryState {
	return &memoryState{
		employees:      make(map[generic.EntityID]generic.Employee),
		municipalities: make(map[generic.RecordID]generic.MunicipalityRate),
		overtime:       make(map[generic.RecordID]generic.OvertimeEntry),
		idempotency:    make(map[string]bool),
	}
}

func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

// =============================================================================
// QUERIES
// =============================================================================

func (m *Memory) FindAllocations(ctx context.Context, f generic.AllocationFilter) ([]generic.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindAllocations(ctx, f)
}

func (m *Memory) FindLeaves(ctx context.Context, f generic.LeaveFilter) ([]generic.Leave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindLeaves(ctx, f)
}

func (m *Memory) FindActiveContract(ctx context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (*generic.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindActiveContract(ctx, employeeID, asOf)
}

func (m *Memory) FindMunicipalityRate(ctx context.Context, id generic.RecordID) (*generic.MunicipalityRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindMunicipalityRate(ctx, id)
}

func (m *Memory) CountChildren(ctx context.Context, employeeID generic.EntityID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CountChildren(ctx, employeeID)
}

func (m *Memory) ListChildren(ctx context.Context, employeeID generic.EntityID) ([]generic.Child, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListChildren(ctx, employeeID)
}

func (m *Memory) FindEmployee(ctx context.Context, id generic.EntityID) (generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindEmployee(ctx, id)
}

func (m *Memory) ListActiveEmployees(ctx context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListActiveEmployees(ctx)
}

func (m *Memory) GetOvertimeEntry(ctx context.Context, id generic.RecordID) (generic.OvertimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetOvertimeEntry(ctx, id)
}

func (m *Memory) FindOvertime(ctx context.Context, f generic.OvertimeFilter) ([]generic.OvertimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindOvertime(ctx, f)
}

func (m *Memory) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.QueryAudit(ctx, f)
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) CreateTimeOffAllocation(ctx context.Context, a generic.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateTimeOffAllocation(ctx, a)
}

func (m *Memory) SaveOvertimeEntry(ctx context.Context, e generic.OvertimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SaveOvertimeEntry(ctx, e)
}

func (m *Memory) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AppendAudit(ctx, e)
}

func (m *Memory) SaveEmployee(_ context.Context, e generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.employees[e.ID] = e
	return nil
}

func (m *Memory) SaveLeave(ctx context.Context, l generic.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SaveLeave(ctx, l)
}

func (m *Memory) SaveContract(_ context.Context, c generic.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.contracts = append(m.state.contracts, c)
	return nil
}

func (m *Memory) SaveChild(_ context.Context, c generic.Child) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.children = append(m.state.children, c)
	return nil
}

func (m *Memory) SaveMunicipalityRate(_ context.Context, r generic.MunicipalityRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.municipalities[r.ID] = r
	return nil
}

// =============================================================================
// STATE (lock-free)
// =============================================================================

func (s *memoryState) FindAllocations(_ context.Context, f generic.AllocationFilter) ([]generic.Allocation, error) {
	var result []generic.Allocation
	for _, a := range s.allocations {
		if f.EmployeeID != "" && a.EmployeeID != f.EmployeeID {
			continue
		}
		if f.LeaveTypeID != "" && a.LeaveTypeID != f.LeaveTypeID {
			continue
		}
		if len(f.States) > 0 && !containsState(f.States, a.State) {
			continue
		}
		if !f.Effective.Contains(a.EffectiveDate) {
			continue
		}
		result = append(result, a)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EffectiveDate.Before(result[j].EffectiveDate)
	})
	return result, nil
}

func (s *memoryState) FindLeaves(_ context.Context, f generic.LeaveFilter) ([]generic.Leave, error) {
	var result []generic.Leave
	for _, l := range s.leaves {
		if f.EmployeeID != "" && l.EmployeeID != f.EmployeeID {
			continue
		}
		if f.LeaveTypeID != "" && l.LeaveTypeID != f.LeaveTypeID {
			continue
		}
		if f.ExcludeID != "" && l.ID == f.ExcludeID {
			continue
		}
		if len(f.States) > 0 && !containsState(f.States, l.State) {
			continue
		}
		if !f.Starting.Contains(l.DateFrom) || !f.Ending.Contains(l.DateTo) {
			continue
		}
		result = append(result, l)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DateFrom.Before(result[j].DateFrom)
	})
	return result, nil
}

func (s *memoryState) FindActiveContract(_ context.Context, employeeID generic.EntityID, asOf generic.TimePoint) (*generic.Contract, error) {
	for i := len(s.contracts) - 1; i >= 0; i-- {
		c := s.contracts[i]
		if c.EmployeeID == employeeID && c.ActiveOn(asOf) {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memoryState) FindMunicipalityRate(_ context.Context, id generic.RecordID) (*generic.MunicipalityRate, error) {
	r, ok := s.municipalities[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memoryState) CountChildren(ctx context.Context, employeeID generic.EntityID) (int, error) {
	children, err := s.ListChildren(ctx, employeeID)
	return len(children), err
}

func (s *memoryState) ListChildren(_ context.Context, employeeID generic.EntityID) ([]generic.Child, error) {
	var result []generic.Child
	for _, c := range s.children {
		if c.EmployeeID == employeeID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *memoryState) FindEmployee(_ context.Context, id generic.EntityID) (generic.Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrNotFound
	}
	return e, nil
}

func (s *memoryState) ListActiveEmployees(_ context.Context) ([]generic.Employee, error) {
	var result []generic.Employee
	for _, e := range s.employees {
		if e.Active {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *memoryState) GetOvertimeEntry(_ context.Context, id generic.RecordID) (generic.OvertimeEntry, error) {
	e, ok := s.overtime[id]
	if !ok {
		return generic.OvertimeEntry{}, generic.ErrNotFound
	}
	return e, nil
}

func (s *memoryState) FindOvertime(_ context.Context, f generic.OvertimeFilter) ([]generic.OvertimeEntry, error) {
	var result []generic.OvertimeEntry
	for _, e := range s.overtime {
		if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
			continue
		}
		if f.ExcludeID != "" && e.ID == f.ExcludeID {
			continue
		}
		if len(f.States) > 0 && !containsState(f.States, e.State) {
			continue
		}
		if !f.Dated.Contains(e.Date) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (s *memoryState) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	var result []generic.AuditEntry
	for _, e := range s.audit {
		if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.RecordID != nil && e.RecordID != *f.RecordID {
			continue
		}
		if len(f.Actions) > 0 && !containsState(f.Actions, e.Action) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *memoryState) CreateTimeOffAllocation(_ context.Context, a generic.Allocation) error {
	if a.IdempotencyKey != "" && s.idempotency[a.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	s.allocations = append(s.allocations, a)
	if a.IdempotencyKey != "" {
		s.idempotency[a.IdempotencyKey] = true
	}
	return nil
}

func (s *memoryState) SaveLeave(_ context.Context, l generic.Leave) error {
	for i := range s.leaves {
		if s.leaves[i].ID == l.ID {
			s.leaves[i] = l
			return nil
		}
	}
	s.leaves = append(s.leaves, l)
	return nil
}

func (s *memoryState) SaveOvertimeEntry(_ context.Context, e generic.OvertimeEntry) error {
	s.overtime[e.ID] = e
	return nil
}

func (s *memoryState) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	s.audit = append(s.audit, e)
	return nil
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.municipalities {
		c.municipalities[k] = v
	}
	for k, v := range s.overtime {
		c.overtime[k] = v
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	c.allocations = append([]generic.Allocation{}, s.allocations...)
	c.leaves = append([]generic.Leave{}, s.leaves...)
	c.contracts = append([]generic.Contract{}, s.contracts...)
	c.children = append([]generic.Child{}, s.children...)
	c.audit = append([]generic.AuditEntry{}, s.audit...)
	return c
}

func containsState[T comparable](states []T, s T) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, fn works on a copy that replaces the state on success.
// The write lock is held throughout, so transactions are serialized.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	working := tm.state.clone()
	if err := fn(working); err != nil {
		return err
	}

	tm.state = working
	return nil
}
