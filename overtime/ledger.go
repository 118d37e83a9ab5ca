package overtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/warp/entitlement-engine/generic"
)

// =============================================================================
// LEDGER SERVICE - Overtime lifecycle with transactional guarantees
// =============================================================================

// transitions lists the states each state may move to.
var transitions = map[generic.OvertimeState][]generic.OvertimeState{
	generic.OvertimeDraft:     {generic.OvertimeSubmitted},
	generic.OvertimeSubmitted: {generic.OvertimeApproved, generic.OvertimeRejected},
	generic.OvertimeApproved:  {generic.OvertimePaid},
}

func canTransition(from, to generic.OvertimeState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Ledger struct {
	store    generic.TxStore
	holidays generic.HolidayCalendar
	refs     generic.LeaveTypeRefs
	policy   Policy
	logger   *slog.Logger
}

// NewLedger builds the overtime service. A nil calendar uses the Swedish
// public holidays; a nil logger uses slog.Default.
func NewLedger(store generic.TxStore, holidays generic.HolidayCalendar, refs generic.LeaveTypeRefs, policy Policy, logger *slog.Logger) *Ledger {
	if holidays == nil {
		holidays = PublicHolidays{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, holidays: holidays, refs: refs, policy: policy, logger: logger}
}

func (l *Ledger) calculator(q generic.ContractQuery) *Calculator {
	return NewCalculator(q, l.holidays, l.policy)
}

// Entry is an overtime entry together with its derived values.
type Entry struct {
	generic.OvertimeEntry
	Computation Computation
}

// Get loads an entry and computes its derived values.
func (l *Ledger) Get(ctx context.Context, id generic.RecordID) (Entry, error) {
	e, err := l.store.GetOvertimeEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	comp, err := l.calculator(l.store).Compute(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	return Entry{OvertimeEntry: e, Computation: comp}, nil
}

// Create validates and stores a new draft entry. Missing type and mode
// default to simple overtime paid in money.
func (l *Ledger) Create(ctx context.Context, entry generic.OvertimeEntry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = generic.RecordID(uuid.New().String())
	}
	if entry.Type == "" {
		entry.Type = generic.OvertimeSimple
	}
	if entry.Mode == "" {
		entry.Mode = generic.CompensationMoney
	}
	entry.State = generic.OvertimeDraft

	if err := ValidateTimes(entry.StartHour, entry.EndHour); err != nil {
		return Entry{}, err
	}

	// Holiday calendars may be backed by the store itself, so they are
	// consulted before the transaction opens.
	holiday := l.calculator(l.store).IsHoliday(entry)

	var comp Computation
	err := l.store.WithTx(ctx, func(s generic.Store) error {
		if err := CheckLimits(ctx, s, entry, l.policy); err != nil {
			return err
		}
		var err error
		if comp, err = l.calculator(s).ComputeOn(ctx, entry, holiday); err != nil {
			return err
		}
		return s.SaveOvertimeEntry(ctx, entry)
	})
	if err != nil {
		return Entry{}, err
	}
	return Entry{OvertimeEntry: entry, Computation: comp}, nil
}

// Submit moves a draft entry to submitted.
func (l *Ledger) Submit(ctx context.Context, id generic.RecordID, actor string, at generic.TimePoint) (Entry, error) {
	return l.transition(ctx, id, generic.OvertimeSubmitted, actor, at, generic.AuditOvertimeSubmitted, nil)
}

// Approve approves a submitted entry. Within the same transaction it rechecks
// the caps against committed entries and, for time or mixed compensation,
// grants the compensatory time off.
func (l *Ledger) Approve(ctx context.Context, id generic.RecordID, approver string, at generic.TimePoint) (Entry, error) {
	entry, err := l.transition(ctx, id, generic.OvertimeApproved, approver, at, generic.AuditOvertimeApproved,
		func(s generic.Store, e *generic.OvertimeEntry, comp Computation) error {
			if err := CheckLimits(ctx, s, *e, l.policy); err != nil {
				return err
			}
			e.ApprovedBy = approver
			e.ApprovedAt = at

			if e.Mode == generic.CompensationMoney || !comp.TimeHours.IsPositive() {
				return nil
			}
			grant := l.compensatoryGrant(*e, comp, at)
			err := s.CreateTimeOffAllocation(ctx, grant)
			if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("create compensatory allocation: %w", err)
			}
			e.AllocationID = grant.ID
			return nil
		})
	if err != nil {
		return Entry{}, err
	}

	l.logger.InfoContext(ctx, "overtime approved",
		slog.String("employee_id", string(entry.EmployeeID)),
		slog.String("entry_id", string(entry.ID)),
		slog.String("hours", entry.Computation.Duration.Value.String()),
		slog.String("time_hours", entry.Computation.TimeHours.Value.String()),
		slog.String("allocation_id", string(entry.AllocationID)),
	)
	return entry, nil
}

// Reject rejects a submitted entry. A reason is required.
func (l *Ledger) Reject(ctx context.Context, id generic.RecordID, actor, reason string, at generic.TimePoint) (Entry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Entry{}, &generic.RuleViolation{
			Rule:    generic.ErrRejectionReasonRequired,
			Field:   "rejection_reason",
			Message: "A rejection reason is required to reject overtime.",
		}
	}
	return l.transition(ctx, id, generic.OvertimeRejected, actor, at, generic.AuditOvertimeRejected,
		func(_ generic.Store, e *generic.OvertimeEntry, _ Computation) error {
			e.RejectionReason = reason
			return nil
		})
}

// MarkPaid closes an approved entry.
func (l *Ledger) MarkPaid(ctx context.Context, id generic.RecordID, actor string, at generic.TimePoint) (Entry, error) {
	return l.transition(ctx, id, generic.OvertimePaid, actor, at, generic.AuditOvertimePaid, nil)
}

// transition loads the entry inside a transaction, checks the state machine,
// applies the step-specific effect, saves the entry and writes the audit
// entry. Any failure rolls back everything.
func (l *Ledger) transition(
	ctx context.Context,
	id generic.RecordID,
	to generic.OvertimeState,
	actor string,
	at generic.TimePoint,
	action generic.AuditAction,
	effect func(s generic.Store, e *generic.OvertimeEntry, comp Computation) error,
) (Entry, error) {
	// Date and company never change after creation; see Create.
	current, err := l.store.GetOvertimeEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	holiday := l.calculator(l.store).IsHoliday(current)

	var result Entry
	err = l.store.WithTx(ctx, func(s generic.Store) error {
		e, err := s.GetOvertimeEntry(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(e.State, to) {
			return &generic.RuleViolation{
				Rule:    generic.ErrInvalidTransition,
				Field:   "state",
				Message: fmt.Sprintf("Overtime entry %s cannot move from %s to %s.", e.ID, e.State, to),
			}
		}

		comp, err := l.calculator(s).ComputeOn(ctx, e, holiday)
		if err != nil {
			return err
		}
		if effect != nil {
			if err := effect(s, &e, comp); err != nil {
				return err
			}
		}
		from := e.State
		e.State = to
		if err := s.SaveOvertimeEntry(ctx, e); err != nil {
			return fmt.Errorf("save overtime entry: %w", err)
		}

		payload := map[string]any{
			"from":  string(from),
			"to":    string(to),
			"hours": comp.Duration.Value.String(),
		}
		if e.RejectionReason != "" {
			payload["reason"] = e.RejectionReason
		}
		if e.AllocationID != "" {
			payload["allocation_id"] = string(e.AllocationID)
		}
		if err := s.AppendAudit(ctx, generic.AuditEntry{
			ID:         uuid.New().String(),
			Timestamp:  at,
			ActorID:    actor,
			Action:     action,
			EmployeeID: e.EmployeeID,
			RecordID:   e.ID,
			Payload:    payload,
		}); err != nil {
			return fmt.Errorf("audit overtime: %w", err)
		}

		result = Entry{OvertimeEntry: e, Computation: comp}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return result, nil
}

// compensatoryGrant converts the time compensation of an approved entry into
// a validated allocation on the overtime leave type.
func (l *Ledger) compensatoryGrant(e generic.OvertimeEntry, comp Computation, at generic.TimePoint) generic.Allocation {
	leaveType := generic.LeaveTypeID(generic.OvertimeTypeCode)
	if l.refs.Overtime != nil {
		leaveType = *l.refs.Overtime
	}
	return generic.Allocation{
		ID:             generic.RecordID(uuid.New().String()),
		EmployeeID:     e.EmployeeID,
		LeaveTypeID:    leaveType,
		TypeCode:       generic.OvertimeTypeCode,
		Name:           fmt.Sprintf("Overtime compensation for %s", e.Date),
		Days:           generic.NewAmountFromDecimal(comp.TimeHours.Value.Div(l.policy.HoursPerDay), generic.UnitDays),
		EffectiveDate:  at,
		State:          generic.AllocationValidated,
		IdempotencyKey: GrantKey(e.ID),
		SourceID:       e.ID,
		CreatedAt:      at,
	}
}

// GrantKey is the idempotency key of the compensatory grant of an entry.
func GrantKey(entryID generic.RecordID) string {
	return fmt.Sprintf("overtime-%s", entryID)
}

// =============================================================================
// STATISTICS
// =============================================================================

type Statistics struct {
	EmployeeID generic.EntityID
	Count      int
	Hours      generic.Amount
}

// Statistics counts the approved and paid overtime of an employee.
func (l *Ledger) Statistics(ctx context.Context, employeeID generic.EntityID) (Statistics, error) {
	entries, err := l.store.FindOvertime(ctx, generic.OvertimeFilter{
		EmployeeID: employeeID,
		States:     generic.CountedOvertimeStates,
	})
	if err != nil {
		return Statistics{}, fmt.Errorf("load overtime: %w", err)
	}
	stats := Statistics{EmployeeID: employeeID, Count: len(entries), Hours: zeroHours}
	for _, e := range entries {
		stats.Hours = stats.Hours.Add(Duration(e.StartHour, e.EndHour))
	}
	return stats, nil
}
