package vacation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/warp/entitlement-engine/generic"
)

// =============================================================================
// ANNUAL ALLOCATION BATCH
// =============================================================================

// AllocationRun is the outcome of one annual allocation batch.
type AllocationRun struct {
	Year    Year
	Created []generic.Allocation
	Skipped []generic.EntityID // already allocated for this year
}

// Allocator grants the yearly vacation entitlement. Scheduling (once a year
// on April 1) is left to the caller.
type Allocator struct {
	store  generic.TxStore
	refs   generic.LeaveTypeRefs
	policy Policy
	logger *slog.Logger
}

func NewAllocator(store generic.TxStore, refs generic.LeaveTypeRefs, policy Policy, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{store: store, refs: refs, policy: policy, logger: logger}
}

// AllocateAnnualVacation creates one pending-confirmation allocation per active
// employee, dated at the start of the vacation year containing asOf. Each
// (employee, year) pair is allocated at most once, so reruns are safe.
func (a *Allocator) AllocateAnnualVacation(ctx context.Context, asOf generic.TimePoint) (AllocationRun, error) {
	year := YearOf(asOf)
	run := AllocationRun{Year: year}

	if a.refs.Vacation == nil {
		return run, generic.Violation(generic.ErrLookupNotConfigured, "Swedish vacation leave type is not configured.")
	}

	err := a.store.WithTx(ctx, func(s generic.Store) error {
		run.Created, run.Skipped = nil, nil

		employees, err := s.ListActiveEmployees(ctx)
		if err != nil {
			return fmt.Errorf("list active employees: %w", err)
		}

		for _, emp := range employees {
			alloc := a.annualAllocation(emp, year, asOf)
			err := s.CreateTimeOffAllocation(ctx, alloc)
			if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
				run.Skipped = append(run.Skipped, emp.ID)
				continue
			}
			if err != nil {
				return fmt.Errorf("allocate vacation for %s: %w", emp.ID, err)
			}

			if err := s.AppendAudit(ctx, generic.AuditEntry{
				ID:         uuid.New().String(),
				Timestamp:  asOf,
				ActorID:    "system",
				Action:     generic.AuditAllocationCreated,
				EmployeeID: emp.ID,
				RecordID:   alloc.ID,
				Payload: map[string]any{
					"days":          alloc.Days.Value.String(),
					"vacation_year": year.String(),
				},
			}); err != nil {
				return fmt.Errorf("audit allocation: %w", err)
			}
			run.Created = append(run.Created, alloc)
		}
		return nil
	})
	if err != nil {
		return AllocationRun{Year: year}, err
	}

	a.logger.InfoContext(ctx, "annual vacation allocated",
		slog.String("vacation_year", year.String()),
		slog.Int("created", len(run.Created)),
		slog.Int("skipped", len(run.Skipped)),
	)
	return run, nil
}

func (a *Allocator) annualAllocation(emp generic.Employee, year Year, asOf generic.TimePoint) generic.Allocation {
	days := emp.VacationDays
	if !days.IsPositive() {
		days = generic.NewAmountFromDecimal(a.policy.AnnualDays, generic.UnitDays)
	}
	return generic.Allocation{
		ID:             generic.RecordID(uuid.New().String()),
		EmployeeID:     emp.ID,
		LeaveTypeID:    *a.refs.Vacation,
		Name:           "Swedish vacation " + year.String(),
		Days:           days,
		EffectiveDate:  year.Period().Start,
		State:          generic.AllocationConfirm,
		VacationYear:   year.String(),
		IdempotencyKey: AnnualKey(emp.ID, year),
		CreatedAt:      asOf,
	}
}

// AnnualKey is the idempotency key of an employee's annual allocation.
func AnnualKey(employeeID generic.EntityID, year Year) string {
	return fmt.Sprintf("vacation-annual-%s-%d", employeeID, year.StartYear)
}
