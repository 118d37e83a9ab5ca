package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/generic/store"
)

func date(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

func TestMemory_FindLeaves(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	for _, l := range []generic.Leave{
		{ID: "l-2", EmployeeID: "emp-1", LeaveTypeID: "vac", State: generic.LeaveValidated,
			DateFrom: date(2024, time.July, 1), DateTo: date(2024, time.July, 5)},
		{ID: "l-1", EmployeeID: "emp-1", LeaveTypeID: "vac", State: generic.LeavePendingSecondValidation,
			DateFrom: date(2024, time.May, 2), DateTo: date(2024, time.May, 3)},
		{ID: "l-3", EmployeeID: "emp-1", LeaveTypeID: "vac", State: generic.LeaveRefused,
			DateFrom: date(2024, time.June, 1), DateTo: date(2024, time.June, 1)},
		{ID: "l-4", EmployeeID: "emp-2", LeaveTypeID: "vac", State: generic.LeaveValidated,
			DateFrom: date(2024, time.June, 1), DateTo: date(2024, time.June, 1)},
	} {
		require.NoError(t, s.SaveLeave(ctx, l))
	}

	t.Run("counted states ordered by start", func(t *testing.T) {
		got, err := s.FindLeaves(ctx, generic.LeaveFilter{EmployeeID: "emp-1", States: generic.CountedLeaveStates})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, generic.RecordID("l-1"), got[0].ID)
		assert.Equal(t, generic.RecordID("l-2"), got[1].ID)
	})

	t.Run("starting window and exclusion", func(t *testing.T) {
		got, err := s.FindLeaves(ctx, generic.LeaveFilter{
			EmployeeID: "emp-1",
			Starting:   generic.DateRange{From: date(2024, time.June, 1)},
			ExcludeID:  "l-3",
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, generic.RecordID("l-2"), got[0].ID)
	})

	t.Run("save replaces by id", func(t *testing.T) {
		require.NoError(t, s.SaveLeave(ctx, generic.Leave{
			ID: "l-3", EmployeeID: "emp-1", LeaveTypeID: "vac", State: generic.LeaveValidated,
			DateFrom: date(2024, time.June, 1), DateTo: date(2024, time.June, 1),
		}))
		got, err := s.FindLeaves(ctx, generic.LeaveFilter{EmployeeID: "emp-1", States: generic.CountedLeaveStates})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestMemory_IdempotentAllocations(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alloc := generic.Allocation{
		ID: "a-1", EmployeeID: "emp-1", LeaveTypeID: "vac", Days: generic.Days(25),
		EffectiveDate: date(2024, time.April, 1), State: generic.AllocationValidated,
		IdempotencyKey: "vacation-annual-emp-1-2024",
	}

	require.NoError(t, s.CreateTimeOffAllocation(ctx, alloc))
	alloc.ID = "a-2"
	err := s.CreateTimeOffAllocation(ctx, alloc)

	assert.True(t, errors.Is(err, generic.ErrDuplicateIdempotencyKey))
	got, err := s.FindAllocations(ctx, generic.AllocationFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemory_ActiveContractAndLookups(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SaveContract(ctx, generic.Contract{
		ID: "c-1", EmployeeID: "emp-1", WageType: generic.WageMonthly,
		Start: date(2020, time.January, 1), End: date(2023, time.December, 31),
	}))
	require.NoError(t, s.SaveContract(ctx, generic.Contract{
		ID: "c-2", EmployeeID: "emp-1", WageType: generic.WageHourly, Start: date(2024, time.January, 1),
	}))

	c, err := s.FindActiveContract(ctx, "emp-1", date(2023, time.June, 1))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, generic.RecordID("c-1"), c.ID)

	c, err = s.FindActiveContract(ctx, "emp-1", date(2024, time.June, 1))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, generic.RecordID("c-2"), c.ID)

	c, err = s.FindActiveContract(ctx, "emp-1", date(2019, time.June, 1))
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = s.FindEmployee(ctx, "nobody")
	assert.True(t, generic.IsNotFound(err))

	rate, err := s.FindMunicipalityRate(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestTxMemory_WithTx(t *testing.T) {
	ctx := context.Background()
	s := store.NewTxMemory()
	entry := generic.OvertimeEntry{ID: "ot-1", EmployeeID: "emp-1", State: generic.OvertimeDraft}

	t.Run("rollback on error", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx generic.Store) error {
			require.NoError(t, tx.SaveOvertimeEntry(ctx, entry))
			require.NoError(t, tx.SaveLeave(ctx, generic.Leave{ID: "l-1", EmployeeID: "emp-1"}))
			return errors.New("boom")
		})
		require.Error(t, err)

		_, err = s.GetOvertimeEntry(ctx, "ot-1")
		assert.True(t, generic.IsNotFound(err))
		leaves, err := s.FindLeaves(ctx, generic.LeaveFilter{EmployeeID: "emp-1"})
		require.NoError(t, err)
		assert.Empty(t, leaves)
	})

	t.Run("commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx generic.Store) error {
			return tx.SaveOvertimeEntry(ctx, entry)
		})
		require.NoError(t, err)

		got, err := s.GetOvertimeEntry(ctx, "ot-1")
		require.NoError(t, err)
		assert.Equal(t, generic.OvertimeDraft, got.State)
	})
}
