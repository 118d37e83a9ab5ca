package generic

// =============================================================================
// ACCRUAL SCHEDULE - Interface for how entitlements accumulate
// =============================================================================

// AccrualSchedule generates accrual events for a time range.
// Implementations define the business logic (statutory monthly, upfront...).
type AccrualSchedule interface {
	// GenerateAccruals returns accrual events in [from, to].
	GenerateAccruals(from, to TimePoint) []AccrualEvent

	// IsDeterministic returns true if future accruals can be predicted.
	IsDeterministic() bool
}

// AccrualEvent represents a single accrual occurrence.
type AccrualEvent struct {
	At     TimePoint
	Amount Amount
	Reason string
}

// TotalAccrued sums the events of a schedule over [from, to].
func TotalAccrued(s AccrualSchedule, from, to TimePoint, unit Unit) Amount {
	total := NewAmountFromInt(0, unit)
	for _, e := range s.GenerateAccruals(from, to) {
		total = total.Add(e.Amount)
	}
	return total
}
