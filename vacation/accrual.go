package vacation

import (
	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
)

// MonthlyRate is the statutory accrual per full month of employment (25/12,
// rounded as the statute tables do).
var MonthlyRate = decimal.RequireFromString("2.08")

// StatutoryAccrual implements generic.AccrualSchedule for vacation earned at
// 2.08 days per full calendar month, capped at the annual entitlement.
//
// A month counts as full by day-of-month comparison: from 2025-01-15 to
// 2025-03-14 is (3-1) = 2 months; to 2025-03-15 it is 3, because the end
// date reaches the start's day-of-month.
type StatutoryAccrual struct {
	// Cap is the annual entitlement. Zero disables the cap.
	Cap decimal.Decimal
}

func (sa *StatutoryAccrual) GenerateAccruals(from, to generic.TimePoint) []generic.AccrualEvent {
	months := FullMonths(from, to)
	var events []generic.AccrualEvent
	total := decimal.Zero

	for i := 0; i < months; i++ {
		amount := MonthlyRate
		if sa.Cap.IsPositive() {
			room := sa.Cap.Sub(total)
			if !room.IsPositive() {
				break
			}
			amount = decimal.Min(amount, room)
		}
		total = total.Add(amount)
		events = append(events, generic.AccrualEvent{
			At:     from.AddMonths(i),
			Amount: generic.NewAmountFromDecimal(amount, generic.UnitDays),
			Reason: "statutory monthly accrual",
		})
	}
	return events
}

// IsDeterministic returns true - accrual depends only on the calendar.
func (sa *StatutoryAccrual) IsDeterministic() bool {
	return true
}

// FullMonths counts the months of [from, to] by the day-of-month rule.
func FullMonths(from, to generic.TimePoint) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() >= from.Day() {
		months++
	}
	return months
}
