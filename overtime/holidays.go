package overtime

import (
	"fmt"
	"time"

	"github.com/warp/entitlement-engine/generic"
)

// =============================================================================
// SWEDISH PUBLIC HOLIDAYS
// =============================================================================

// PublicHolidays is the calendar of Swedish public holidays (allmänna
// helgdagar) plus the eves treated as holidays in collective agreements
// (midsommarafton, julafton, nyårsafton). It applies to every company.
type PublicHolidays struct{}

var _ generic.HolidayCalendar = PublicHolidays{}

func (PublicHolidays) IsHoliday(_ string, date generic.TimePoint) bool {
	for _, h := range swedishHolidays(date.Year()) {
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (PublicHolidays) GetHolidays(_ string, year int) []generic.Holiday {
	return swedishHolidays(year)
}

func swedishHolidays(year int) []generic.Holiday {
	easter := EasterSunday(year)
	day := func(month time.Month, d int) generic.TimePoint { return generic.NewTimePoint(year, month, d) }

	holidays := []struct {
		name string
		date generic.TimePoint
	}{
		{"Nyårsdagen", day(time.January, 1)},
		{"Trettondedag jul", day(time.January, 6)},
		{"Långfredagen", easter.AddDays(-2)},
		{"Påskdagen", easter},
		{"Annandag påsk", easter.AddDays(1)},
		{"Första maj", day(time.May, 1)},
		{"Kristi himmelsfärdsdag", easter.AddDays(39)},
		{"Pingstdagen", easter.AddDays(49)},
		{"Sveriges nationaldag", day(time.June, 6)},
		{"Midsommarafton", firstWeekdayFrom(day(time.June, 19), time.Friday)},
		{"Midsommardagen", firstWeekdayFrom(day(time.June, 20), time.Saturday)},
		{"Alla helgons dag", firstWeekdayFrom(day(time.October, 31), time.Saturday)},
		{"Julafton", day(time.December, 24)},
		{"Juldagen", day(time.December, 25)},
		{"Annandag jul", day(time.December, 26)},
		{"Nyårsafton", day(time.December, 31)},
	}

	result := make([]generic.Holiday, 0, len(holidays))
	for _, h := range holidays {
		result = append(result, generic.Holiday{
			ID:   fmt.Sprintf("se-%s", h.date),
			Date: h.date,
			Name: h.name,
		})
	}
	return result
}

// EasterSunday computes the Gregorian Easter date (anonymous algorithm).
func EasterSunday(year int) generic.TimePoint {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return generic.NewTimePoint(year, time.Month(month), day)
}

func firstWeekdayFrom(from generic.TimePoint, weekday time.Weekday) generic.TimePoint {
	offset := (int(weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDays(offset)
}
