/*
Package identity validates Swedish personal identity numbers (personnummer).

PURPOSE:
  Parses, validates and normalizes a personnummer. The validator is a pure
  function of its input and a reference date, usable both as a live-edit
  check and as a stored-value constraint.

VALIDATION ORDER:
  1. Format:   strip non-digits, accept 10 or 12 digits
  2. Checksum: Luhn over the 10-digit (century-stripped) form
  3. Date:     YYYYMMDD must be a calendar date
  4. Age:      whole years at the reference date within [MinAge, MaxAge]

  The first failing check decides the error.

CANONICAL FORM:
  YYYYMMDD-NNNN, e.g. "19811218-9876". This string is consumed by downstream
  reporting and must not change.

CENTURY:
  12-digit input carries its own century. For 10-digit input the Validator's
  CenturyRule decides:
    CenturyFixed19:       always 19xx (default)
    CenturyFromReference: 20xx unless that birth date is after the reference
                          date, then 19xx; a "+" separator (used by people aged
                          100 or more) moves the result back one century

USAGE:
  n, err := identity.Validate("811218-9876", generic.Today())
  if err != nil {
      // errors.Is(err, generic.ErrIdentityChecksum) ...
  }
  fmt.Println(n) // 19811218-9876
*/
package identity

import (
	"strings"
	"time"

	"github.com/warp/entitlement-engine/generic"
)

// CenturyRule decides the century of 10-digit numbers.
type CenturyRule string

const (
	CenturyFixed19       CenturyRule = "fixed19"
	CenturyFromReference CenturyRule = "reference"
)

const (
	DefaultMinAge = 15
	DefaultMaxAge = 75
)

// Validator holds the validation policy.
type Validator struct {
	Century CenturyRule
	MinAge  int
	MaxAge  int
}

// DefaultValidator validates employee numbers: fixed 19xx century, age 15-75.
func DefaultValidator() Validator {
	return Validator{Century: CenturyFixed19, MinAge: DefaultMinAge, MaxAge: DefaultMaxAge}
}

// ChildValidator validates children's numbers, where the employee age range
// does not apply and short forms are resolved against the reference date.
func ChildValidator() Validator {
	return Validator{Century: CenturyFromReference, MinAge: 0, MaxAge: 120}
}

// Number is a validated personnummer.
type Number struct {
	BirthDate generic.TimePoint
	Serial    string // last four digits, checksum digit included
	Age       int    // whole years at the reference date
}

// String returns the canonical YYYYMMDD-NNNN form.
func (n Number) String() string {
	return n.BirthDate.Time.Format("20060102") + "-" + n.Serial
}

// Short returns the 10-digit YYMMDD-NNNN form.
func (n Number) Short() string {
	return n.BirthDate.Time.Format("060102") + "-" + n.Serial
}

// Validate checks raw with the default validator.
func Validate(raw string, ref generic.TimePoint) (Number, error) {
	return DefaultValidator().Validate(raw, ref)
}

// Normalize returns the canonical form of raw, or the validation error.
func Normalize(raw string, ref generic.TimePoint) (string, error) {
	n, err := Validate(raw, ref)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// Validate parses raw and checks format, checksum, date and age, in that order.
func (v Validator) Validate(raw string, ref generic.TimePoint) (Number, error) {
	digits := digitsOnly(raw)

	var short, century string
	switch len(digits) {
	case 12:
		century, short = digits[:2], digits[2:]
	case 10:
		short = digits
	default:
		return Number{}, generic.Violation(generic.ErrIdentityFormat,
			"The personal identity number must contain 10 or 12 digits, got %d.", len(digits))
	}

	if !luhnValid(short) {
		return Number{}, generic.Violation(generic.ErrIdentityChecksum,
			"The personal identity number failed the Luhn algorithm check.")
	}

	year, month, day := atoi(short[0:2]), atoi(short[2:4]), atoi(short[4:6])
	if century != "" {
		year += atoi(century) * 100
	} else {
		year = v.resolveCentury(year, month, day, strings.Contains(raw, "+"), ref)
	}

	birth, ok := calendarDate(year, month, day)
	if !ok {
		return Number{}, generic.Violation(generic.ErrIdentityDate,
			"The personal identity number contains an invalid date: %04d-%02d-%02d.", year, month, day)
	}

	age := AgeAt(birth, ref)
	if age < v.MinAge || age > v.MaxAge {
		return Number{}, generic.Violation(generic.ErrIdentityAgeRange,
			"The age %d is outside the allowed range (%d-%d years).", age, v.MinAge, v.MaxAge)
	}

	return Number{BirthDate: birth, Serial: short[6:], Age: age}, nil
}

func (v Validator) resolveCentury(yy, month, day int, centenarian bool, ref generic.TimePoint) int {
	if v.Century != CenturyFromReference {
		return 1900 + yy
	}
	year := 2000 + yy
	if birth, ok := calendarDate(year, month, day); !ok || birth.After(ref) {
		year = 1900 + yy
	}
	if centenarian {
		year -= 100
	}
	return year
}

// AgeAt returns the age in whole years on ref.
func AgeAt(birth, ref generic.TimePoint) int {
	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}
	return age
}

// CheckDigit computes the Luhn control digit over nine digits.
func CheckDigit(nine string) int {
	sum := 0
	for i := 0; i < 9 && i < len(nine); i++ {
		d := int(nine[i] - '0')
		if i%2 == 0 {
			d *= 2
			if d >= 10 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

func luhnValid(ten string) bool {
	return CheckDigit(ten[:9]) == int(ten[9]-'0')
}

func calendarDate(year, month, day int) (generic.TimePoint, bool) {
	if month < 1 || month > 12 || day < 1 {
		return generic.TimePoint{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return generic.TimePoint{}, false
	}
	return generic.DateOf(t), true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
