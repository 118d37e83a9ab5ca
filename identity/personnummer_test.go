package identity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/identity"
)

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

var ref = date(2025, time.June, 1)

func TestValidate_CanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"short with hyphen", "811218-9876", "19811218-9876"},
		{"short digits only", "8112189876", "19811218-9876"},
		{"long with hyphen", "19811218-9876", "19811218-9876"},
		{"long digits only", "198112189876", "19811218-9876"},
		{"spaces and noise", " 811 218 98 76 ", "19811218-9876"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := identity.Validate(tt.raw, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
			assert.Equal(t, "811218-9876", n.Short())
			assert.Equal(t, 43, n.Age)
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"too short", "12345", generic.ErrIdentityFormat},
		{"eleven digits", "81121898761", generic.ErrIdentityFormat},
		{"empty", "", generic.ErrIdentityFormat},
		{"bad control digit", "811218-9875", generic.ErrIdentityChecksum},
		{"february 30th", "900230-1233", generic.ErrIdentityDate},
		{"fixed century makes 1912 too old", "121212-1212", generic.ErrIdentityAgeRange},
		{"twelve digit child", "20121212-1212", generic.ErrIdentityAgeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := identity.Validate(tt.raw, ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var v *generic.RuleViolation
			require.ErrorAs(t, err, &v)
			assert.NotEmpty(t, v.Message)
		})
	}
}

func TestValidate_AgeBoundaries(t *testing.T) {
	// GIVEN: born 1949-12-31 (age 75 until the end of 2025)
	// WHEN: validated on 2025-12-30 and 2026-01-01
	// THEN: 75 is accepted, 76 is rejected
	_, err := identity.Validate("491231-1232", date(2025, time.December, 30))
	assert.NoError(t, err)

	_, err = identity.Validate("491231-1232", date(2026, time.January, 1))
	assert.ErrorIs(t, err, generic.ErrIdentityAgeRange)

	// GIVEN: born 2010-01-01
	// THEN: 15 on 2025-01-01 is accepted, 14 the day before is rejected
	_, err = identity.Validate("20100101-1236", date(2025, time.January, 1))
	assert.NoError(t, err)

	_, err = identity.Validate("20100101-1236", date(2024, time.December, 31))
	assert.ErrorIs(t, err, generic.ErrIdentityAgeRange)
}

func TestValidate_SingleDigitMutationFailsChecksum(t *testing.T) {
	// GIVEN: a valid number
	// WHEN: any single digit is replaced by a different digit
	// THEN: the checksum no longer matches
	valid := "8112189876"
	for pos := 0; pos < len(valid); pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if valid[pos] == d {
				continue
			}
			mutated := valid[:pos] + string(d) + valid[pos+1:]
			_, err := identity.Validate(mutated, ref)
			assert.ErrorIs(t, err, generic.ErrIdentityChecksum, "mutation %s", mutated)
		}
	}
}

func TestValidator_CenturyFromReference(t *testing.T) {
	v := identity.ChildValidator()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"past date stays in 2000s", "101010-1234", "20101010-1234"},
		{"future date falls back to 1900s", "640823-3234", "19640823-3234"},
		{"plus separator means centenarian", "190101+1237", "19190101-1237"},
		{"twelve digits ignore the rule", "19101010-1234", "19101010-1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := v.Validate(tt.raw, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, 6, identity.CheckDigit("811218987"))
	assert.Equal(t, 2, identity.CheckDigit("121212121"))
}

func TestAgeAt(t *testing.T) {
	birth := date(1990, time.June, 15)
	assert.Equal(t, 34, identity.AgeAt(birth, date(2025, time.June, 14)))
	assert.Equal(t, 35, identity.AgeAt(birth, date(2025, time.June, 15)))
}
