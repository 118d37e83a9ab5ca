/*
errors.go - Centralized error types for the entitlement engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these sentinels, usually wrapped in a RuleViolation
  that carries the human-readable message shown to the user.

ERROR CATEGORIES:
  1. Identity errors - Personnummer format, checksum, date, age range
  2. Rule violations - Blocking constraint failures scoped to one record
  3. Lookup errors - Reference data (leave types, rates) not configured
  4. Store errors - Missing records, idempotency conflicts

USAGE:
  if errors.Is(err, generic.ErrMonthlyLimitExceeded) {
      // suggest emergency overtime
  }

  var v *generic.RuleViolation
  if errors.As(err, &v) {
      fmt.Println(v.Message)
  }

SEE ALSO:
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Identity number validation, checked in this order.
	ErrIdentityFormat   = errors.New("identity number must contain 10 or 12 digits")
	ErrIdentityChecksum = errors.New("identity number checksum mismatch")
	ErrIdentityDate     = errors.New("identity number does not encode a valid birth date")
	ErrIdentityAgeRange = errors.New("identity number age out of range")

	ErrInsufficientVacationBalance = errors.New("insufficient vacation balance")
	ErrVacationYearMismatch        = errors.New("vacation year tag does not match effective date")

	ErrMissingCertificate = errors.New("doctor certificate required")
	ErrReportNotDue       = errors.New("agency report not due during employer liability period")

	ErrInvalidTimeRange     = errors.New("time must be between 0 and 24")
	ErrMonthlyLimitExceeded = errors.New("monthly overtime limit exceeded")
	ErrYearlyLimitExceeded  = errors.New("yearly overtime limit exceeded")

	ErrPaternityLimitExceeded = errors.New("paternity leave limit exceeded")
	ErrInvalidBenefitTier     = errors.New("invalid parental benefit percentage")

	// ErrLookupNotConfigured is returned when a required reference record
	// (leave type, municipality rate) is absent.
	ErrLookupNotConfigured = errors.New("lookup not configured")

	ErrInvalidTransition       = errors.New("invalid state transition")
	ErrRejectionReasonRequired = errors.New("rejection reason required")

	// ErrDuplicateIdempotencyKey is returned when a record with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleViolation is a blocking constraint failure on a single record. It
// unwraps to one of the sentinels above.
type RuleViolation struct {
	Rule    error  // sentinel
	Field   string // offending field, if any
	Message string // human-readable, names the violated rule
}

func (e *RuleViolation) Error() string {
	if e.Message == "" {
		return e.Rule.Error()
	}
	return e.Message
}

func (e *RuleViolation) Unwrap() error {
	return e.Rule
}

// Violation builds a RuleViolation with a formatted message.
func Violation(rule error, format string, args ...any) *RuleViolation {
	return &RuleViolation{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError provides details about a vacation balance shortage.
type InsufficientBalanceError struct {
	EmployeeID EntityID
	Year       string
	Available  Amount
	Requested  Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient vacation balance for %s in %s: available %v, requested %v",
		e.EmployeeID, e.Year, e.Available.Value, e.Requested.Value)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientVacationBalance
}

// LimitExceededError provides details about an overtime cap violation.
type LimitExceededError struct {
	Limit    error // ErrMonthlyLimitExceeded or ErrYearlyLimitExceeded
	Cap      Amount
	Existing Amount
	Adding   Amount
}

func (e *LimitExceededError) Error() string {
	scope := "Monthly"
	if errors.Is(e.Limit, ErrYearlyLimitExceeded) {
		scope = "Yearly"
	}
	return fmt.Sprintf("%s overtime limit (%s hours) would be exceeded: %s already approved, %s requested. "+
		"Use emergency overtime if this is an exceptional situation.",
		scope, e.Cap.Value, e.Existing.Value, e.Adding.Value)
}

func (e *LimitExceededError) Unwrap() error {
	return e.Limit
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRuleViolation returns true if the error is a blocking constraint failure
// caused by the record being evaluated.
func IsRuleViolation(err error) bool {
	for _, rule := range []error{
		ErrIdentityFormat, ErrIdentityChecksum, ErrIdentityDate, ErrIdentityAgeRange,
		ErrInsufficientVacationBalance, ErrVacationYearMismatch,
		ErrMissingCertificate, ErrReportNotDue,
		ErrInvalidTimeRange, ErrMonthlyLimitExceeded, ErrYearlyLimitExceeded,
		ErrPaternityLimitExceeded, ErrInvalidBenefitTier,
		ErrInvalidTransition, ErrRejectionReasonRequired,
	} {
		if errors.Is(err, rule) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotConfigured returns true if reference data is missing.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrLookupNotConfigured)
}
