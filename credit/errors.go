/*
errors.go - Centralized error types for the credit domain

ERROR CATEGORIES:
  1. Configuration errors - unknown amortization method or collection type.
     Fatal for the operation; never retried, no partial persistence.
  2. Not-found errors - referenced credit/installment does not exist.
  3. Data inconsistency - duplicate rows where exactly one was expected.
     Indicates upstream corruption; surfaced immediately, never resolved
     silently.

USAGE:
  Callers classify with errors.Is / errors.As:

    if errors.Is(err, credit.ErrUnknownCollectionType) { ... }

SEE ALSO:
  - schedule.go: raises duplicate/unknown-method errors
  - engine package: raises unknown-collection-type errors
*/
package credit

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownMethod is returned when a credit carries an amortization
	// method the schedule generator does not implement.
	ErrUnknownMethod = errors.New("unknown amortization method")

	// ErrUnknownCollectionType is returned when a collection tag is not in
	// the configured type catalog or is not valid for the operation.
	ErrUnknownCollectionType = errors.New("unknown collection type")

	// ErrCreditNotFound is returned when a referenced credit doesn't exist.
	ErrCreditNotFound = errors.New("credit not found")

	// ErrInstallmentNotFound is returned when a referenced installment
	// doesn't exist.
	ErrInstallmentNotFound = errors.New("installment not found")

	// ErrDuplicateInstallment is returned when more than one stored row
	// exists for a (credit, number) pair. Exactly one is expected.
	ErrDuplicateInstallment = errors.New("duplicate installment rows")

	// ErrNoEligibleCredits is returned when a payer-level collection finds
	// no credit disbursed on or before the reference date.
	ErrNoEligibleCredits = errors.New("no eligible credits for payer")

	// ErrInvalidAmount is returned when a payment amount is negative.
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending identifiers
// =============================================================================

// UnknownMethodError reports which credit carried the unsupported method.
type UnknownMethodError struct {
	CreditID CreditID
	Method   AmortizationMethod
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("credit %d: amortization method %q not implemented", e.CreditID, e.Method)
}

func (e *UnknownMethodError) Unwrap() error { return ErrUnknownMethod }

// UnknownCollectionTypeError reports the unsupported collection tag.
type UnknownCollectionTypeError struct {
	Type CollectionType
}

func (e *UnknownCollectionTypeError) Error() string {
	return fmt.Sprintf("%q is not a valid collection type", e.Type)
}

func (e *UnknownCollectionTypeError) Unwrap() error { return ErrUnknownCollectionType }

// DuplicateInstallmentError reports a (credit, number) pair with multiple
// stored rows.
type DuplicateInstallmentError struct {
	CreditID CreditID
	Number   int
	Count    int
}

func (e *DuplicateInstallmentError) Error() string {
	return fmt.Sprintf("installment %d for credit %d: found %d rows, expected one", e.Number, e.CreditID, e.Count)
}

func (e *DuplicateInstallmentError) Unwrap() error { return ErrDuplicateInstallment }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownCollectionType) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCreditNotFound) ||
		errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrNoEligibleCredits)
}

// IsDataInconsistency returns true if the error indicates corrupted storage.
func IsDataInconsistency(err error) bool {
	return errors.Is(err, ErrDuplicateInstallment)
}
