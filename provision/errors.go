/*
errors.go - Centralized error types for the provisioning engine

ERROR CATEGORIES:
  1. Input validation - rejected before any mutation begins
  2. Business-rule violations - domain errors with display-quality context
  3. Storage/commit failures - wrapped infrastructure errors

Because every multi-entity mutation commits through one atomic batch, a
storage failure guarantees no partial ledger state exists.
*/
package provision

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput covers malformed identifiers, non-positive amounts and
	// missing required fields. Raised before any mutation begins.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance is returned when a payment selection exceeds the
	// concept's balance at commit time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPeriodOrder is returned when a new salary period does not start
	// strictly after the open period's start plus one month.
	ErrPeriodOrder = errors.New("salary period out of order")

	// ErrPeriodNotDeletable is returned when deleting the hire period or any
	// period that is not the most recent one.
	ErrPeriodNotDeletable = errors.New("salary period cannot be deleted")

	ErrEmployeeNotFound = errors.New("employee not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrPeriodNotFound   = errors.New("salary period not found")
	ErrPaymentNotFound  = errors.New("payment not found")

	// ErrHireDateInFuture is returned when creating an employee whose
	// employment starts after the current month.
	ErrHireDateInFuture = errors.New("employment start date is in the future")
)

// =============================================================================
// STRUCTURED ERRORS - Carry context for precise caller messages
// =============================================================================

// InsufficientBalanceError reports a settlement amount above the available
// concept balance.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Concept    Concept
	Available  Money
	Requested  Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: available %s, requested %s",
		e.Concept, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// PeriodOrderError reports a salary period that would break the ordering
// invariant. Minimum is the earliest acceptable effective month.
type PeriodOrderError struct {
	EmployeeID EmployeeID
	Effective  Month
	Minimum    Month
}

func (e *PeriodOrderError) Error() string {
	return fmt.Sprintf("salary effective month %s must be %s or later", e.Effective, e.Minimum)
}

func (e *PeriodOrderError) Unwrap() error { return ErrPeriodOrder }

// PeriodDeleteError reports why a salary period cannot be removed.
type PeriodDeleteError struct {
	EmployeeID EmployeeID
	PeriodID   PeriodID
	Reason     string // "earliest" or "not latest"
}

func (e *PeriodDeleteError) Error() string {
	if e.Reason == "earliest" {
		return "the initial salary period cannot be deleted"
	}
	return "only the most recent salary period can be deleted"
}

func (e *PeriodDeleteError) Unwrap() error { return ErrPeriodNotDeletable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is caused by invalid caller input
// or a business-rule violation, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPeriodOrder) ||
		errors.Is(err, ErrPeriodNotDeletable) ||
		errors.Is(err, ErrHireDateInFuture)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}
