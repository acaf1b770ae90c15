package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports a rejected input. It is always raised before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError names the product whose stock cannot cover a debit.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (%s): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// StoreMismatchError reports a line that belongs to a different store than
// the transaction.
type StoreMismatchError struct {
	ProductID uuid.UUID
	Expected  string
	Actual    string
}

func (e *StoreMismatchError) Error() string {
	return fmt.Sprintf("product %s belongs to store %q, transaction store is %q",
		e.ProductID, e.Actual, e.Expected)
}

// CounterCommitError reports that a receipt number could not be committed.
type CounterCommitError struct {
	Series string
	Err    error
}

func (e *CounterCommitError) Error() string {
	return fmt.Sprintf("failed to commit receipt counter %q: %v", e.Series, e.Err)
}

func (e *CounterCommitError) Unwrap() error {
	return e.Err
}
