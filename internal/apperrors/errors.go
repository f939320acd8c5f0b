package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the acting user is not allowed to perform the operation,
// typically because they are not the owner of the record.
var ErrForbidden = errors.New("operation not permitted for this user")

// ErrInvalidStateTransition indicates an operation was attempted from a status
// that does not permit it. The transition tables in core/domain decide this.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrInsufficientBudget indicates a ledger check rejected an amount. Callers that
// need the computed remaining amount should errors.As into InsufficientBudgetError.
var ErrInsufficientBudget = errors.New("insufficient budget")

// InsufficientBudgetError carries the category and the remaining balance computed
// at check time so callers can report the rejection precisely.
type InsufficientBudgetError struct {
	Category  string // budget item label, empty when the project total was exceeded
	Remaining decimal.Decimal
}

func (e *InsufficientBudgetError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("insufficient budget: project remaining %s", e.Remaining.String())
	}
	return fmt.Sprintf("insufficient budget: category %s remaining %s", e.Category, e.Remaining.String())
}

func (e *InsufficientBudgetError) Unwrap() error {
	return ErrInsufficientBudget
}

// NewInsufficientBudgetError builds the typed rejection for a failed ledger check.
func NewInsufficientBudgetError(category string, remaining decimal.Decimal) *InsufficientBudgetError {
	return &InsufficientBudgetError{Category: category, Remaining: remaining}
}

// AppError wraps lower-level failures (storage, connectivity) with an HTTP-ish
// code and a stable message. These are fatal to the single operation.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
