package core

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

var (
	ErrInvalidKind        = invalid("type", "type must be income or expense")
	ErrEmptyName          = invalid("name", "name is required")
	ErrInvalidDate        = invalid("date", "date must be a valid YYYY-MM-DD calendar date")
	ErrInvalidAmount      = invalid("amount", "amount must be a decimal number below 100000000")
	ErrInvalidRate        = invalid("savings_rate", "savings_rate must be a decimal number")
	ErrInvalidInstallment = invalid("current_installment", "current_installment must be between 1 and total_installments")
	ErrLoneInstallment    = invalid("current_installment", "current_installment requires total_installments")
)

// ValidationError describes a rejected input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// Invalid builds a ValidationError for callers outside core.
func Invalid(field, msg string) error {
	return invalid(field, msg)
}
