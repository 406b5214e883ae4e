package models

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/goldenfork/ledger_backend/utils"
)

// ValidationError is rejected input: nothing was written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IntegrityConflictError is a unique-key clash (duplicate entry number,
// sub-account code collision). The caller must retry with a new identifier.
type IntegrityConflictError struct {
	Reason string
}

func (e *IntegrityConflictError) Error() string { return e.Reason }

// ReconciliationDriftError reports a journal/ledger mismatch found offline.
type ReconciliationDriftError struct {
	Mismatches    int
	ExtraInLedger int
}

func (e *ReconciliationDriftError) Error() string {
	return fmt.Sprintf("ledger drift: %d mismatched keys, %d extra ledger rows", e.Mismatches, e.ExtraInLedger)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, utils.ErrorRecordNotFound)
}

func IsIntegrityConflict(err error) bool {
	var ic *IntegrityConflictError
	return errors.As(err, &ic)
}

// wrapDuplicateKey converts MySQL duplicate-key errors (1062) into the
// IntegrityConflict kind so callers get a 409 instead of a bare 500.
func wrapDuplicateKey(err error, what string) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return &IntegrityConflictError{Reason: "duplicate " + what}
	}
	return err
}
