package expectation

import (
	"errors"
	"fmt"
)

// ErrNotCallable is matched by NotCallableError
var ErrNotCallable = errors.New("expectation requires a callable statement")

// StaleStateError reports fewer affected rows than expected: the target row was modified or removed elsewhere
type StaleStateError struct {
	Expected int64
	Actual   int64
	SQL      string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("unexpected row count: actual %d, expected %d; statement executed: %s", e.Actual, e.Expected, e.SQL)
}

// TooManyRowsError reports more affected rows than expected
type TooManyRowsError struct {
	Expected int64
	Actual   int64
	SQL      string
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("too many rows affected: actual %d, expected %d; statement executed: %s", e.Actual, e.Expected, e.SQL)
}

// BatchFailedError reports a failed statement at a batch position
type BatchFailedError struct {
	Position int
	SQL      string
}

func (e *BatchFailedError) Error() string {
	return fmt.Sprintf("batch update failed at position %d: %s", e.Position, e.SQL)
}

// NotCallableError is returned when an out-parameter expectation is given a plain statement
type NotCallableError struct {
	SQL string
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("expected a callable statement: %s", e.SQL)
}

func (e *NotCallableError) Is(target error) bool {
	return target == ErrNotCallable
}

// OutParameterReadError wraps a failure to read the row count out parameter
type OutParameterReadError struct {
	SQL string
	Err error
}

func (e *OutParameterReadError) Error() string {
	return fmt.Sprintf("could not read row count out parameter of %s: %v", e.SQL, e.Err)
}

func (e *OutParameterReadError) Unwrap() error {
	return e.Err
}

// UnknownStyleError reports an unsupported result check style
type UnknownStyleError struct {
	Style string
}

func (e *UnknownStyleError) Error() string {
	return fmt.Sprintf("unknown result check style %q", e.Style)
}

func IsStaleState(err error) bool {
	var target *StaleStateError
	return errors.As(err, &target)
}

func IsTooManyRows(err error) bool {
	var target *TooManyRowsError
	return errors.As(err, &target)
}

func IsBatchFailed(err error) bool {
	var target *BatchFailedError
	return errors.As(err, &target)
}
