package counter

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered  = errors.New("counter structure has not registered its exportables")
	ErrNotInitialized = errors.New("counter structure SQL has not been initialized")
)

// MissingSeedRowError means the counter table exists but holds no row
type MissingSeedRowError struct {
	Table string
	SQL   string
}

func (e *MissingSeedRowError) Error() string {
	return fmt.Sprintf("could not read a hi value, you need to populate the table %s: %s", e.Table, e.SQL)
}

// StatementExecutionError wraps a store failure while running one protocol statement
type StatementExecutionError struct {
	SQL string
	Err error
}

func (e *StatementExecutionError) Error() string {
	return fmt.Sprintf("could not execute %q: %v", e.SQL, e.Err)
}

func (e *StatementExecutionError) Unwrap() error { return e.Err }

// LockAcquisitionError means the store refused or timed out the row lock
type LockAcquisitionError struct {
	SQL string
	Err error
}

func (e *LockAcquisitionError) Error() string {
	return fmt.Sprintf("could not acquire lock for %q: %v", e.SQL, e.Err)
}

func (e *LockAcquisitionError) Unwrap() error { return e.Err }

// IsMissingSeedRow checks if err is a MissingSeedRowError
func IsMissingSeedRow(err error) bool {
	var target *MissingSeedRowError
	return errors.As(err, &target)
}

// IsStatementExecution checks if err is a StatementExecutionError
func IsStatementExecution(err error) bool {
	var target *StatementExecutionError
	return errors.As(err, &target)
}

// IsLockAcquisition checks if err is a LockAcquisitionError
func IsLockAcquisition(err error) bool {
	var target *LockAcquisitionError
	return errors.As(err, &target)
}
