// Package expectation verifies that a mutation executed against the store had the outcome the caller declared
package expectation

import (
	"log"
)

// Batch outcome markers reported by drivers for a position inside a batch
const (
	// SuccessNoInfo means the statement succeeded but the driver could not report a row count
	SuccessNoInfo int64 = -2
	// ExecuteFailed means the statement at this batch position failed
	ExecuteFailed int64 = -3

	// NotBatched is passed as batch position for single statements
	NotBatched = -1
)

// ResultCheckStyle selects the expectation used for a mutation type
type ResultCheckStyle string

const (
	StyleNone  ResultCheckStyle = "none"
	StyleCount ResultCheckStyle = "count"
	StyleParam ResultCheckStyle = "param"
)

// Statement is anything that was executed against the store
type Statement interface {
	SQL() string
}

// Callable is a stored-procedure style invocation that reports its row count through an out parameter
type Callable interface {
	Statement
	RegisterOutParameter(position int) error
	OutParameter(position int) (int64, error)
}

// Expectation is the declared success criterion for a mutation
type Expectation interface {
	// VerifyOutcome checks the reported outcome; batchPosition is NotBatched for single statements
	VerifyOutcome(rowCount int64, stmt Statement, batchPosition int) error
	// Prepare registers whatever the expectation needs on the statement and returns the number of parameters it used
	Prepare(stmt Statement) (int, error)
	CanBeBatched() bool
	ExpectedRowCount() int64
}

// SQLText is a plain statement identified only by its SQL text
type SQLText string

// SQL returns the statement text
func (s SQLText) SQL() string { return string(s) }

// None accepts every outcome
type None struct{}

func (None) VerifyOutcome(int64, Statement, int) error { return nil }
func (None) Prepare(Statement) (int, error)            { return 0, nil }
func (None) CanBeBatched() bool                        { return true }
func (None) ExpectedRowCount() int64                   { return 0 }

// RowCount expects an exact number of affected rows
type RowCount struct {
	Expected int64
	Logger   *log.Logger
}

// NewRowCount creates a row count expectation
func NewRowCount(expected int64) *RowCount {
	return &RowCount{Expected: expected}
}

// VerifyOutcome applies the single-statement or batched rules depending on batchPosition
func (e *RowCount) VerifyOutcome(rowCount int64, stmt Statement, batchPosition int) error {
	if batchPosition < 0 {
		return checkNonBatched(e.Expected, rowCount, sqlOf(stmt))
	}
	return e.checkBatched(rowCount, batchPosition, sqlOf(stmt))
}

func (e *RowCount) checkBatched(rowCount int64, batchPosition int, sql string) error {
	switch rowCount {
	case ExecuteFailed:
		return &BatchFailedError{Position: batchPosition, SQL: sql}
	case SuccessNoInfo:
		e.logger().Printf("expectation: success of batch update unknown at position %d: %s", batchPosition, sql)
		return nil
	}
	return checkNonBatched(e.Expected, rowCount, sql)
}

func (e *RowCount) Prepare(Statement) (int, error) { return 0, nil }
func (e *RowCount) CanBeBatched() bool             { return true }
func (e *RowCount) ExpectedRowCount() int64        { return e.Expected }

func (e *RowCount) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// OutParameter reads the affected row count from the first out parameter of a callable invocation
type OutParameter struct {
	RowCount
}

// NewOutParameter creates an out-parameter expectation
func NewOutParameter(expected int64) *OutParameter {
	return &OutParameter{RowCount: RowCount{Expected: expected}}
}

// Prepare registers the out parameter; non-callable statements are rejected
func (e *OutParameter) Prepare(stmt Statement) (int, error) {
	callable, ok := stmt.(Callable)
	if !ok {
		return 0, &NotCallableError{SQL: sqlOf(stmt)}
	}
	if err := callable.RegisterOutParameter(1); err != nil {
		return 0, err
	}
	return 1, nil
}

// VerifyOutcome ignores the driver row count and checks the out parameter instead
func (e *OutParameter) VerifyOutcome(_ int64, stmt Statement, batchPosition int) error {
	callable, ok := stmt.(Callable)
	if !ok {
		return &NotCallableError{SQL: sqlOf(stmt)}
	}
	reported, err := callable.OutParameter(1)
	if err != nil {
		return &OutParameterReadError{SQL: callable.SQL(), Err: err}
	}
	return e.RowCount.VerifyOutcome(reported, stmt, batchPosition)
}

// CanBeBatched is false: out parameters cannot be read per batch position
func (e *OutParameter) CanBeBatched() bool { return false }

// ForStyle returns the expectation for a result check style
func ForStyle(style ResultCheckStyle) (Expectation, error) {
	switch style {
	case StyleNone:
		return None{}, nil
	case StyleCount, "":
		return NewRowCount(1), nil
	case StyleParam:
		return NewOutParameter(1), nil
	default:
		return nil, &UnknownStyleError{Style: string(style)}
	}
}

func checkNonBatched(expected, rowCount int64, sql string) error {
	if expected > rowCount {
		return &StaleStateError{Expected: expected, Actual: rowCount, SQL: sql}
	}
	if expected < rowCount {
		return &TooManyRowsError{Expected: expected, Actual: rowCount, SQL: sql}
	}
	return nil
}

func sqlOf(stmt Statement) string {
	if stmt == nil {
		return ""
	}
	return stmt.SQL()
}
