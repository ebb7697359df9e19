// Package session defines the unit-of-work capabilities that generators run against
package session

import "context"

// Conn executes statements inside one unit of work
type Conn interface {
	// QueryInt64 reads the first column of the first row; found is false when there are no rows
	QueryInt64(ctx context.Context, sql string, args ...any) (value int64, found bool, err error)
	// Exec runs a mutation and returns the affected row count
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Work is a unit of work executed by an IsolationDelegate
type Work func(ctx context.Context, conn Conn) error

// IsolationDelegate runs work on a connection and transaction separate from the caller's,
// so that a rollback of the caller does not undo what the work committed.
type IsolationDelegate interface {
	DelegateWork(ctx context.Context, work Work, transacted bool) error
}

// Session is the caller's live unit of work
type Session interface {
	TenantIdentifier() string
	IsolationDelegate() IsolationDelegate
}
