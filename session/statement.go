package session

import (
	"context"
	"fmt"

	"github.com/amirphl/orochi-idgen/expectation"
)

// Command is a plain mutation whose outcome is the affected row count
type Command struct {
	Text string
	Args []any
}

func (c Command) SQL() string { return c.Text }

// FunctionCall invokes a store function whose single result is read back as out parameter 1
type FunctionCall struct {
	Text string
	Args []any

	registered bool
	out        int64
	executed   bool
}

func (f *FunctionCall) SQL() string { return f.Text }

func (f *FunctionCall) RegisterOutParameter(position int) error {
	if position != 1 {
		return fmt.Errorf("function call %q only exposes out parameter 1, got %d", f.Text, position)
	}
	f.registered = true
	return nil
}

func (f *FunctionCall) OutParameter(position int) (int64, error) {
	if position != 1 || !f.registered {
		return 0, fmt.Errorf("out parameter %d of %q was not registered", position, f.Text)
	}
	if !f.executed {
		return 0, fmt.Errorf("function call %q has not been executed", f.Text)
	}
	return f.out, nil
}

// Execute runs stmt on conn and verifies the outcome with exp. A nil exp accepts any outcome.
func Execute(ctx context.Context, conn Conn, stmt expectation.Statement, exp expectation.Expectation, batchPosition int) (int64, error) {
	if exp == nil {
		exp = expectation.None{}
	}
	if _, err := exp.Prepare(stmt); err != nil {
		return 0, err
	}

	var rows int64
	switch s := stmt.(type) {
	case Command:
		n, err := conn.Exec(ctx, s.Text, s.Args...)
		if err != nil {
			return 0, err
		}
		rows = n
	case *Command:
		n, err := conn.Exec(ctx, s.Text, s.Args...)
		if err != nil {
			return 0, err
		}
		rows = n
	case *FunctionCall:
		v, found, err := conn.QueryInt64(ctx, s.Text, s.Args...)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("function call %q returned no row", s.Text)
		}
		s.out, s.executed = v, true
		rows = expectation.SuccessNoInfo
		if batchPosition < 0 {
			rows = v
		}
	default:
		return 0, fmt.Errorf("unsupported statement type %T", stmt)
	}

	if err := exp.VerifyOutcome(rows, stmt, batchPosition); err != nil {
		return rows, err
	}
	return rows, nil
}
