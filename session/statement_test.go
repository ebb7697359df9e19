package session

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/orochi-idgen/expectation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	rows    int64
	value   int64
	found   bool
	err     error
	queries []string
}

func (c *stubConn) QueryInt64(_ context.Context, sql string, _ ...any) (int64, bool, error) {
	c.queries = append(c.queries, sql)
	return c.value, c.found, c.err
}

func (c *stubConn) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	c.queries = append(c.queries, sql)
	return c.rows, c.err
}

func TestExecuteCommand(t *testing.T) {
	ctx := context.Background()

	rows, err := Execute(ctx, &stubConn{rows: 1}, Command{Text: "update t set v = 2"}, expectation.NewRowCount(1), expectation.NotBatched)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	_, err = Execute(ctx, &stubConn{rows: 0}, Command{Text: "update t set v = 2"}, expectation.NewRowCount(1), expectation.NotBatched)
	assert.True(t, expectation.IsStaleState(err))

	_, err = Execute(ctx, &stubConn{rows: 7}, &Command{Text: "delete from t"}, nil, expectation.NotBatched)
	assert.NoError(t, err)

	boom := errors.New("conn reset")
	_, err = Execute(ctx, &stubConn{err: boom}, Command{Text: "x"}, nil, expectation.NotBatched)
	assert.ErrorIs(t, err, boom)
}

func TestExecuteFunctionCall(t *testing.T) {
	ctx := context.Background()
	exp := expectation.NewOutParameter(1)

	call := &FunctionCall{Text: "select bump_counter(?)", Args: []any{"ids"}}
	_, err := Execute(ctx, &stubConn{value: 1, found: true}, call, exp, expectation.NotBatched)
	require.NoError(t, err)
	out, err := call.OutParameter(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out)

	call = &FunctionCall{Text: "select bump_counter(?)"}
	_, err = Execute(ctx, &stubConn{value: 0, found: true}, call, exp, expectation.NotBatched)
	assert.True(t, expectation.IsStaleState(err))

	_, err = Execute(ctx, &stubConn{rows: 1}, Command{Text: "update t set v = 1"}, exp, expectation.NotBatched)
	assert.ErrorIs(t, err, expectation.ErrNotCallable)
}

func TestFunctionCallOutParameter(t *testing.T) {
	call := &FunctionCall{Text: "select f()"}
	_, err := call.OutParameter(1)
	assert.Error(t, err)

	assert.Error(t, call.RegisterOutParameter(2))
	require.NoError(t, call.RegisterOutParameter(1))
	_, err = call.OutParameter(1)
	assert.Error(t, err, "not executed yet")
}
