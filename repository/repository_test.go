package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/orochi-idgen/repository"
	"github.com/amirphl/orochi-idgen/session"
	testutil "github.com/amirphl/orochi-idgen/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *testutil.TestDB {
	t.Helper()
	db, err := testutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.TeardownTestDB() })
	require.NoError(t, db.DB.Exec("create table ids (next_val integer)").Error)
	require.NoError(t, db.DB.Exec("insert into ids values (1)").Error)
	return db
}

func storedValue(t *testing.T, db *testutil.TestDB) int64 {
	t.Helper()
	var v int64
	require.NoError(t, db.DB.Raw("select next_val from ids").Scan(&v).Error)
	return v
}

func TestIsolationDelegate(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		db := setupDB(t)
		sess := repository.NewSession(db.DB, "acme")
		assert.Equal(t, "acme", sess.TenantIdentifier())

		err := sess.IsolationDelegate().DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
			v, found, err := conn.QueryInt64(ctx, "select next_val from ids")
			require.NoError(t, err)
			require.True(t, found)
			rows, err := conn.Exec(ctx, "update ids set next_val = ? where next_val = ?", v+1, v)
			require.NoError(t, err)
			assert.Equal(t, int64(1), rows)
			return nil
		}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), storedValue(t, db))
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		db := setupDB(t)
		boom := errors.New("abort")
		err := repository.NewSession(db.DB, "").IsolationDelegate().DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
			_, err := conn.Exec(ctx, "update ids set next_val = 99")
			require.NoError(t, err)
			return boom
		}, true)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), storedValue(t, db))
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		db := setupDB(t)
		err := repository.NewSession(db.DB, "").IsolationDelegate().DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
			_, _ = conn.Exec(ctx, "update ids set next_val = 99")
			panic("boom")
		}, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic")
		assert.Equal(t, int64(1), storedValue(t, db))
	})

	t.Run("NotTransacted", func(t *testing.T) {
		db := setupDB(t)
		err := repository.NewSession(db.DB, "").IsolationDelegate().DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
			_, err := conn.Exec(ctx, "update ids set next_val = 5")
			return err
		}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(5), storedValue(t, db))
	})

	t.Run("DetachesFromCallerTransaction", func(t *testing.T) {
		db := setupDB(t)
		callerDB, err := testutil.Open(db.Name, testutil.TxLockDeferred)
		require.NoError(t, err)
		defer func() {
			if sqlDB, err := callerDB.DB(); err == nil {
				sqlDB.Close()
			}
		}()

		err = repository.WithTransaction(ctx, callerDB, func(txCtx context.Context) error {
			callerTx := txCtx.Value(repository.TxContextKey)
			return repository.NewSession(db.DB, "").IsolationDelegate().DelegateWork(txCtx, func(ctx context.Context, conn session.Conn) error {
				assert.NotSame(t, callerTx, ctx.Value(repository.TxContextKey), "work runs in its own transaction")
				_, err := conn.Exec(ctx, "update ids set next_val = 7")
				return err
			}, true)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), storedValue(t, db))
	})
}

func TestQueryInt64NoRows(t *testing.T) {
	err := testutil.TestWithDB(func(db *testutil.TestDB) error {
		if err := db.DB.Exec("create table ids (next_val integer)").Error; err != nil {
			return err
		}
		ctx := testutil.CreateTestContext()
		return repository.NewSession(db.DB, "").IsolationDelegate().DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
			_, found, err := conn.QueryInt64(ctx, "select next_val from ids")
			if err != nil {
				return err
			}
			assert.False(t, found)
			return nil
		}, false)
	})
	require.NoError(t, err)
}

func TestDelegateWorkWithoutDatabase(t *testing.T) {
	called := false
	err := repository.NewSession(nil, "acme").IsolationDelegate().DelegateWork(context.Background(), func(context.Context, session.Conn) error {
		called = true
		return nil
	}, true)
	assert.ErrorIs(t, err, repository.ErrNoDatabase)
	assert.False(t, called)
}

func TestSchemaRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := repository.NewSchemaRepository(db.DB, db.Dialect)

	ok, err := repo.HasTable(ctx, "ids")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasTable(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.HasSequence(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := repo.Exec(ctx, "update ids set next_val = next_val + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, repo.Ping(ctx))
}

func TestCounterRepositoryPeek(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := repository.NewCounterRepository(db.DB)

	state, err := repo.Peek(ctx, "ids", "select next_val from ids")
	require.NoError(t, err)
	assert.True(t, state.Found)
	assert.Equal(t, int64(1), state.Value)
	assert.Equal(t, "ids", state.Structure)

	state, err = repo.Peek(ctx, "seq", "")
	require.NoError(t, err)
	assert.False(t, state.Found)

	_, err = repo.Peek(ctx, "gone", "select v from gone")
	assert.Error(t, err)
}
