// Package repository provides gorm backed implementations of the session and schema store contracts
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// getDB returns the transaction carried by ctx, or db when there is none
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// WithTransaction executes a function within a database transaction
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	ctx = context.WithValue(ctx, TxContextKey, tx)

	if err := fn(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// gormConn runs raw statements on one gorm handle, which may be a transaction
type gormConn struct {
	db *gorm.DB
}

func (c *gormConn) QueryInt64(ctx context.Context, sql string, args ...any) (int64, bool, error) {
	rows, err := c.db.WithContext(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var v int64
	if err := rows.Scan(&v); err != nil {
		return 0, false, fmt.Errorf("failed to scan %q: %w", sql, err)
	}
	return v, true, rows.Err()
}

func (c *gormConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	res := c.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

var errNilWork = errors.New("nil unit of work")

// ErrNoDatabase is returned when work is delegated through a session that has no database
var ErrNoDatabase = errors.New("session has no database")
