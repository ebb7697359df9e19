package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/orochi-idgen/session"
	"gorm.io/gorm"
)

// GormSession is a caller unit of work over a gorm database
type GormSession struct {
	tenant   string
	delegate *isolationDelegate
}

// NewSession creates a session. Work delegated through it never joins a transaction carried by the caller's context.
func NewSession(db *gorm.DB, tenant string) *GormSession {
	return &GormSession{tenant: tenant, delegate: &isolationDelegate{db: db}}
}

func (s *GormSession) TenantIdentifier() string { return s.tenant }

func (s *GormSession) IsolationDelegate() session.IsolationDelegate { return s.delegate }

type isolationDelegate struct {
	db *gorm.DB
}

// DelegateWork runs work on its own connection. With transacted set the work gets a new transaction
// that is committed when work returns nil and rolled back otherwise.
func (d *isolationDelegate) DelegateWork(ctx context.Context, work session.Work, transacted bool) (err error) {
	if work == nil {
		return errNilWork
	}
	if d.db == nil {
		return ErrNoDatabase
	}
	// detach from any transaction the caller carries
	ctx = context.WithValue(ctx, TxContextKey, nil)
	root := d.db.Session(&gorm.Session{NewDB: true, Context: ctx})

	if !transacted {
		return work(ctx, &gormConn{db: root})
	}

	tx := root.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin isolated transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in isolated transaction: %v", r)
		}
	}()

	if err := work(context.WithValue(ctx, TxContextKey, tx), &gormConn{db: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit isolated transaction: %w", err)
	}
	return nil
}
