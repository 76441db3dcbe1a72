package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

// errInjectedRollback unwinds a real transaction when FailCommit is set.
var errInjectedRollback = errors.New("injected rollback")

// InjectedTxRunner is a test helper for aggregate integration tests.
// Without DB it runs the body with no transaction at all. With DB it runs the
// body in a real transaction and turns FailCommit into an actual rollback, so
// tests can assert that nothing the body wrote survived.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	db := r.DB
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.inc(&r.RollbackCalls)
		return failBeforeBody
	}
	if fn == nil {
		r.inc(&r.CommitCalls)
		return nil
	}

	if db == nil {
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			r.inc(&r.RollbackCalls)
			return err
		}
		if failCommit != nil {
			r.inc(&r.RollbackCalls)
			return failCommit
		}
		r.inc(&r.CommitCalls)
		return nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		if failCommit != nil {
			return errInjectedRollback
		}
		return nil
	})
	switch {
	case errors.Is(err, errInjectedRollback):
		r.inc(&r.RollbackCalls)
		return failCommit
	case err != nil:
		r.inc(&r.RollbackCalls)
		return err
	default:
		r.inc(&r.CommitCalls)
		return nil
	}
}

func (r *InjectedTxRunner) inc(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
