package service

import (
	"context"
	"time"

	"go-retail-core/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// unitOfWork runs fn inside one database transaction. Transient concurrency
// failures (serialization, deadlock) re-run fn from scratch; every other
// error, user or system, rolls back and is returned as is.
type unitOfWork struct {
	db          *gorm.DB
	maxAttempts int
}

func newUnitOfWork(db *gorm.DB, maxAttempts int) *unitOfWork {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &unitOfWork{db: db, maxAttempts: maxAttempts}
}

func (u *unitOfWork) Do(ctx context.Context, name string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		err = u.db.WithContext(ctx).Transaction(fn)
		if err == nil || !database.IsRetryable(err) {
			return err
		}
		zap.S().Warnw("retrying unit of work", "op", name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return err
}
