// Package outbox delivers events written next to committed changes. Delivery
// is at least once; a failed publisher never reaches back into the sale.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Publisher hands one event to a downstream system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev model.OutboxEvent) error
}

type Relay struct {
	repo        repository.OutboxRepository
	publishers  []Publisher
	batchSize   int
	maxAttempts int
	running     atomic.Bool
}

func NewRelay(repo repository.OutboxRepository, batchSize, maxAttempts int, publishers ...Publisher) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Relay{repo: repo, publishers: publishers, batchSize: batchSize, maxAttempts: maxAttempts}
}

// RunOnce drains one batch. Overlapping calls return immediately.
func (r *Relay) RunOnce(ctx context.Context) (sent, failed int, err error) {
	if !r.running.CompareAndSwap(false, true) {
		return 0, 0, nil
	}
	defer r.running.Store(false)

	events, err := r.repo.FetchPending(ctx, r.batchSize, r.maxAttempts)
	if err != nil {
		return 0, 0, err
	}

	for _, ev := range events {
		if perr := r.dispatch(ctx, ev); perr != nil {
			failed++
			giveUp := ev.Attempts+1 >= r.maxAttempts
			zap.S().Warnw("outbox delivery failed",
				"event_id", ev.ID, "type", ev.EventType, "attempt", ev.Attempts+1, "give_up", giveUp, "error", perr)
			if err := r.repo.MarkFailed(ctx, ev.ID, perr, giveUp); err != nil {
				return sent, failed, err
			}
			continue
		}
		if err := r.repo.MarkSent(ctx, ev.ID); err != nil {
			return sent, failed, err
		}
		sent++
	}
	return sent, failed, nil
}

func (r *Relay) dispatch(ctx context.Context, ev model.OutboxEvent) error {
	var errs []error
	for _, p := range r.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Schedule runs the relay on a cron every interval. Stop the returned cron
// to halt it; ctx is handed to every run.
func (r *Relay) Schedule(ctx context.Context, interval time.Duration) (*cron.Cron, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	sched := cron.New()
	_, err := sched.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.S().Error("outbox relay panic: ", rec)
			}
		}()
		sent, failed, err := r.RunOnce(ctx)
		if err != nil {
			zap.S().Errorw("outbox relay run failed", "error", err)
			return
		}
		if sent+failed > 0 {
			zap.S().Infow("outbox relay run", "sent", sent, "failed", failed)
		}
	})
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
