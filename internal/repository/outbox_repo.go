package repository

import (
	"context"
	"encoding/json"
	"time"

	"go-retail-core/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxRepository interface {
	Enqueue(tx *gorm.DB, eventType string, aggregateID uuid.UUID, payload interface{}) error
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error, giveUp bool) error
}

type outboxRepo struct {
	db *gorm.DB
}

func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db}
}

// Enqueue must run on the transaction that makes the change, so the event
// exists if and only if the change committed.
func (r *outboxRepo) Enqueue(tx *gorm.DB, eventType string, aggregateID uuid.UUID, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     string(body),
		Status:      model.OutboxPending,
		CreatedAt:   time.Now(),
	}).Error
}

func (r *outboxRepo) FetchPending(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", model.OutboxPending, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *outboxRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": model.OutboxSent, "sent_at": &now}).Error
}

// MarkFailed bumps the attempt counter; giveUp parks the event as failed.
func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause error, giveUp bool) error {
	fields := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": cause.Error(),
	}
	if giveUp {
		fields["status"] = model.OutboxFailed
	}
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}
