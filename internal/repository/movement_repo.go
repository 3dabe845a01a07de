package repository

import (
	"context"
	"time"

	"go-retail-core/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementRepository interface {
	Append(tx *gorm.DB, m *model.InventoryMovement) error
	FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
	FindByReference(ctx context.Context, referenceID uuid.UUID) ([]model.InventoryMovement, error)
	SumByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	SumAll(ctx context.Context) (map[uuid.UUID]int64, error)
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

// Append is the only write path for the ledger; rows are never updated.
func (r *movementRepo) Append(tx *gorm.DB, m *model.InventoryMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return tx.Create(m).Error
}

func (r *movementRepo) FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	q := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&movements).Error
	return movements, err
}

func (r *movementRepo) FindByReference(ctx context.Context, referenceID uuid.UUID) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).Order("created_at ASC").Find(&movements).Error
	return movements, err
}

func (r *movementRepo) SumByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *movementRepo) SumAll(ctx context.Context) (map[uuid.UUID]int64, error) {
	type row struct {
		ProductID uuid.UUID
		Total     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select("product_id, COALESCE(SUM(quantity), 0) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		out[r.ProductID] = r.Total
	}
	return out, nil
}
