package repository

import (
	"context"
	"errors"
	"time"

	"go-retail-core/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleFilter struct {
	Channel model.Channel
	Status  model.SaleStatus
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByExternalRef(ctx context.Context, ref string) (*model.Sale, error)
	List(ctx context.Context, f SaleFilter) ([]model.Sale, int64, error)

	CreateTx(tx *gorm.DB, sale *model.Sale) error
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	RefundedQuantitiesTx(tx *gorm.DB, saleID uuid.UUID) (map[uuid.UUID]int, error)
	AddRefundedAmountTx(tx *gorm.DB, saleID uuid.UUID, amount int64) (bool, error)
	UpdateStatusTx(tx *gorm.DB, saleID uuid.UUID, fields map[string]interface{}) error
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines").Preload("Customer").Preload("Refunds.Lines").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByExternalRef returns (nil, nil) when no sale carries the key.
func (r *saleRepo) FindByExternalRef(ctx context.Context, ref string) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).Preload("Lines").First(&sale, "external_ref = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) List(ctx context.Context, f SaleFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{})
	if f.Channel != "" {
		q = q.Where("channel = ?", f.Channel)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var sales []model.Sale
	err := q.Preload("Lines").Preload("Customer").
		Order("created_at DESC").Limit(limit).Offset(f.Offset).
		Find(&sales).Error
	return sales, total, err
}

// CreateTx inserts the sale together with its lines.
func (r *saleRepo) CreateTx(tx *gorm.DB, sale *model.Sale) error {
	return tx.Create(sale).Error
}

// FindForUpdateTx touches the row before reading it. The write takes the row
// lock, so concurrent refunds of one sale run one after another and each sees
// the refunds committed before it.
func (r *saleRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	res := tx.Model(&model.Sale{}).Where("id = ?", id).Update("updated_at", time.Now())
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var sale model.Sale
	if err := tx.Preload("Lines").First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// RefundedQuantitiesTx sums refunded units per sale line.
func (r *saleRepo) RefundedQuantitiesTx(tx *gorm.DB, saleID uuid.UUID) (map[uuid.UUID]int, error) {
	type row struct {
		SaleLineID uuid.UUID
		Qty        int
	}
	var rows []row
	err := tx.Model(&model.RefundLine{}).
		Select("refund_lines.sale_line_id, COALESCE(SUM(refund_lines.quantity), 0) AS qty").
		Joins("JOIN refunds ON refunds.id = refund_lines.refund_id").
		Where("refunds.sale_id = ?", saleID).
		Group("refund_lines.sale_line_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		out[r.SaleLineID] = r.Qty
	}
	return out, nil
}

// AddRefundedAmountTx is the last guard on the refund bound: it only applies
// when the new cumulative amount stays within the sale total.
func (r *saleRepo) AddRefundedAmountTx(tx *gorm.DB, saleID uuid.UUID, amount int64) (bool, error) {
	res := tx.Model(&model.Sale{}).
		Where("id = ? AND refunded_amount + ? <= total", saleID, amount).
		UpdateColumn("refunded_amount", gorm.Expr("refunded_amount + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepo) UpdateStatusTx(tx *gorm.DB, saleID uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return tx.Model(&model.Sale{}).Where("id = ?", saleID).Updates(fields).Error
}
