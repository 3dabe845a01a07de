package repository

import (
	"context"
	"errors"

	"go-retail-core/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)

	// Transactional variants used by the commit and refund paths.
	FindByEmailTx(tx *gorm.DB, email string) (*model.Customer, error)
	FindByPhoneTx(tx *gorm.DB, phone string) ([]model.Customer, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Customer, error)
	CreateIfAbsentTx(tx *gorm.DB, c *model.Customer) (bool, error)
	UpdateProfileTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	AddPointsTx(tx *gorm.DB, id uuid.UUID, amount int64) error
	SubtractPointsTx(tx *gorm.DB, id uuid.UUID, amount int64) (bool, error)
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *customerRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByEmailTx returns (nil, nil) when nobody has that email.
func (r *customerRepo) FindByEmailTx(tx *gorm.DB, email string) (*model.Customer, error) {
	var c model.Customer
	err := tx.Where("email = ?", email).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByPhoneTx returns every customer sharing the phone, oldest first.
func (r *customerRepo) FindByPhoneTx(tx *gorm.DB, phone string) ([]model.Customer, error) {
	var customers []model.Customer
	err := tx.Where("phone = ?", phone).Order("created_at ASC, id ASC").Find(&customers).Error
	return customers, err
}

// CreateIfAbsentTx inserts c unless its email is already taken. It returns
// false when a concurrent sale created the same customer first.
func (r *customerRepo) CreateIfAbsentTx(tx *gorm.DB, c *model.Customer) (bool, error) {
	q := tx
	if c.Email != nil {
		q = tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true})
	}
	res := q.Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *customerRepo) UpdateProfileTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return tx.Model(&model.Customer{}).Where("id = ?", id).Updates(fields).Error
}

func (r *customerRepo) AddPointsTx(tx *gorm.DB, id uuid.UUID, amount int64) error {
	return tx.Model(&model.Customer{}).
		Where("id = ?", id).
		UpdateColumn("loyalty_points", gorm.Expr("loyalty_points + ?", amount)).Error
}

// SubtractPointsTx only succeeds if the balance still covers amount.
func (r *customerRepo) SubtractPointsTx(tx *gorm.DB, id uuid.UUID, amount int64) (bool, error) {
	res := tx.Model(&model.Customer{}).
		Where("id = ? AND loyalty_points >= ?", id, amount).
		UpdateColumn("loyalty_points", gorm.Expr("loyalty_points - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
