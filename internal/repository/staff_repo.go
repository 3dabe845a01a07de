package repository

import (
	"time"

	"go-retail-core/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffRepository interface {
	FindByEmail(email string) (*model.Staff, error)
	FindByID(id uuid.UUID) (*model.Staff, error)
	Create(staff *model.Staff, privileges []model.Privilege) error
	UpdatePassword(staffID uuid.UUID, hashedPassword string) error
	UpdateTokenVersion(staffID uuid.UUID, version string) error
	UpdateLastSeen(staffID uuid.UUID) error
	Count() (int64, error)
}

type staffRepo struct {
	db *gorm.DB
}

func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db}
}

func (r *staffRepo) FindByEmail(email string) (*model.Staff, error) {
	var staff model.Staff
	if err := r.db.Preload("Privileges").Where("email = ?", email).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepo) FindByID(id uuid.UUID) (*model.Staff, error) {
	var staff model.Staff
	if err := r.db.Preload("Privileges").First(&staff, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepo) Create(staff *model.Staff, privileges []model.Privilege) error {
	staff.Privileges = privileges
	return r.db.Create(staff).Error
}

func (r *staffRepo) UpdatePassword(staffID uuid.UUID, hashedPassword string) error {
	return r.db.Model(&model.Staff{}).Where("id = ?", staffID).Update("password", hashedPassword).Error
}

func (r *staffRepo) UpdateTokenVersion(staffID uuid.UUID, version string) error {
	return r.db.Model(&model.Staff{}).Where("id = ?", staffID).Update("token_version", version).Error
}

func (r *staffRepo) UpdateLastSeen(staffID uuid.UUID) error {
	return r.db.Model(&model.Staff{}).Where("id = ?", staffID).Update("last_seen_at", time.Now()).Error
}

func (r *staffRepo) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.Staff{}).Count(&n).Error
	return n, err
}
