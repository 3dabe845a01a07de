package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel handles ID (UUID) and standard Audit Trails
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Audit User Tracking
	CreatedBy string `json:"created_by"`
	UpdatedBy string `json:"updated_by"`
}

// BeforeCreate generates the UUID unless the caller already assigned one.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	return
}

// Actor is the identity a mutation is attributed to. Storefront checkouts and
// background jobs use the configured system actor.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// All lists every table, in migration order.
func All() []interface{} {
	return []interface{}{
		&Privilege{},
		&Staff{},
		&Product{},
		&Customer{},
		&Sale{},
		&SaleLine{},
		&Refund{},
		&RefundLine{},
		&InventoryMovement{},
		&OutboxEvent{},
	}
}
