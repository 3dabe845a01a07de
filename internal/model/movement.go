package model

import (
	"time"

	"github.com/google/uuid"
)

type ReferenceType string

const (
	RefSale       ReferenceType = "sale"
	RefRefund     ReferenceType = "refund"
	RefAdjustment ReferenceType = "adjustment"
)

// InventoryMovement is one append-only ledger row. Quantity is signed:
// negative for sales, positive for restock and refunds.
type InventoryMovement struct {
	ID            uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	ProductID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity      int           `gorm:"not null" json:"quantity"`
	StockAfter    int           `gorm:"not null" json:"stock_after"`
	ReferenceID   *uuid.UUID    `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	ReferenceType ReferenceType `gorm:"type:varchar(20);not null" json:"reference_type"`
	Reason        string        `gorm:"type:varchar(255)" json:"reason"`
	ActorID       string        `gorm:"type:varchar(255);not null" json:"actor_id"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
}
