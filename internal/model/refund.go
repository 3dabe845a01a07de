package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

// Refund is the compensating record for part or all of a Sale.
type Refund struct {
	BaseModel
	SaleID uuid.UUID    `gorm:"type:uuid;not null;index" json:"sale_id"`
	Type   RefundType   `gorm:"type:varchar(10);not null" json:"type"`
	Amount int64        `gorm:"not null" json:"amount"`
	Reason string       `gorm:"type:text;not null" json:"reason"`
	Lines  []RefundLine `gorm:"foreignKey:RefundID" json:"lines"`

	PointsReversed  int64 `gorm:"default:0" json:"points_reversed"`
	PointsShortfall int64 `gorm:"default:0" json:"points_shortfall"`
}

type RefundLine struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RefundID   uuid.UUID `gorm:"type:uuid;not null;index" json:"refund_id"`
	SaleLineID uuid.UUID `gorm:"type:uuid;not null;index" json:"sale_line_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Amount     int64     `gorm:"not null" json:"amount"`
}

func (l *RefundLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
