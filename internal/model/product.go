package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SKU   string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name  string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Unit  string `gorm:"type:varchar(20)" json:"unit"`
	Price int64  `gorm:"not null;default:0" json:"price" validate:"gte=0"` // minor units

	// TaxRate overrides the store default when set (0.15 = 15%).
	TaxRate decimal.NullDecimal `gorm:"type:numeric(6,4)" json:"tax_rate"`

	// CurrentStock is mutated only through the stock ledger.
	CurrentStock  int `gorm:"not null;default:0" json:"current_stock"`
	InitialStock  int `gorm:"not null;default:0" json:"initial_stock"`
	MinStockLevel int `gorm:"not null;default:0" json:"min_stock_level"`
}

// IsLowStock reports whether stock is at or below the reorder level.
func (p *Product) IsLowStock() bool {
	return p.CurrentStock <= p.MinStockLevel
}
