package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Channel string

const (
	ChannelOnline Channel = "online"
	ChannelPOS    Channel = "pos"
)

type SaleStatus string

const (
	StatusPending   SaleStatus = "pending"
	StatusConfirmed SaleStatus = "confirmed"
	StatusOnTheWay  SaleStatus = "on_the_way"
	StatusDelivered SaleStatus = "delivered"
	StatusCompleted SaleStatus = "completed"
	StatusCancelled SaleStatus = "cancelled"
	StatusRefunded  SaleStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
)

type RefundState string

const (
	RefundNone    RefundState = "none"
	RefundPartial RefundState = "partial"
	RefundFull    RefundState = "full"
)

const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentSplit = "split"
	PaymentCOD   = "cod"
)

// Sale is an online Order or a POS transaction. It is created once with its
// lines and never deleted; only the status fields move afterwards.
type Sale struct {
	BaseModel
	Reference   string     `gorm:"type:varchar(48);uniqueIndex;not null" json:"reference"`
	ExternalRef *string    `gorm:"type:varchar(100);uniqueIndex" json:"external_ref,omitempty"`
	Channel     Channel    `gorm:"type:varchar(10);not null;index" json:"channel"`
	Status      SaleStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	CustomerID          *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Customer            *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerNeedsReview bool       `gorm:"default:false" json:"customer_needs_review"`

	Lines []SaleLine `gorm:"foreignKey:SaleID" json:"lines"`

	Subtotal       int64 `gorm:"not null" json:"subtotal"`
	TaxAmount      int64 `gorm:"not null" json:"tax_amount"`
	DiscountAmount int64 `gorm:"not null;default:0" json:"discount_amount"`
	DeliveryFee    int64 `gorm:"not null;default:0" json:"delivery_fee"`
	Total          int64 `gorm:"not null" json:"total"`

	PaymentMethod string        `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	CashTendered  int64         `gorm:"default:0" json:"cash_tendered"`
	CardAmount    int64         `gorm:"default:0" json:"card_amount"`
	ChangeDue     int64         `gorm:"default:0" json:"change_due"`

	DeliveryRegion  string `gorm:"type:varchar(100)" json:"delivery_region,omitempty"`
	DeliveryAddress string `gorm:"type:text" json:"delivery_address,omitempty"`

	PointsAwarded  int64       `gorm:"default:0" json:"points_awarded"`
	RefundedAmount int64       `gorm:"not null;default:0" json:"refunded_amount"`
	RefundState    RefundState `gorm:"type:varchar(10);not null;default:'none'" json:"refund_state"`
	Refunds        []Refund    `gorm:"foreignKey:SaleID" json:"refunds,omitempty"`

	Note string `gorm:"type:text" json:"note,omitempty"`
}

// RefundableAmount is what is left to give back.
func (s *Sale) RefundableAmount() int64 {
	return s.Total - s.RefundedAmount
}

// SaleLine is a snapshot of the product at the time of sale. Immutable once
// committed; refunded quantities live on RefundLine.
type SaleLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName   string          `gorm:"type:varchar(255);not null" json:"product_name"`
	SKU           string          `gorm:"type:varchar(50)" json:"sku"`
	UnitPrice     int64           `gorm:"not null" json:"unit_price"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	LineTotal     int64           `gorm:"not null" json:"line_total"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxAmount     int64           `gorm:"not null" json:"tax_amount"`
	DiscountShare int64           `gorm:"not null;default:0" json:"discount_share"`
}

// Net is the amount the customer paid for this line.
func (l *SaleLine) Net() int64 {
	return l.LineTotal + l.TaxAmount - l.DiscountShare
}

func (l *SaleLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
