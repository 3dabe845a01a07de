package model

import (
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

const (
	EventSaleCommitted = "sale.committed"
	EventSaleRefunded  = "sale.refunded"
	EventSaleStatus    = "sale.status_changed"
	EventStockAdjusted = "stock.adjusted"
	EventStockLow      = "stock.low"
)

// OutboxEvent is written in the same transaction as the change it describes
// and delivered later by the relay.
type OutboxEvent struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	EventType   string       `gorm:"type:varchar(50);not null;index" json:"event_type"`
	AggregateID uuid.UUID    `gorm:"type:uuid;not null" json:"aggregate_id"`
	Payload     string       `gorm:"type:text;not null" json:"payload"`
	Status      OutboxStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	Attempts    int          `gorm:"not null;default:0" json:"attempts"`
	LastError   string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	SentAt      *time.Time   `json:"sent_at,omitempty"`
}

// StockEvent is the payload of stock.adjusted and stock.low.
type StockEvent struct {
	ProductID     uuid.UUID `json:"product_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Delta         int       `json:"delta"`
	CurrentStock  int       `json:"current_stock"`
	MinStockLevel int       `json:"min_stock_level"`
	Reason        string    `json:"reason,omitempty"`
	ActorID       string    `json:"actor_id"`
}

// SaleEvent is the payload of sale.committed, sale.status_changed and
// sale.refunded. It carries enough for a receipt without reading the sale.
type SaleEvent struct {
	SaleID        uuid.UUID       `json:"sale_id"`
	Reference     string          `json:"reference"`
	Channel       Channel         `json:"channel"`
	Status        SaleStatus      `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         int64           `json:"total"`
	Refunded      int64           `json:"refunded"`
	RefundAmount  int64           `json:"refund_amount,omitempty"`
	PointsAwarded int64           `json:"points_awarded"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Lines         []SaleEventLine `json:"lines,omitempty"`
	ActorID       string          `json:"actor_id"`
}

type SaleEventLine struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	LineTotal   int64  `json:"line_total"`
}

// NewSaleEvent snapshots a sale for the outbox.
func NewSaleEvent(s *Sale, actor Actor) SaleEvent {
	ev := SaleEvent{
		SaleID:        s.ID,
		Reference:     s.Reference,
		Channel:       s.Channel,
		Status:        s.Status,
		PaymentStatus: s.PaymentStatus,
		Total:         s.Total,
		Refunded:      s.RefundedAmount,
		PointsAwarded: s.PointsAwarded,
		ActorID:       actor.ID,
	}
	if s.Customer != nil {
		ev.CustomerName = s.Customer.Name
		if s.Customer.Email != nil {
			ev.CustomerEmail = *s.Customer.Email
		}
	}
	for _, l := range s.Lines {
		ev.Lines = append(ev.Lines, SaleEventLine{ProductName: l.ProductName, Quantity: l.Quantity, LineTotal: l.LineTotal})
	}
	return ev
}
