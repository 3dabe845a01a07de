package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-retail-core/internal/config"
	"go-retail-core/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// ReceiptMailer sends a receipt for each committed sale that has a customer
// email. Other events are ignored.
type ReceiptMailer struct {
	sender mailSender
	from   string
}

func NewReceiptMailer(cfg config.SMTPConfig) *ReceiptMailer {
	return &ReceiptMailer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (m *ReceiptMailer) Name() string { return "mail" }

func (m *ReceiptMailer) Publish(_ context.Context, ev model.OutboxEvent) error {
	if ev.EventType != model.EventSaleCommitted {
		return nil
	}
	var sale model.SaleEvent
	if err := json.Unmarshal([]byte(ev.Payload), &sale); err != nil {
		return err
	}
	if sale.CustomerEmail == "" {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", sale.CustomerEmail)
	msg.SetHeader("Subject", "Your receipt "+sale.Reference)
	msg.SetBody("text/plain", RenderReceipt(sale))
	return m.sender.DialAndSend(msg)
}

func money(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// RenderReceipt is the plain-text body of a receipt mail.
func RenderReceipt(s model.SaleEvent) string {
	var b strings.Builder
	if s.CustomerName != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", s.CustomerName)
	}
	fmt.Fprintf(&b, "Thank you for your purchase. Reference: %s\n\n", s.Reference)
	for _, l := range s.Lines {
		fmt.Fprintf(&b, "%-30s x%-4d %10s\n", l.ProductName, l.Quantity, money(l.LineTotal))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", money(s.Total))
	if s.PointsAwarded > 0 {
		fmt.Fprintf(&b, "Loyalty points earned: %d\n", s.PointsAwarded)
	}
	return b.String()
}
