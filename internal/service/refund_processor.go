package service

import (
	"context"
	"fmt"
	"strings"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RefundLineRequest struct {
	SaleLineID uuid.UUID `json:"sale_line_id"`
	// ProductID may be given instead of SaleLineID.
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type RefundRequest struct {
	SaleID uuid.UUID           `json:"-"`
	Type   model.RefundType    `json:"type" validate:"required,oneof=full partial"`
	Lines  []RefundLineRequest `json:"lines"`
	Reason string              `json:"reason" validate:"required"`
}

// refundable lists the statuses a sale can be refunded from directly.
// Undelivered orders are reversed through Cancel instead.
var refundable = map[model.SaleStatus]bool{
	model.StatusCompleted: true,
	model.StatusDelivered: true,
}

type RefundProcessor interface {
	Refund(ctx context.Context, req RefundRequest, actor model.Actor) (*model.Refund, error)
	// RefundTx applies a refund to a sale already locked in tx. Callers do
	// their own status checks.
	RefundTx(tx *gorm.DB, sale *model.Sale, req RefundRequest, actor model.Actor) (*model.Refund, error)
}

type refundProcessor struct {
	saleRepo   repository.SaleRepository
	outboxRepo repository.OutboxRepository
	ledger     StockLedger
	directory  CustomerDirectory
	uow        *unitOfWork
}

func NewRefundProcessor(
	sRepo repository.SaleRepository,
	oRepo repository.OutboxRepository,
	ledger StockLedger,
	directory CustomerDirectory,
	db *gorm.DB,
	maxAttempts int,
) RefundProcessor {
	return &refundProcessor{
		saleRepo:   sRepo,
		outboxRepo: oRepo,
		ledger:     ledger,
		directory:  directory,
		uow:        newUnitOfWork(db, maxAttempts),
	}
}

func (p *refundProcessor) Refund(ctx context.Context, req RefundRequest, actor model.Actor) (*model.Refund, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, ErrRefundReasonRequired
	}
	if err := validator.FirstError(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	var refund *model.Refund
	err := p.uow.Do(ctx, "sale.refund", func(tx *gorm.DB) error {
		sale, err := lockSale(tx, p.saleRepo, req.SaleID)
		if err != nil {
			return err
		}
		if err := IsRefundable(sale); err != nil {
			return err
		}

		refund, err = p.RefundTx(tx, sale, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("sale refunded",
		"sale_id", req.SaleID, "refund_id", refund.ID, "amount", refund.Amount,
		"points_shortfall", refund.PointsShortfall, "actor", actor.ID)
	return refund, nil
}

// pick is one line of a refund before amounts are known.
type pick struct {
	line *model.SaleLine
	qty  int
}

func (p *refundProcessor) RefundTx(tx *gorm.DB, sale *model.Sale, req RefundRequest, actor model.Actor) (*model.Refund, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrRefundReasonRequired
	}
	remaining := sale.RefundableAmount()
	if sale.RefundState == model.RefundFull {
		return nil, ErrAlreadyRefunded
	}
	// A full refund asks for the original total, which no longer fits once
	// anything has been given back. The rest goes back as a partial refund.
	if req.Type == model.RefundTypeFull && sale.RefundedAmount > 0 {
		return nil, fmt.Errorf("%w: %d requested, %d left", ErrRefundExceedsOriginal, sale.Total, remaining)
	}

	already, err := p.saleRepo.RefundedQuantitiesTx(tx, sale.ID)
	if err != nil {
		return nil, err
	}

	// 1. Work out which units go back and what they are worth.
	var picks []pick
	switch req.Type {
	case model.RefundTypeFull:
		for i := range sale.Lines {
			l := &sale.Lines[i]
			if left := l.Quantity - already[l.ID]; left > 0 {
				picks = append(picks, pick{line: l, qty: left})
			}
		}
	case model.RefundTypePartial:
		picks, err = selectLines(sale, req.Lines, already)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown refund type %q", ErrValidation, req.Type)
	}

	refund := &model.Refund{
		SaleID: sale.ID,
		Type:   req.Type,
		Reason: reason,
	}
	refund.ID = uuid.New()
	refund.CreatedBy = actor.ID
	refund.UpdatedBy = actor.ID

	for _, pk := range picks {
		refund.Lines = append(refund.Lines, model.RefundLine{
			SaleLineID: pk.line.ID,
			ProductID:  pk.line.ProductID,
			Quantity:   pk.qty,
			Amount:     lineRefundAmount(pk.line, already[pk.line.ID], pk.qty),
		})
		refund.Amount += refund.Lines[len(refund.Lines)-1].Amount
	}

	// Returning the last units settles the sale exactly, delivery fee
	// included. The difference is booked on the last line.
	everything := returnsEverything(sale, picks, already)
	if everything {
		if n := len(refund.Lines); n > 0 {
			refund.Lines[n-1].Amount += remaining - refund.Amount
		}
		refund.Amount = remaining
	}
	if refund.Amount > remaining {
		return nil, fmt.Errorf("%w: %d requested, %d left", ErrRefundExceedsOriginal, refund.Amount, remaining)
	}
	if refund.Amount <= 0 && len(picks) == 0 {
		return nil, ErrAlreadyRefunded
	}

	// 2. Put the stock back.
	ref := MovementRef{ID: &sale.ID, Type: model.RefRefund, Reason: "refund: " + reason, ActorID: actor.ID}
	for _, pk := range picks {
		if _, err := p.ledger.Restore(tx, pk.line.ProductID, pk.qty, ref); err != nil {
			return nil, err
		}
	}

	// 3. Take back the points this money earned. Floors are taken on the
	// running total so the reversals add up to the award.
	if sale.CustomerID != nil {
		owed := (sale.RefundedAmount+refund.Amount)/100 - sale.RefundedAmount/100
		reversed, shortfall, err := p.directory.ReversePoints(tx, *sale.CustomerID, owed)
		if err != nil {
			return nil, err
		}
		refund.PointsReversed = reversed
		refund.PointsShortfall = shortfall
		if shortfall > 0 {
			zap.S().Warnw("loyalty reversal short",
				"sale_id", sale.ID, "customer_id", *sale.CustomerID, "owed", owed, "shortfall", shortfall)
		}
	}

	// 4. Record the refund and move the sale's money fields.
	if err := tx.Create(refund).Error; err != nil {
		return nil, err
	}
	ok, err := p.saleRepo.AddRefundedAmountTx(tx, sale.ID, refund.Amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRefundExceedsOriginal
	}

	sale.RefundedAmount += refund.Amount
	fields := map[string]interface{}{"updated_by": actor.ID}
	if everything {
		sale.RefundState = model.RefundFull
		sale.Status = model.StatusRefunded
		fields["status"] = model.StatusRefunded
	} else {
		sale.RefundState = model.RefundPartial
	}
	fields["refund_state"] = sale.RefundState
	if sale.PaymentStatus == model.PaymentPaid || sale.PaymentStatus == model.PaymentPartiallyRefunded {
		sale.PaymentStatus = model.PaymentPartiallyRefunded
		if sale.RefundState == model.RefundFull {
			sale.PaymentStatus = model.PaymentRefunded
		}
		fields["payment_status"] = sale.PaymentStatus
	}
	if err := p.saleRepo.UpdateStatusTx(tx, sale.ID, fields); err != nil {
		return nil, err
	}

	ev := model.NewSaleEvent(sale, actor)
	ev.RefundAmount = refund.Amount
	if err := p.outboxRepo.Enqueue(tx, model.EventSaleRefunded, sale.ID, ev); err != nil {
		return nil, err
	}
	return refund, nil
}

// selectLines validates a partial selection against what is still
// refundable on each line.
func selectLines(sale *model.Sale, reqs []RefundLineRequest, already map[uuid.UUID]int) ([]pick, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no lines selected", ErrInvalidLineSelection)
	}

	byLine := make(map[uuid.UUID]*model.SaleLine, len(sale.Lines))
	byProduct := make(map[uuid.UUID]*model.SaleLine, len(sale.Lines))
	for i := range sale.Lines {
		byLine[sale.Lines[i].ID] = &sale.Lines[i]
		byProduct[sale.Lines[i].ProductID] = &sale.Lines[i]
	}

	var order []uuid.UUID
	want := make(map[uuid.UUID]int)
	for _, r := range reqs {
		line := byLine[r.SaleLineID]
		if line == nil {
			line = byProduct[r.ProductID]
		}
		if line == nil {
			return nil, fmt.Errorf("%w: line is not part of sale %s", ErrInvalidLineSelection, sale.Reference)
		}
		if r.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidLineSelection)
		}
		if _, seen := want[line.ID]; !seen {
			order = append(order, line.ID)
		}
		want[line.ID] += r.Quantity
	}

	picks := make([]pick, 0, len(order))
	for _, id := range order {
		line := byLine[id]
		if left := line.Quantity - already[id]; want[id] > left {
			return nil, fmt.Errorf("%w: %s sold %d, %d already refunded, %d requested",
				ErrInvalidLineSelection, line.ProductName, line.Quantity, already[id], want[id])
		}
		picks = append(picks, pick{line: line, qty: want[id]})
	}
	return picks, nil
}

// lineRefundAmount is the paid share of qty units of a line when done
// units were refunded before. Floors are taken on the running count, so
// the shares of a line add up to its net and the last unit carries the
// remainder.
func lineRefundAmount(l *model.SaleLine, done, qty int) int64 {
	if l.Quantity == 0 {
		return 0
	}
	return paidShare(l, done+qty) - paidShare(l, done)
}

func paidShare(l *model.SaleLine, units int) int64 {
	q, _ := decimal.NewFromInt(l.Net()).
		Mul(decimal.NewFromInt(int64(units))).
		QuoRem(decimal.NewFromInt(int64(l.Quantity)), 0)
	return q.IntPart()
}

func returnsEverything(sale *model.Sale, picks []pick, already map[uuid.UUID]int) bool {
	taking := make(map[uuid.UUID]int, len(picks))
	for _, pk := range picks {
		taking[pk.line.ID] = pk.qty
	}
	for _, l := range sale.Lines {
		if already[l.ID]+taking[l.ID] < l.Quantity {
			return false
		}
	}
	return true
}

// IsRefundable reports whether Refund accepts the sale as it stands.
func IsRefundable(s *model.Sale) error {
	switch {
	case s.Status == model.StatusRefunded || s.Status == model.StatusCancelled:
		return ErrAlreadyRefunded
	case !refundable[s.Status]:
		return fmt.Errorf("%w: %s", ErrRefundNotAllowed, s.Status)
	}
	return nil
}
