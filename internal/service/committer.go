package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-retail-core/internal/idempotency"
	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// orderFlow lists the status moves staff may make on an online order.
// Cancellation and refunds have their own entry points.
var orderFlow = map[model.SaleStatus][]model.SaleStatus{
	model.StatusPending:   {model.StatusConfirmed},
	model.StatusConfirmed: {model.StatusOnTheWay, model.StatusDelivered},
	model.StatusOnTheWay:  {model.StatusDelivered},
}

var cancellable = map[model.SaleStatus]bool{
	model.StatusPending:   true,
	model.StatusConfirmed: true,
	model.StatusOnTheWay:  true,
}

// CanTransition reports whether an online order may move from one status
// to another through Transition.
func CanTransition(from, to model.SaleStatus) bool {
	for _, s := range orderFlow[from] {
		if s == to {
			return true
		}
	}
	return false
}

type TransactionCommitter interface {
	// Commit persists the plan atomically. replayed is true when the plan's
	// idempotency key already produced a sale; that sale is returned as is.
	Commit(ctx context.Context, plan *SalePlan, actor model.Actor) (sale *model.Sale, replayed bool, err error)
	Transition(ctx context.Context, saleID uuid.UUID, to model.SaleStatus, actor model.Actor) (*model.Sale, error)
	Cancel(ctx context.Context, saleID uuid.UUID, reason string, actor model.Actor) (*model.Sale, error)
	Get(ctx context.Context, saleID uuid.UUID) (*model.Sale, error)
	// Replay returns the sale an idempotency key already produced, if any.
	Replay(ctx context.Context, key string) (*model.Sale, bool)
	List(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error)
}

type transactionCommitter struct {
	saleRepo   repository.SaleRepository
	outboxRepo repository.OutboxRepository
	ledger     StockLedger
	directory  CustomerDirectory
	refunds    RefundProcessor
	idem       idempotency.Store
	uow        *unitOfWork
}

func NewTransactionCommitter(
	sRepo repository.SaleRepository,
	oRepo repository.OutboxRepository,
	ledger StockLedger,
	directory CustomerDirectory,
	refunds RefundProcessor,
	idem idempotency.Store,
	db *gorm.DB,
	maxAttempts int,
) TransactionCommitter {
	if idem == nil {
		idem = idempotency.Noop{}
	}
	return &transactionCommitter{
		saleRepo:   sRepo,
		outboxRepo: oRepo,
		ledger:     ledger,
		directory:  directory,
		refunds:    refunds,
		idem:       idem,
		uow:        newUnitOfWork(db, maxAttempts),
	}
}

func newReference(ch model.Channel, id uuid.UUID, at time.Time) string {
	prefix := "ORD"
	if ch == model.ChannelPOS {
		prefix = "POS"
	}
	// The whole id goes in; the reference is unique only as long as the id is.
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")))
}

func (c *transactionCommitter) Commit(ctx context.Context, plan *SalePlan, actor model.Actor) (*model.Sale, bool, error) {
	if plan == nil || len(plan.Lines) == 0 {
		return nil, false, ErrEmptyCart
	}
	if plan.PaymentMethod == "" {
		return nil, false, fmt.Errorf("%w: payment method is required", ErrInvalidPayment)
	}

	if plan.ExternalRef != "" {
		if existing, ok := c.findReplay(ctx, plan.ExternalRef); ok {
			return existing, true, nil
		}
	}

	now := time.Now()
	sale := &model.Sale{
		Channel:         plan.Channel,
		Subtotal:        plan.Subtotal,
		TaxAmount:       plan.TaxAmount,
		DiscountAmount:  plan.DiscountAmount,
		DeliveryFee:     plan.DeliveryFee,
		Total:           plan.Total,
		PaymentMethod:   plan.PaymentMethod,
		CashTendered:    plan.CashTendered,
		CardAmount:      plan.CardAmount,
		ChangeDue:       plan.ChangeDue,
		DeliveryRegion:  plan.DeliveryRegion,
		DeliveryAddress: plan.DeliveryAddress,
		RefundState:     model.RefundNone,
		Note:            plan.Note,
	}
	if plan.ExternalRef != "" {
		ref := plan.ExternalRef
		sale.ExternalRef = &ref
	}
	if plan.Channel == model.ChannelPOS {
		sale.Status = model.StatusCompleted
		sale.PaymentStatus = model.PaymentPaid
	} else {
		sale.Status = model.StatusPending
		sale.PaymentStatus = model.PaymentPending
	}

	err := c.uow.Do(ctx, "sale.commit", func(tx *gorm.DB) error {
		// The closure may run more than once; start every attempt clean.
		sale.ID = uuid.New()
		sale.Reference = newReference(plan.Channel, sale.ID, now)
		sale.CreatedBy = actor.ID
		sale.UpdatedBy = actor.ID
		sale.CustomerID = nil
		sale.Customer = nil
		sale.CustomerNeedsReview = false
		sale.PointsAwarded = 0
		sale.Lines = make([]model.SaleLine, len(plan.Lines))
		for i, l := range plan.Lines {
			l.ID = uuid.Nil
			l.SaleID = uuid.Nil
			sale.Lines[i] = l
		}

		// 1. Resolve the buyer.
		customer, ambiguous, err := c.directory.Resolve(tx, plan.Customer)
		if err != nil {
			return err
		}
		if customer != nil {
			sale.CustomerID = &customer.ID
			sale.PointsAwarded = sale.Total / 100
		}
		sale.CustomerNeedsReview = ambiguous

		// 2. Sale row and its lines.
		if err := c.saleRepo.CreateTx(tx, sale); err != nil {
			return err
		}

		// 3. Take the stock, in product id order so two baskets never wait
		// on each other's rows in opposite order.
		lines := make([]model.SaleLine, len(sale.Lines))
		copy(lines, sale.Lines)
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].ProductID.String() < lines[j].ProductID.String()
		})
		ref := MovementRef{ID: &sale.ID, Type: model.RefSale, Reason: "sale " + sale.Reference, ActorID: actor.ID}
		for _, l := range lines {
			if _, err := c.ledger.ReserveAndDecrement(tx, l.ProductID, l.Quantity, ref); err != nil {
				return err
			}
		}

		// 4. Loyalty.
		if customer != nil {
			if err := c.directory.AwardPoints(tx, customer.ID, sale.PointsAwarded); err != nil {
				return err
			}
			customer.LoyaltyPoints += sale.PointsAwarded
			sale.Customer = customer
		}

		// 5. Notification goes out through the outbox, after commit.
		return c.outboxRepo.Enqueue(tx, model.EventSaleCommitted, sale.ID, model.NewSaleEvent(sale, actor))
	})
	if err != nil {
		if plan.ExternalRef != "" && database.IsDuplicateKey(err) {
			// A concurrent request with the same key won the insert.
			if existing, ok := c.findReplay(ctx, plan.ExternalRef); ok {
				return existing, true, nil
			}
		}
		return nil, false, err
	}

	if plan.ExternalRef != "" {
		c.idem.Remember(ctx, plan.ExternalRef, sale.ID)
	}
	zap.S().Infow("sale committed",
		"sale_id", sale.ID, "reference", sale.Reference, "channel", sale.Channel,
		"total", sale.Total, "actor", actor.ID)
	return sale, false, nil
}

func (c *transactionCommitter) Replay(ctx context.Context, key string) (*model.Sale, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	return c.findReplay(ctx, key)
}

// findReplay looks for the sale already produced by an idempotency key.
func (c *transactionCommitter) findReplay(ctx context.Context, key string) (*model.Sale, bool) {
	if id, ok := c.idem.Lookup(ctx, key); ok {
		if sale, err := c.saleRepo.FindByID(ctx, id); err == nil {
			return sale, true
		}
	}
	sale, err := c.saleRepo.FindByExternalRef(ctx, key)
	if err != nil {
		zap.S().Warnw("idempotency lookup in database failed", "key", key, "error", err)
		return nil, false
	}
	if sale == nil {
		return nil, false
	}
	c.idem.Remember(ctx, key, sale.ID)
	if full, err := c.saleRepo.FindByID(ctx, sale.ID); err == nil {
		return full, true
	}
	return sale, true
}

func (c *transactionCommitter) Transition(ctx context.Context, saleID uuid.UUID, to model.SaleStatus, actor model.Actor) (*model.Sale, error) {
	err := c.uow.Do(ctx, "sale.transition", func(tx *gorm.DB) error {
		sale, err := lockSale(tx, c.saleRepo, saleID)
		if err != nil {
			return err
		}
		if sale.Channel != model.ChannelOnline {
			return fmt.Errorf("%w: %s sales have no fulfilment steps", ErrInvalidTransition, sale.Channel)
		}
		if !CanTransition(sale.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sale.Status, to)
		}

		fields := map[string]interface{}{"status": to, "updated_by": actor.ID}
		sale.Status = to
		if to == model.StatusDelivered {
			// Cash on delivery is collected at the door.
			fields["payment_status"] = model.PaymentPaid
			sale.PaymentStatus = model.PaymentPaid
		}
		if err := c.saleRepo.UpdateStatusTx(tx, sale.ID, fields); err != nil {
			return err
		}
		return c.outboxRepo.Enqueue(tx, model.EventSaleStatus, sale.ID, model.NewSaleEvent(sale, actor))
	})
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, saleID)
}

// Cancel reverses an order that has not been delivered. Its stock was taken
// at commit, so the reversal is a full refund followed by the status change.
func (c *transactionCommitter) Cancel(ctx context.Context, saleID uuid.UUID, reason string, actor model.Actor) (*model.Sale, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRefundReasonRequired
	}

	err := c.uow.Do(ctx, "sale.cancel", func(tx *gorm.DB) error {
		sale, err := lockSale(tx, c.saleRepo, saleID)
		if err != nil {
			return err
		}
		if sale.Channel != model.ChannelOnline || !cancellable[sale.Status] {
			return fmt.Errorf("%w: cannot cancel a %s %s sale", ErrInvalidTransition, sale.Status, sale.Channel)
		}

		if _, err := c.refunds.RefundTx(tx, sale, RefundRequest{
			SaleID: sale.ID,
			Type:   model.RefundTypeFull,
			Reason: "cancelled: " + reason,
		}, actor); err != nil {
			return err
		}

		sale.Status = model.StatusCancelled
		if err := c.saleRepo.UpdateStatusTx(tx, sale.ID, map[string]interface{}{
			"status":     model.StatusCancelled,
			"updated_by": actor.ID,
		}); err != nil {
			return err
		}
		return c.outboxRepo.Enqueue(tx, model.EventSaleStatus, sale.ID, model.NewSaleEvent(sale, actor))
	})
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, saleID)
}

func (c *transactionCommitter) Get(ctx context.Context, saleID uuid.UUID) (*model.Sale, error) {
	sale, err := c.saleRepo.FindByID(ctx, saleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}

func (c *transactionCommitter) List(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error) {
	return c.saleRepo.List(ctx, filter)
}

// lockSale takes the sale's row lock for the rest of tx.
func lockSale(tx *gorm.DB, repo repository.SaleRepository, saleID uuid.UUID) (*model.Sale, error) {
	sale, err := repo.FindForUpdateTx(tx, saleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}
