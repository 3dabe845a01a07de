package service

import (
	"context"
	"errors"
	"fmt"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementRef says what a stock change belongs to.
type MovementRef struct {
	ID      *uuid.UUID
	Type    model.ReferenceType
	Reason  string
	ActorID string
}

// Reconciliation compares the stored counter with what the ledger implies.
type Reconciliation struct {
	ProductID    uuid.UUID `json:"product_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	InitialStock int       `json:"initial_stock"`
	MovementSum  int64     `json:"movement_sum"`
	Expected     int64     `json:"expected"`
	CurrentStock int       `json:"current_stock"`
	Balanced     bool      `json:"balanced"`
}

// StockLedger owns Product.CurrentStock. Every change goes through here and
// writes exactly one InventoryMovement.
type StockLedger interface {
	ReserveAndDecrement(tx *gorm.DB, productID uuid.UUID, qty int, ref MovementRef) (*model.InventoryMovement, error)
	Restore(tx *gorm.DB, productID uuid.UUID, qty int, ref MovementRef) (*model.InventoryMovement, error)
	Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string, actor model.Actor) (*model.InventoryMovement, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]Reconciliation, error)
	History(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
}

type stockLedger struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	outboxRepo   repository.OutboxRepository
	uow          *unitOfWork
}

func NewStockLedger(pRepo repository.ProductRepository, mRepo repository.MovementRepository, oRepo repository.OutboxRepository, db *gorm.DB, maxAttempts int) StockLedger {
	return &stockLedger{
		productRepo:  pRepo,
		movementRepo: mRepo,
		outboxRepo:   oRepo,
		uow:          newUnitOfWork(db, maxAttempts),
	}
}

func (s *stockLedger) ReserveAndDecrement(tx *gorm.DB, productID uuid.UUID, qty int, ref MovementRef) (*model.InventoryMovement, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	ok, err := s.productRepo.DecrementStock(tx, productID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.explainFailedDecrement(tx, productID, qty)
	}
	return s.record(tx, productID, -qty, ref)
}

// explainFailedDecrement tells a missing product apart from a short one.
func (s *stockLedger) explainFailedDecrement(tx *gorm.DB, productID uuid.UUID, qty int) error {
	var product model.Product
	err := tx.First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, product.Name, product.CurrentStock, qty)
}

func (s *stockLedger) Restore(tx *gorm.DB, productID uuid.UUID, qty int, ref MovementRef) (*model.InventoryMovement, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	ok, err := s.productRepo.IncrementStock(tx, productID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return s.record(tx, productID, qty, ref)
}

func (s *stockLedger) Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string, actor model.Actor) (*model.InventoryMovement, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	ref := MovementRef{Type: model.RefAdjustment, Reason: reason, ActorID: actor.ID}
	var movement *model.InventoryMovement

	err := s.uow.Do(ctx, "stock.adjust", func(tx *gorm.DB) error {
		// 1. Adjustments only apply to products still on sale.
		var product model.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
			}
			return err
		}

		// 2. Apply the delta through the same guarded writes sales use.
		var err error
		if delta < 0 {
			movement, err = s.ReserveAndDecrement(tx, productID, -delta, ref)
			if errors.Is(err, ErrInsufficientStock) {
				return fmt.Errorf("%w: %s has %d, delta %d", ErrNegativeStockResult, product.Name, product.CurrentStock, delta)
			}
		} else {
			movement, err = s.Restore(tx, productID, delta, ref)
		}
		if err != nil {
			return err
		}

		// 3. Announce it.
		return s.outboxRepo.Enqueue(tx, model.EventStockAdjusted, productID, model.StockEvent{
			ProductID:     productID,
			SKU:           product.SKU,
			Name:          product.Name,
			Delta:         delta,
			CurrentStock:  movement.StockAfter,
			MinStockLevel: product.MinStockLevel,
			Reason:        reason,
			ActorID:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// record appends the ledger row for a change already applied in tx.
func (s *stockLedger) record(tx *gorm.DB, productID uuid.UUID, qty int, ref MovementRef) (*model.InventoryMovement, error) {
	product, err := s.productRepo.LockedStock(tx, productID)
	if err != nil {
		return nil, err
	}

	m := &model.InventoryMovement{
		ProductID:     productID,
		Quantity:      qty,
		StockAfter:    product.CurrentStock,
		ReferenceID:   ref.ID,
		ReferenceType: ref.Type,
		Reason:        ref.Reason,
		ActorID:       ref.ActorID,
	}
	if err := s.movementRepo.Append(tx, m); err != nil {
		return nil, err
	}

	if qty < 0 && product.IsLowStock() {
		err := s.outboxRepo.Enqueue(tx, model.EventStockLow, productID, model.StockEvent{
			ProductID:     productID,
			SKU:           product.SKU,
			Name:          product.Name,
			Delta:         qty,
			CurrentStock:  product.CurrentStock,
			MinStockLevel: product.MinStockLevel,
			ActorID:       ref.ActorID,
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *stockLedger) Reconcile(ctx context.Context, productID uuid.UUID) (*Reconciliation, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	sum, err := s.movementRepo.SumByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	r := reconcile(product, sum)
	return &r, nil
}

func (s *stockLedger) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	sums, err := s.movementRepo.SumAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Reconciliation, 0, len(products))
	for i := range products {
		out = append(out, reconcile(&products[i], sums[products[i].ID]))
	}
	return out, nil
}

func reconcile(p *model.Product, movementSum int64) Reconciliation {
	expected := int64(p.InitialStock) + movementSum
	return Reconciliation{
		ProductID:    p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		InitialStock: p.InitialStock,
		MovementSum:  movementSum,
		Expected:     expected,
		CurrentStock: p.CurrentStock,
		Balanced:     expected == int64(p.CurrentStock),
	}
}

func (s *stockLedger) History(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return s.movementRepo.FindByProduct(ctx, productID, limit)
}
