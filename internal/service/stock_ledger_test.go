package service

import (
	"context"
	"testing"

	"go-retail-core/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAdjust_RecordsSignedMovement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 5, &noTax)

	m, err := h.ledger.Adjust(ctx, p.ID, 7, "delivery from supplier", cashier)
	require.NoError(t, err)
	assert.Equal(t, 7, m.Quantity)
	assert.Equal(t, 12, m.StockAfter)
	assert.Equal(t, model.RefAdjustment, m.ReferenceType)
	assert.Nil(t, m.ReferenceID)

	m, err = h.ledger.Adjust(ctx, p.ID, -4, "shrinkage", cashier)
	require.NoError(t, err)
	assert.Equal(t, -4, m.Quantity)
	assert.Equal(t, 8, h.stock(t, p.ID))

	history, err := h.ledger.History(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	h.requireBalanced(t)
}

func TestAdjust_RejectsNegativeResult(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 3, &noTax)

	_, err := h.ledger.Adjust(ctx, p.ID, -4, "count correction", cashier)
	assert.ErrorIs(t, err, ErrNegativeStockResult)
	assert.Equal(t, 3, h.stock(t, p.ID))
	assert.Zero(t, h.count(t, &model.InventoryMovement{}))
}

func TestAdjust_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 3, &noTax)

	_, err := h.ledger.Adjust(ctx, p.ID, 0, "nothing", cashier)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.ledger.Adjust(ctx, p.ID, 1, "", cashier)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.ledger.Adjust(ctx, newID(), 1, "ghost", cashier)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAdjust_EmitsLowStockEvent(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "P-1", 1000, 3, &noTax)

	_, err := h.ledger.Adjust(context.Background(), p.ID, -2, "breakage", cashier)
	require.NoError(t, err)

	var types []string
	require.NoError(t, h.db.Model(&model.OutboxEvent{}).
		Where("aggregate_id = ?", p.ID).Order("created_at").Pluck("event_type", &types).Error)
	assert.ElementsMatch(t, []string{model.EventStockLow, model.EventStockAdjusted}, types)
}

func TestReserveAndDecrement_TellsMissingFromShort(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "P-1", 1000, 2, &noTax)
	ref := MovementRef{Type: model.RefSale, ActorID: cashier.ID}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		_, err := h.ledger.ReserveAndDecrement(tx, p.ID, 3, ref)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		_, err = h.ledger.ReserveAndDecrement(tx, newID(), 1, ref)
		assert.ErrorIs(t, err, ErrProductNotFound)

		_, err = h.ledger.ReserveAndDecrement(tx, p.ID, 0, ref)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, h.stock(t, p.ID))
}

func TestReconcile_DetectsDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 5, &noTax)
	h.sell(t, posRequest(alice, line(p, 2)))

	r, err := h.ledger.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, r.Balanced)
	assert.Equal(t, int64(-2), r.MovementSum)
	assert.Equal(t, int64(3), r.Expected)

	// A write that skipped the ledger.
	require.NoError(t, h.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("current_stock", 9).Error)

	r, err = h.ledger.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, r.Balanced)
	assert.Equal(t, 9, r.CurrentStock)

	_, err = h.ledger.Reconcile(ctx, newID())
	assert.ErrorIs(t, err, ErrProductNotFound)
}
