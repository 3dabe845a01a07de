package service

import (
	"context"
	"testing"

	"go-retail-core/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundReq(sale *model.Sale, typ model.RefundType, reason string, lines ...RefundLineRequest) RefundRequest {
	return RefundRequest{SaleID: sale.ID, Type: typ, Reason: reason, Lines: lines}
}

func TestRefund_FullRestoresStockAndPoints(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(p, 3)))

	refund, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypeFull, "faulty"), cashier)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), refund.Amount)
	assert.Equal(t, int64(30), refund.PointsReversed)
	assert.Zero(t, refund.PointsShortfall)
	assert.Equal(t, 5, h.stock(t, p.ID))
	assert.Zero(t, h.points(t, *sale.CustomerID))

	got, err := h.committer.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, got.Status)
	assert.Equal(t, model.PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, model.RefundFull, got.RefundState)
	h.requireBalanced(t)

	_, err = h.refunds.Refund(ctx, refundReq(sale, model.RefundTypeFull, "again"), cashier)
	assert.ErrorIs(t, err, ErrAlreadyRefunded)
}

func TestRefund_PartialLeavesSaleCompleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(p, 3)))

	refund, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "one broken",
		RefundLineRequest{SaleLineID: sale.Lines[0].ID, Quantity: 1}), cashier)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), refund.Amount)
	require.Len(t, refund.Lines, 1)
	assert.Equal(t, 1, refund.Lines[0].Quantity)
	assert.Equal(t, 3, h.stock(t, p.ID))
	assert.Equal(t, int64(20), h.points(t, *sale.CustomerID))

	got, err := h.committer.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, model.RefundPartial, got.RefundState)
	assert.Equal(t, model.PaymentPartiallyRefunded, got.PaymentStatus)
	assert.Equal(t, int64(1000), got.RefundedAmount)
	h.requireBalanced(t)
}

func TestRefund_PartialsAddUpToTotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rate := decimal.RequireFromString("0.15")
	p := h.product(t, "P-1", 333, 10, &rate)

	req := posRequest(alice, line(p, 3))
	req.DiscountAmount = 7
	sale := h.sell(t, req)
	// 999 + round(149.85)=150 - 7
	require.Equal(t, int64(1142), sale.Total)

	var refunded, reversed int64
	for i := 0; i < 3; i++ {
		r, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "return",
			RefundLineRequest{ProductID: p.ID, Quantity: 1}), cashier)
		require.NoError(t, err)
		refunded += r.Amount
		reversed += r.PointsReversed
	}

	assert.Equal(t, sale.Total, refunded)
	assert.Equal(t, sale.PointsAwarded, reversed)
	got, err := h.committer.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, got.Status)
	assert.Equal(t, 10, h.stock(t, p.ID))
}

func TestRefund_InvalidLineSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 5, &noTax)
	other := h.product(t, "P-2", 1000, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(p, 2)))

	cases := []struct {
		name  string
		lines []RefundLineRequest
	}{
		{"no lines", nil},
		{"more than sold", []RefundLineRequest{{SaleLineID: sale.Lines[0].ID, Quantity: 3}}},
		{"split over the limit", []RefundLineRequest{
			{SaleLineID: sale.Lines[0].ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 1},
		}},
		{"product not in sale", []RefundLineRequest{{ProductID: other.ID, Quantity: 1}}},
		{"zero quantity", []RefundLineRequest{{SaleLineID: sale.Lines[0].ID, Quantity: 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "x", tc.lines...), cashier)
			assert.ErrorIs(t, err, ErrInvalidLineSelection)
		})
	}

	// Already refunded units count against the line.
	_, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "first",
		RefundLineRequest{SaleLineID: sale.Lines[0].ID, Quantity: 1}), cashier)
	require.NoError(t, err)
	_, err = h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "second",
		RefundLineRequest{SaleLineID: sale.Lines[0].ID, Quantity: 2}), cashier)
	assert.ErrorIs(t, err, ErrInvalidLineSelection)

	assert.Equal(t, 4, h.stock(t, p.ID))
	h.requireBalanced(t)
}

func TestRefund_RequiresReason(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "P-1", 1000, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(p, 1)))

	_, err := h.refunds.Refund(context.Background(), refundReq(sale, model.RefundTypeFull, "   "), cashier)
	assert.ErrorIs(t, err, ErrRefundReasonRequired)
	assert.Equal(t, 4, h.stock(t, p.ID))
}

func TestRefund_PendingOrderMustBeCancelled(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "P-1", 1000, 5, &noTax)
	order := h.sell(t, onlineRequest(alice, line(p, 1)))

	_, err := h.refunds.Refund(context.Background(), refundReq(order, model.RefundTypeFull, "x"), cashier)
	assert.ErrorIs(t, err, ErrRefundNotAllowed)
}

func TestRefund_UnknownSale(t *testing.T) {
	h := newHarness(t)
	_, err := h.refunds.Refund(context.Background(), RefundRequest{SaleID: newID(), Type: model.RefundTypeFull, Reason: "x"}, cashier)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestRefund_ClampsPointsAlreadySpent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "P-1", 1000, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(p, 3)))

	// 25 of the 30 points were redeemed elsewhere.
	require.NoError(t, h.db.Model(&model.Customer{}).Where("id = ?", *sale.CustomerID).
		Update("loyalty_points", 5).Error)

	refund, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypeFull, "faulty"), cashier)
	require.NoError(t, err)
	assert.Equal(t, int64(5), refund.PointsReversed)
	assert.Equal(t, int64(25), refund.PointsShortfall)
	assert.Zero(t, h.points(t, *sale.CustomerID))
}

func TestRefund_FullAfterPartialIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.product(t, "A", 1000, 5, &noTax)
	b := h.product(t, "B", 400, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(a, 2), line(b, 1)))

	_, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "one",
		RefundLineRequest{ProductID: a.ID, Quantity: 1}), cashier)
	require.NoError(t, err)

	_, err = h.refunds.Refund(ctx, refundReq(sale, model.RefundTypeFull, "all of it"), cashier)
	assert.ErrorIs(t, err, ErrRefundExceedsOriginal)
	assert.Equal(t, 4, h.stock(t, a.ID))
	assert.Equal(t, 4, h.stock(t, b.ID))

	// What is left goes back as a partial refund.
	rest, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "the rest",
		RefundLineRequest{ProductID: a.ID, Quantity: 1},
		RefundLineRequest{ProductID: b.ID, Quantity: 1}), cashier)
	require.NoError(t, err)
	assert.Equal(t, int64(1400), rest.Amount)

	got, err := h.committer.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, got.Status)
	assert.Equal(t, got.Total, got.RefundedAmount)
	assert.Equal(t, 5, h.stock(t, a.ID))
	assert.Equal(t, 5, h.stock(t, b.ID))
	h.requireBalanced(t)
}

func TestRefund_UnitByUnitReturnsEveryUnit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.product(t, "A", 1, 5, &noTax)
	b := h.product(t, "B", 1, 5, &noTax)

	req := posRequest(model.ContactInfo{}, line(a, 2), line(b, 2))
	req.DiscountAmount = 2
	sale := h.sell(t, req)
	require.Equal(t, int64(2), sale.Total)

	var refunded int64
	for _, step := range []*model.Product{a, b, a} {
		r, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "return",
			RefundLineRequest{ProductID: step.ID, Quantity: 1}), cashier)
		require.NoError(t, err)
		refunded += r.Amount
	}
	assert.Less(t, refunded, sale.Total)

	got, err := h.committer.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, model.RefundPartial, got.RefundState)

	last, err := h.refunds.Refund(ctx, refundReq(sale, model.RefundTypePartial, "return",
		RefundLineRequest{ProductID: b.ID, Quantity: 1}), cashier)
	require.NoError(t, err)
	assert.Equal(t, sale.Total, refunded+last.Amount)

	got, err = h.committer.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, got.Status)
	assert.Equal(t, 5, h.stock(t, a.ID))
	assert.Equal(t, 5, h.stock(t, b.ID))
	h.requireBalanced(t)
}

func TestRefund_RejectsUnknownType(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "P-1", 1000, 5, &noTax)
	sale := h.sell(t, posRequest(alice, line(p, 1)))

	_, err := h.refunds.Refund(context.Background(), refundReq(sale, "store_credit", "x"), cashier)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 4, h.stock(t, p.ID))
}

func TestLineRefundAmountAddsUpToNet(t *testing.T) {
	l := &model.SaleLine{Quantity: 3, LineTotal: 999, TaxAmount: 150, DiscountShare: 7}
	var sum int64
	for done := 0; done < 3; done++ {
		sum += lineRefundAmount(l, done, 1)
	}
	assert.Equal(t, l.Net(), sum)
	assert.Equal(t, int64(380), lineRefundAmount(l, 0, 1))
	assert.Equal(t, l.Net(), lineRefundAmount(l, 0, 3))
}
