package service

import (
	"context"
	"testing"

	"go-retail-core/internal/config"
	"go-retail-core/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_PricesFromCatalogue(t *testing.T) {
	h := newHarness(t)
	reduced := decimal.RequireFromString("0.05")
	a := h.product(t, "A", 1999, 10, nil)      // store default 15%
	b := h.product(t, "B", 250, 10, &reduced) // override

	hint := int64(1)
	plan, err := h.builder.Build(context.Background(), SaleRequest{
		Channel: model.ChannelPOS,
		Lines: []LineRequest{
			{ProductID: a.ID, Quantity: 1, Price: &hint},
			{ProductID: b.ID, Quantity: 3},
			{ProductID: a.ID, Quantity: 1},
		},
		Payment: PaymentInfo{Method: model.PaymentCash, CashTendered: 10000},
	})
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, a.ID, plan.Lines[0].ProductID)
	assert.Equal(t, 2, plan.Lines[0].Quantity)
	assert.Equal(t, int64(3998), plan.Lines[0].LineTotal)
	assert.Equal(t, int64(600), plan.Lines[0].TaxAmount) // 599.7
	assert.Equal(t, int64(750), plan.Lines[1].LineTotal)
	assert.Equal(t, int64(38), plan.Lines[1].TaxAmount) // 37.5 rounds up

	assert.Equal(t, int64(4748), plan.Subtotal)
	assert.Equal(t, int64(638), plan.TaxAmount)
	assert.Equal(t, int64(5386), plan.Total)
	assert.Zero(t, plan.DeliveryFee)
	assert.Equal(t, int64(10000-5386), plan.ChangeDue)
}

func TestBuild_SameInputSameTotal(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "A", 1234, 10, nil)

	var totals []int64
	for _, hint := range []int64{1, 99999, 0} {
		hint := hint
		plan, err := h.builder.Build(context.Background(), posRequest(model.ContactInfo{},
			LineRequest{ProductID: p.ID, Quantity: 4, Price: &hint}))
		require.NoError(t, err)
		totals = append(totals, plan.Total)
	}
	assert.Equal(t, totals[0], totals[1])
	assert.Equal(t, totals[0], totals[2])
}

func TestBuild_Errors(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "A", 1000, 2, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  SaleRequest
		want error
	}{
		{"empty cart", posRequest(model.ContactInfo{}), ErrEmptyCart},
		{"unknown product", posRequest(model.ContactInfo{}, LineRequest{ProductID: newID(), Quantity: 1}), ErrProductNotFound},
		{"zero quantity", posRequest(model.ContactInfo{}, line(p, 0)), ErrInvalidQuantity},
		{"over stock", posRequest(model.ContactInfo{}, line(p, 3)), ErrInsufficientStock},
		{"merged lines over stock", posRequest(model.ContactInfo{}, line(p, 2), line(p, 1)), ErrInsufficientStock},
		{"online without region", SaleRequest{Channel: model.ChannelOnline, Lines: []LineRequest{line(p, 1)}}, ErrDeliveryRequired},
		{"short cash", SaleRequest{Channel: model.ChannelPOS, Lines: []LineRequest{line(p, 1)},
			Payment: PaymentInfo{Method: model.PaymentCash, CashTendered: 100}}, ErrInvalidPayment},
		{"unknown method", SaleRequest{Channel: model.ChannelPOS, Lines: []LineRequest{line(p, 1)},
			Payment: PaymentInfo{Method: "cheque"}}, ErrInvalidPayment},
		{"negative discount", SaleRequest{Channel: model.ChannelPOS, Lines: []LineRequest{line(p, 1)},
			DiscountAmount: -1}, ErrInvalidDiscount},
		{"discount over 100%", SaleRequest{Channel: model.ChannelPOS, Lines: []LineRequest{line(p, 1)},
			DiscountPercent: decimal.NewFromInt(101)}, ErrInvalidDiscount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.builder.Build(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuild_RejectsMalformedEmail(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "A", 1000, 5, &noTax)

	req := posRequest(model.ContactInfo{Name: "Bob", Email: "not an email"}, line(p, 1))
	_, err := h.builder.Build(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, h.count(t, &model.Customer{}))

	req.Customer.Email = "  bob@example.com "
	plan, err := h.builder.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", plan.Customer.Email)
}

func TestBuild_DeliveryFeeByRegion(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "A", 1000, 10, &noTax)

	for region, fee := range map[string]int64{"Downtown": 0, "north": 700, "far away": 500} {
		req := onlineRequest(model.ContactInfo{}, line(p, 1))
		req.Delivery.Region = region
		plan, err := h.builder.Build(context.Background(), req)
		require.NoError(t, err, region)
		assert.Equal(t, fee, plan.DeliveryFee, region)
		assert.Equal(t, 1000+fee, plan.Total, region)
		assert.Equal(t, model.PaymentCOD, plan.PaymentMethod)
	}
}

func TestBuild_DiscountIsSpreadOverLines(t *testing.T) {
	h := newHarness(t)
	a := h.product(t, "A", 1000, 10, &noTax)
	b := h.product(t, "B", 2000, 10, &noTax)

	req := posRequest(model.ContactInfo{}, line(a, 1), line(b, 1))
	req.DiscountAmount = 100
	req.DiscountPercent = decimal.NewFromInt(10)
	plan, err := h.builder.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(400), plan.DiscountAmount)
	assert.Equal(t, int64(2600), plan.Total)
	assert.Equal(t, plan.DiscountAmount, plan.Lines[0].DiscountShare+plan.Lines[1].DiscountShare)
	assert.Equal(t, int64(133), plan.Lines[0].DiscountShare)
	assert.Equal(t, int64(267), plan.Lines[1].DiscountShare)
}

func TestSettle_Split(t *testing.T) {
	plan := &SalePlan{Channel: model.ChannelPOS, Total: 5000}
	require.NoError(t, settle(plan, PaymentInfo{Method: "SPLIT", CardAmount: 3000, CashTendered: 2500}))
	assert.Equal(t, model.PaymentSplit, plan.PaymentMethod)
	assert.Equal(t, int64(3000), plan.CardAmount)
	assert.Equal(t, int64(500), plan.ChangeDue)

	plan = &SalePlan{Channel: model.ChannelPOS, Total: 5000}
	assert.ErrorIs(t, settle(plan, PaymentInfo{Method: model.PaymentSplit, CardAmount: 5000}), ErrInvalidPayment)
}

func TestAllocate(t *testing.T) {
	cases := []struct {
		amount  int64
		weights []int64
		want    []int64
	}{
		{0, []int64{1, 2}, []int64{0, 0}},
		{10, []int64{0, 0}, []int64{0, 0}},
		{10, []int64{1, 1, 1}, []int64{4, 3, 3}},
		{7, []int64{1, 1}, []int64{4, 3}},
		{5, []int64{100, 0, 300}, []int64{1, 0, 4}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, allocate(tc.amount, tc.weights))
	}
}

func TestDeliveryRates(t *testing.T) {
	rates := NewDeliveryRates(config.DeliveryConfig{
		FlatFee:     300,
		FreeRegions: []string{"central"},
		RegionFees:  map[string]int64{"islands": 1500},
	})
	assert.Zero(t, rates.Fee(" Central "))
	assert.Equal(t, int64(1500), rates.Fee("ISLANDS"))
	assert.Equal(t, int64(300), rates.Fee("elsewhere"))
}
