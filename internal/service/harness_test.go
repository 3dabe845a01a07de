package service

import (
	"context"
	"testing"

	"go-retail-core/internal/config"
	"go-retail-core/internal/idempotency"
	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	cashier = model.Actor{ID: "staff-1", Name: "Till One"}
	noTax   = decimal.Zero
)

type harness struct {
	db        *gorm.DB
	products  repository.ProductRepository
	movements repository.MovementRepository
	customers repository.CustomerRepository
	sales     repository.SaleRepository
	outbox    repository.OutboxRepository
	idem      *idempotency.Memory

	catalogue ProductService
	ledger    StockLedger
	directory CustomerDirectory
	builder   SaleBuilder
	refunds   RefundProcessor
	committer TransactionCommitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)

	h := &harness{
		db:        db,
		products:  repository.NewProductRepo(db),
		movements: repository.NewMovementRepo(db),
		customers: repository.NewCustomerRepo(db),
		sales:     repository.NewSaleRepo(db),
		outbox:    repository.NewOutboxRepo(db),
		idem:      idempotency.NewMemory(),
	}
	rates := NewDeliveryRates(config.DeliveryConfig{
		FlatFee:     500,
		FreeRegions: []string{"downtown"},
		RegionFees:  map[string]int64{"north": 700},
	})
	h.catalogue = NewProductService(h.products)
	h.ledger = NewStockLedger(h.products, h.movements, h.outbox, db, 3)
	h.directory = NewCustomerDirectory(h.customers)
	h.builder = NewSaleBuilder(h.products, rates, decimal.RequireFromString("0.15"))
	h.refunds = NewRefundProcessor(h.sales, h.outbox, h.ledger, h.directory, db, 3)
	h.committer = NewTransactionCommitter(h.sales, h.outbox, h.ledger, h.directory, h.refunds, h.idem, db, 3)
	return h
}

// product creates a catalogue item. A nil rate uses the store default.
func (h *harness) product(t *testing.T, sku string, price int64, stock int, rate *decimal.Decimal) *model.Product {
	t.Helper()
	p, err := h.catalogue.CreateProduct(context.Background(), CreateProductRequest{
		SKU:           sku,
		Name:          "Item " + sku,
		Price:         price,
		TaxRate:       rate,
		InitialStock:  stock,
		MinStockLevel: 1,
	}, cashier)
	require.NoError(t, err)
	return p
}

func (h *harness) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := h.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.CurrentStock
}

func (h *harness) points(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	c, err := h.customers.FindByID(context.Background(), id)
	require.NoError(t, err)
	return c.LoyaltyPoints
}

func (h *harness) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(m).Count(&n).Error)
	return n
}

func (h *harness) requireBalanced(t *testing.T) {
	t.Helper()
	recs, err := h.ledger.ReconcileAll(context.Background())
	require.NoError(t, err)
	for _, r := range recs {
		require.Truef(t, r.Balanced, "%s: initial %d + movements %d != current %d", r.SKU, r.InitialStock, r.MovementSum, r.CurrentStock)
	}
}

func posRequest(contact model.ContactInfo, lines ...LineRequest) SaleRequest {
	return SaleRequest{
		Channel:  model.ChannelPOS,
		Lines:    lines,
		Customer: contact,
		Payment:  PaymentInfo{Method: model.PaymentCard},
	}
}

func line(p *model.Product, qty int) LineRequest {
	return LineRequest{ProductID: p.ID, Quantity: qty}
}

// sell builds and commits in one go.
func (h *harness) sell(t *testing.T, req SaleRequest) *model.Sale {
	t.Helper()
	ctx := context.Background()
	plan, err := h.builder.Build(ctx, req)
	require.NoError(t, err)
	sale, replayed, err := h.committer.Commit(ctx, plan, cashier)
	require.NoError(t, err)
	require.False(t, replayed)
	return sale
}

var alice = model.ContactInfo{Name: "Alice", Email: "alice@example.com", Phone: "555-0100"}

func newID() uuid.UUID { return uuid.New() }

func repositorySaleFilter(ch model.Channel) repository.SaleFilter {
	return repository.SaleFilter{Channel: ch}
}
