package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go-retail-core/internal/config"
	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type LineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity"`
	// Price is accepted so older clients keep working, and ignored.
	Price *int64 `json:"price,omitempty"`
}

type DeliveryInfo struct {
	Region  string `json:"region"`
	Address string `json:"address"`
}

// PaymentInfo is recorded as given; nothing is charged.
type PaymentInfo struct {
	Method       string `json:"method"`
	CashTendered int64  `json:"cash_tendered"`
	CardAmount   int64  `json:"card_amount"`
}

type SaleRequest struct {
	Channel         model.Channel     `json:"-"`
	Lines           []LineRequest     `json:"lines" validate:"dive"`
	Customer        model.ContactInfo `json:"customer"`
	Delivery        *DeliveryInfo     `json:"delivery,omitempty"`
	Payment         PaymentInfo       `json:"payment"`
	DiscountAmount  int64             `json:"discount_amount"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
	Note            string            `json:"note"`
	IdempotencyKey  string            `json:"-"`
}

// SalePlan is a fully priced sale, ready for TransactionCommitter.Commit.
// Lines are in the order the products first appeared in the request.
type SalePlan struct {
	Channel         model.Channel     `json:"channel"`
	Customer        model.ContactInfo `json:"customer"`
	Lines           []model.SaleLine  `json:"lines"`
	Subtotal        int64             `json:"subtotal"`
	TaxAmount       int64             `json:"tax_amount"`
	DiscountAmount  int64             `json:"discount_amount"`
	DeliveryFee     int64             `json:"delivery_fee"`
	Total           int64             `json:"total"`
	PaymentMethod   string            `json:"payment_method"`
	CashTendered    int64             `json:"cash_tendered"`
	CardAmount      int64             `json:"card_amount"`
	ChangeDue       int64             `json:"change_due"`
	DeliveryRegion  string            `json:"delivery_region,omitempty"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	Note            string            `json:"note,omitempty"`
	ExternalRef     string            `json:"-"`
}

// DeliveryRates prices delivery to a region. The table itself is owned
// elsewhere.
type DeliveryRates interface {
	Fee(region string) int64
}

type configDeliveryRates struct {
	cfg config.DeliveryConfig
}

func NewDeliveryRates(cfg config.DeliveryConfig) DeliveryRates {
	return &configDeliveryRates{cfg: cfg}
}

func (r *configDeliveryRates) Fee(region string) int64 {
	key := strings.ToLower(strings.TrimSpace(region))
	for _, free := range r.cfg.FreeRegions {
		if free == key {
			return 0
		}
	}
	if fee, ok := r.cfg.RegionFees[key]; ok {
		return fee
	}
	return r.cfg.FlatFee
}

type SaleBuilder interface {
	Build(ctx context.Context, req SaleRequest) (*SalePlan, error)
}

type saleBuilder struct {
	productRepo    repository.ProductRepository
	rates          DeliveryRates
	defaultTaxRate decimal.Decimal
}

func NewSaleBuilder(pRepo repository.ProductRepository, rates DeliveryRates, defaultTaxRate decimal.Decimal) SaleBuilder {
	return &saleBuilder{productRepo: pRepo, rates: rates, defaultTaxRate: defaultTaxRate}
}

func (b *saleBuilder) Build(ctx context.Context, req SaleRequest) (*SalePlan, error) {
	// 1. Merge duplicate products, keep first-seen order.
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	if err := validator.FirstError(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	var order []uuid.UUID
	qty := make(map[uuid.UUID]int)
	for _, l := range req.Lines {
		if l.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product_id is required", ErrValidation)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
		}
		if _, seen := qty[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		qty[l.ProductID] += l.Quantity
	}

	// 2. Price from the catalogue, never from the request.
	products, err := b.productRepo.FindByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	plan := &SalePlan{
		Channel:     req.Channel,
		Customer:    req.Customer,
		Note:        strings.TrimSpace(req.Note),
		ExternalRef: strings.TrimSpace(req.IdempotencyKey),
	}
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		q := qty[id]
		// Optimistic; the commit re-checks atomically.
		if p.CurrentStock < q {
			return nil, fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, p.Name, p.CurrentStock, q)
		}

		rate := b.defaultTaxRate
		if p.TaxRate.Valid {
			rate = p.TaxRate.Decimal
		}
		lineTotal := p.Price * int64(q)
		line := model.SaleLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			UnitPrice:   p.Price,
			Quantity:    q,
			LineTotal:   lineTotal,
			TaxRate:     rate,
			TaxAmount:   roundHalfUp(decimal.NewFromInt(lineTotal).Mul(rate)),
		}
		plan.Lines = append(plan.Lines, line)
		plan.Subtotal += line.LineTotal
		plan.TaxAmount += line.TaxAmount
	}

	// 3. Discount, spread over the lines for later refunds.
	discount, err := resolveDiscount(plan.Subtotal+plan.TaxAmount, req.DiscountAmount, req.DiscountPercent)
	if err != nil {
		return nil, err
	}
	plan.DiscountAmount = discount
	weights := make([]int64, len(plan.Lines))
	for i := range plan.Lines {
		weights[i] = plan.Lines[i].LineTotal + plan.Lines[i].TaxAmount
	}
	for i, share := range allocate(discount, weights) {
		plan.Lines[i].DiscountShare = share
	}

	// 4. Delivery applies to online orders only.
	if req.Channel == model.ChannelOnline {
		if req.Delivery == nil || strings.TrimSpace(req.Delivery.Region) == "" {
			return nil, ErrDeliveryRequired
		}
		plan.DeliveryRegion = strings.TrimSpace(req.Delivery.Region)
		plan.DeliveryAddress = strings.TrimSpace(req.Delivery.Address)
		plan.DeliveryFee = b.rates.Fee(plan.DeliveryRegion)
	}

	plan.Total = plan.Subtotal + plan.TaxAmount - plan.DiscountAmount + plan.DeliveryFee

	// 5. Settlement fields.
	if err := settle(plan, req.Payment); err != nil {
		return nil, err
	}
	return plan, nil
}

func resolveDiscount(gross, amount int64, percent decimal.Decimal) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative", ErrInvalidDiscount)
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return 0, fmt.Errorf("%w: percent must be between 0 and 100", ErrInvalidDiscount)
	}
	discount := amount + roundHalfUp(decimal.NewFromInt(gross).Mul(percent).Div(hundred))
	if discount > gross {
		discount = gross
	}
	return discount, nil
}

// settle checks the payment against the total. An empty method is allowed
// for quotes; the committer insists on one.
func settle(plan *SalePlan, p PaymentInfo) error {
	method := strings.ToLower(strings.TrimSpace(p.Method))
	if plan.Channel == model.ChannelOnline {
		switch method {
		case "":
			method = model.PaymentCOD
		case model.PaymentCOD, model.PaymentCard:
		default:
			return fmt.Errorf("%w: online orders take %s or %s", ErrInvalidPayment, model.PaymentCOD, model.PaymentCard)
		}
		plan.PaymentMethod = method
		return nil
	}

	plan.PaymentMethod = method
	switch method {
	case "":
		return nil
	case model.PaymentCash:
		if p.CashTendered < plan.Total {
			return fmt.Errorf("%w: cash tendered %d is less than total %d", ErrInvalidPayment, p.CashTendered, plan.Total)
		}
		plan.CashTendered = p.CashTendered
		plan.ChangeDue = p.CashTendered - plan.Total
	case model.PaymentCard:
		if p.CardAmount != 0 && p.CardAmount != plan.Total {
			return fmt.Errorf("%w: card amount must equal total", ErrInvalidPayment)
		}
		plan.CardAmount = plan.Total
	case model.PaymentSplit:
		if p.CardAmount <= 0 || p.CardAmount >= plan.Total {
			return fmt.Errorf("%w: split card amount must be between 0 and total", ErrInvalidPayment)
		}
		cashPart := plan.Total - p.CardAmount
		if p.CashTendered < cashPart {
			return fmt.Errorf("%w: cash tendered %d is less than cash part %d", ErrInvalidPayment, p.CashTendered, cashPart)
		}
		plan.CardAmount = p.CardAmount
		plan.CashTendered = p.CashTendered
		plan.ChangeDue = p.CashTendered - cashPart
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, p.Method)
	}
	return nil
}

// roundHalfUp rounds a non-negative minor-unit amount to a whole unit.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// allocate splits amount across weights in proportion, handing leftover
// units to the largest remainders (ties to the earlier index). The result
// always sums to amount when any weight is positive.
func allocate(amount int64, weights []int64) []int64 {
	shares := make([]int64, len(weights))
	var total int64
	for _, w := range weights {
		total += w
	}
	if amount == 0 || total == 0 {
		return shares
	}

	type rem struct {
		idx int
		r   decimal.Decimal
	}
	rems := make([]rem, len(weights))
	d := decimal.NewFromInt(total)
	var given int64
	for i, w := range weights {
		q, r := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(w)).QuoRem(d, 0)
		shares[i] = q.IntPart()
		given += shares[i]
		rems[i] = rem{idx: i, r: r}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].r.GreaterThan(rems[b].r) })
	for i := int64(0); i < amount-given; i++ {
		shares[rems[i].idx]++
	}
	return shares
}
