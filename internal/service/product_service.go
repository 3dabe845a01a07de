package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/pkg/database"
	"go-retail-core/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	SKU           string           `json:"sku" validate:"required"`
	Name          string           `json:"name" validate:"required"`
	Unit          string           `json:"unit"`
	Price         int64            `json:"price" validate:"gte=0"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	InitialStock  int              `json:"initial_stock" validate:"gte=0"`
	MinStockLevel int              `json:"min_stock_level" validate:"gte=0"`
}

// ProductService is the catalogue side. Stock after creation only moves
// through the StockLedger.
type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest, actor model.Actor) (*model.Product, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(pRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: pRepo}
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest, actor model.Actor) (*model.Product, error) {
	// 1. Shape of the request.
	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.FirstError(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if req.TaxRate != nil && (req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(1))) {
		return nil, fmt.Errorf("%w: tax_rate must be between 0 and 1", ErrValidation)
	}

	// 2. SKU must be free.
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return nil, ErrSKUExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 3. Opening stock becomes the ledger's baseline.
	p := &model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Unit:          req.Unit,
		Price:         req.Price,
		CurrentStock:  req.InitialStock,
		InitialStock:  req.InitialStock,
		MinStockLevel: req.MinStockLevel,
	}
	if req.TaxRate != nil {
		p.TaxRate = decimal.NewNullDecimal(*req.TaxRate)
	}
	p.CreatedBy = actor.ID
	p.UpdatedBy = actor.ID

	if err := s.productRepo.Create(ctx, p); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrSKUExists
		}
		return nil, err
	}
	return p, nil
}

func (s *productService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindAll(ctx)
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.productRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}
