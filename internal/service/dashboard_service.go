package service

import (
	"context"
	"time"

	"go-retail-core/internal/repository"
)

// DashboardService is read-only; it never touches the write path.
type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error)
	GetSalesSummary(ctx context.Context, days int) (*repository.SalesSummary, error)
}

type dashboardService struct {
	repo repository.DashboardRepository
}

func NewDashboardService(repo repository.DashboardRepository) DashboardService {
	return &dashboardService{repo: repo}
}

func window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 7
	}
	end := time.Now()
	return end.AddDate(0, 0, -days), end
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	start, end := window(days)
	return s.repo.GetStockMovement(ctx, start, end)
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx)
}

func (s *dashboardService) GetSalesSummary(ctx context.Context, days int) (*repository.SalesSummary, error) {
	start, end := window(days)
	return s.repo.GetSalesSummary(ctx, start, end)
}
