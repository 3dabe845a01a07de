package repository

import (
	"context"
	"time"

	"go-retail-core/internal/model"

	"gorm.io/gorm"
)

type DashboardRepository interface {
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetSalesSummary(ctx context.Context, startDate, endDate time.Time) (*SalesSummary, error)
}

// StockMovementData is one day of the stock chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type DashboardStats struct {
	TotalProducts  int64 `json:"total_products"`
	LowStockCount  int64 `json:"low_stock_count"`
	TotalValuation int64 `json:"total_valuation"`
	PendingOrders  int64 `json:"pending_orders"`
}

type SalesSummary struct {
	Gross     int64 `json:"gross"`
	Refunded  int64 `json:"refunded"`
	Net       int64 `json:"net"`
	SaleCount int64 `json:"sale_count"`
	Online    int64 `json:"online"`
	POS       int64 `json:"pos"`
}

type dashboardRepo struct {
	db *gorm.DB
}

func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db}
}

// GetStockMovement aggregates ledger rows per day; inbound is every positive
// movement and outbound the absolute value of every negative one.
func (r *dashboardRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	rows, err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}
	return results, rows.Err()
}

func (r *dashboardRepo) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Where("current_stock <= min_stock_level").Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Select("COALESCE(SUM(current_stock * price), 0)").Scan(&stats.TotalValuation).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Sale{}).Where("status = ?", model.StatusPending).Count(&stats.PendingOrders).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetSalesSummary leaves cancelled orders out of every figure.
func (r *dashboardRepo) GetSalesSummary(ctx context.Context, startDate, endDate time.Time) (*SalesSummary, error) {
	var s SalesSummary
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select(`
			COALESCE(SUM(total), 0) as gross,
			COALESCE(SUM(refunded_amount), 0) as refunded,
			COUNT(*) as sale_count,
			COALESCE(SUM(CASE WHEN channel = ? THEN total ELSE 0 END), 0) as online,
			COALESCE(SUM(CASE WHEN channel = ? THEN total ELSE 0 END), 0) as pos
		`, model.ChannelOnline, model.ChannelPOS).
		Where("status <> ? AND created_at BETWEEN ? AND ?", model.StatusCancelled, startDate, endDate).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	s.Net = s.Gross - s.Refunded
	return &s, nil
}
