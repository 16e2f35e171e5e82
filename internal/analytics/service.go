// Package analytics aggregates revenue, receivables and stock figures
// for the dashboard reports.
package analytics

import (
	"context"
	"time"

	"github.com/vlxd-erp/vlxd-erp/internal/inventory"
)

// RevenueSummary aggregates invoice money figures over a range.
// Cancelled invoices are excluded.
type RevenueSummary struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	InvoiceCount int       `json:"invoice_count"`
	TotalRevenue float64   `json:"total_revenue"`
	TotalPaid    float64   `json:"total_paid"`
	Outstanding  float64   `json:"outstanding"`
	UnpaidCount  int       `json:"unpaid_count"`
	PartialCount int       `json:"partial_count"`
	PaidCount    int       `json:"paid_count"`
}

// TopMaterial ranks one material by delivered value.
type TopMaterial struct {
	MaterialID     int64   `json:"material_id"`
	MaterialName   string  `json:"material_name"`
	Unit           string  `json:"unit"`
	DeliveredQty   float64 `json:"delivered_qty"`
	DeliveredValue float64 `json:"delivered_value"`
}

// StatusBreakdown counts invoices per lifecycle status.
type StatusBreakdown struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Delivered int `json:"delivered"`
	Cancelled int `json:"cancelled"`
}

// RepositoryPort abstracts report queries.
type RepositoryPort interface {
	RevenueSummary(ctx context.Context, from, to time.Time) (RevenueSummary, error)
	TopMaterials(ctx context.Context, from, to time.Time, limit int) ([]TopMaterial, error)
	StatusBreakdown(ctx context.Context) (StatusBreakdown, error)
}

// InventoryPort exposes the low-stock query from the ledger.
type InventoryPort interface {
	LowStock(ctx context.Context, threshold float64) ([]inventory.Material, error)
}

// Service computes dashboard reports with cache-aside reads.
type Service struct {
	repo      RepositoryPort
	stock     InventoryPort
	cache     *Cache
	threshold float64
}

// NewService builds Service. Cache may be nil.
func NewService(repo RepositoryPort, stock InventoryPort, cache *Cache, lowStockThreshold float64) *Service {
	return &Service{repo: repo, stock: stock, cache: cache, threshold: lowStockThreshold}
}

// Revenue returns the revenue summary for a date range.
func (s *Service) Revenue(ctx context.Context, from, to time.Time) (RevenueSummary, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "revenue", from.Format("20060102"), to.Format("20060102"))
	if err != nil {
		return RevenueSummary{}, err
	}
	var summary RevenueSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.repo.RevenueSummary(ctx, from, to)
	})
	return summary, err
}

// TopMaterials returns the highest-value delivered materials in a range.
func (s *Service) TopMaterials(ctx context.Context, from, to time.Time, limit int) ([]TopMaterial, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	key, err := s.cache.BuildKey(ctx, "analytics", "top_materials", from.Format("20060102"), to.Format("20060102"))
	if err != nil {
		return nil, err
	}
	var top []TopMaterial
	err = s.cache.FetchJSON(ctx, key, &top, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopMaterials(ctx, from, to, limit)
	})
	return top, err
}

// Statuses returns the invoice status breakdown.
func (s *Service) Statuses(ctx context.Context) (StatusBreakdown, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "statuses")
	if err != nil {
		return StatusBreakdown{}, err
	}
	var breakdown StatusBreakdown
	err = s.cache.FetchJSON(ctx, key, &breakdown, func(ctx context.Context) (interface{}, error) {
		return s.repo.StatusBreakdown(ctx)
	})
	return breakdown, err
}

// LowStock returns materials at or below the configured threshold.
// Always fresh: stock moves too often to cache.
func (s *Service) LowStock(ctx context.Context) ([]inventory.Material, error) {
	return s.stock.LowStock(ctx, s.threshold)
}

// Invalidate bumps the cache version after a write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
