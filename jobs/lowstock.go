package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vlxd-erp/vlxd-erp/internal/inventory"
)

// StockScanner exposes the ledger query the scan needs.
type StockScanner interface {
	LowStock(ctx context.Context, threshold float64) ([]inventory.Material, error)
}

// LowStockScan checks the ledger and reports materials under threshold.
type LowStockScan struct {
	scanner   StockScanner
	threshold float64
	logger    *slog.Logger
}

// NewLowStockScan builds the scan handler.
func NewLowStockScan(scanner StockScanner, threshold float64, logger *slog.Logger) *LowStockScan {
	return &LowStockScan{scanner: scanner, threshold: threshold, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScan) Handle(ctx context.Context, t *asynq.Task) error {
	materials, err := s.scanner.LowStock(ctx, s.threshold)
	if err != nil {
		return err
	}
	for _, m := range materials {
		s.logger.Warn("low stock",
			slog.String("sku", m.SKU),
			slog.String("name", m.Name),
			slog.Float64("available", m.AvailableQuantity),
			slog.Float64("threshold", s.threshold),
		)
	}
	if len(materials) == 0 {
		s.logger.Info("low stock scan clean", slog.Float64("threshold", s.threshold))
	}
	return nil
}
