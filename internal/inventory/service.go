package inventory

import (
	"context"
	"fmt"
	"time"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (*Material, error)
	GetBySKU(ctx context.Context, sku string) (*Material, error)
	List(ctx context.Context, req ListRequest) ([]Material, int, error)
	ListMovements(ctx context.Context, materialID int64, limit int) ([]Movement, error)
	LowStock(ctx context.Context, threshold float64) ([]Material, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	InsertMaterial(ctx context.Context, m Material) (int64, error)
	UpdateMaterial(ctx context.Context, m Material) error
	GetMaterialForUpdate(ctx context.Context, id int64) (*Material, error)
	SetAvailable(ctx context.Context, id int64, quantity float64) error
	InsertMovement(ctx context.Context, mv Movement) error
}

// Service coordinates inventory operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateMaterial registers a new material, optionally with opening stock.
func (s *Service) CreateMaterial(ctx context.Context, input CreateMaterialInput) (*Material, error) {
	if existing, err := s.repo.GetBySKU(ctx, input.SKU); err == nil && existing != nil {
		return nil, ErrDuplicateSKU
	}

	now := time.Now()
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m := Material{
			SKU:               input.SKU,
			Name:              input.Name,
			Unit:              input.Unit,
			UnitPrice:         input.UnitPrice,
			AvailableQuantity: input.InitialQuantity,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		newID, err := tx.InsertMaterial(ctx, m)
		if err != nil {
			return fmt.Errorf("insert material: %w", err)
		}
		id = newID
		if input.InitialQuantity > 0 {
			return tx.InsertMovement(ctx, Movement{
				MaterialID: id,
				Quantity:   input.InitialQuantity,
				Ref:        "material:opening",
				Note:       "opening stock",
				CreatedAt:  now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateMaterial edits master data. Availability is only changed through
// receipts, adjustments and deliveries.
func (s *Service) UpdateMaterial(ctx context.Context, id int64, input UpdateMaterialInput) (*Material, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.GetMaterialForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			m.Name = *input.Name
		}
		if input.Unit != nil {
			m.Unit = *input.Unit
		}
		if input.UnitPrice != nil {
			m.UnitPrice = *input.UnitPrice
		}
		m.UpdatedAt = time.Now()
		return tx.UpdateMaterial(ctx, *m)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Receive posts inbound stock.
func (s *Service) Receive(ctx context.Context, id int64, input ReceiveInput) (*Material, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.applyMovement(ctx, id, input.Quantity, "material:receive", input.Note)
}

// Adjust posts a signed manual correction, rejecting negative results.
func (s *Service) Adjust(ctx context.Context, id int64, input AdjustInput) (*Material, error) {
	if input.Quantity == 0 {
		return nil, ErrInvalidQuantity
	}
	return s.applyMovement(ctx, id, input.Quantity, "material:adjust", input.Note)
}

func (s *Service) applyMovement(ctx context.Context, id int64, qty float64, ref, note string) (*Material, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.GetMaterialForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next := m.AvailableQuantity + qty
		if next < 0 {
			return fmt.Errorf("%s: have %.2f, change %.2f: %w", m.Name, m.AvailableQuantity, qty, ErrNegativeStock)
		}
		if err := tx.SetAvailable(ctx, id, next); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, Movement{
			MaterialID: id,
			Quantity:   qty,
			Ref:        ref,
			Note:       note,
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// GetByID retrieves one material.
func (s *Service) GetByID(ctx context.Context, id int64) (*Material, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAvailable returns current available stock, never negative.
func (s *Service) GetAvailable(ctx context.Context, id int64) (float64, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if m.AvailableQuantity < 0 {
		return 0, nil
	}
	return m.AvailableQuantity, nil
}

// List returns a paginated material listing.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Material, int, error) {
	return s.repo.List(ctx, req)
}

// Movements returns the recent movement trail for one material.
func (s *Service) Movements(ctx context.Context, id int64, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, id, limit)
}

// LowStock lists materials at or below the threshold.
func (s *Service) LowStock(ctx context.Context, threshold float64) ([]Material, error) {
	return s.repo.LowStock(ctx, threshold)
}
