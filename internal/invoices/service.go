package invoices

import (
	"context"
	"fmt"
	"time"
)

// MaterialInfo carries the material master data and availability the
// service needs to build line items and stock snapshots.
type MaterialInfo struct {
	ID        int64
	SKU       string
	Name      string
	Unit      string
	UnitPrice float64
	Available float64
}

// Repository defines the interface for invoice persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, req ListRequest) ([]Invoice, int, error)
	GenerateInvoiceNumber(ctx context.Context, date time.Time) (string, error)

	// WithTx runs fn inside one repeatable-read transaction so the
	// invoice row and every touched inventory row commit together.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations. Reads lock the rows
// they return so concurrent writers serialize on the same invoice and
// materials.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	ReplaceItems(ctx context.Context, invoiceID int64, items []LineItem) error
	GetMaterialsForUpdate(ctx context.Context, ids []int64) (map[int64]MaterialInfo, error)
	// AdjustStock applies a delta to a material's available quantity and
	// records a stock movement tagged with ref.
	AdjustStock(ctx context.Context, materialID int64, delta float64, ref string) error
}

// Service provides business logic for invoices.
type Service struct {
	repo Repository
}

// NewService creates a new service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new invoice with all items pending and nothing paid.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Invoice, error) {
	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	number, err := s.repo.GenerateInvoiceNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		proposed, snapshot, err := resolveItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		base := Invoice{
			InvoiceNumber: number,
			Status:        StatusPending,
			DiscountRate:  req.DiscountRate,
			PaymentStatus: PaymentUnpaid,
		}
		// Creation is an edit of an empty invoice: same headroom rules,
		// with nothing to add back.
		built, err := ValidateEditedItems(base, proposed, snapshot)
		if err != nil {
			return err
		}

		built.CustomerName = req.CustomerName
		built.CustomerPhone = req.CustomerPhone
		built.CustomerAddress = req.CustomerAddress
		built.PaymentMethod = req.PaymentMethod
		built.Notes = req.Notes
		built.DeliveryDate = req.DeliveryDate
		built.CreatedAt = now
		built.UpdatedAt = now

		id, err := tx.InsertInvoice(ctx, built)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		invoiceID = id
		if err := tx.ReplaceItems(ctx, id, built.Items); err != nil {
			return fmt.Errorf("insert items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, invoiceID)
}

// UpdateItems replaces the item list of an existing invoice after
// headroom validation. Stock is not moved: availability only changes
// when goods are actually delivered.
func (s *Service) UpdateItems(ctx context.Context, id int64, req UpdateItemsRequest) (*Invoice, error) {
	if err := ValidateUpdateItemsRequest(req); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		proposed, snapshot, err := resolveItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		updated, err := ValidateEditedItems(*inv, proposed, snapshot)
		if err != nil {
			return err
		}
		updated.UpdatedAt = time.Now()

		if err := tx.UpdateInvoice(ctx, updated); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return tx.ReplaceItems(ctx, id, updated.Items)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// ApplyDelivery records the new absolute delivered quantity for one line
// item and commits the matching stock delta in the same transaction.
func (s *Service) ApplyDelivery(ctx context.Context, id int64, req DeliveryRequest) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if req.ItemIndex < 0 || req.ItemIndex >= len(inv.Items) {
			return fmt.Errorf("%w: %d", ErrItemIndexOutOfRange, req.ItemIndex)
		}

		item := inv.Items[req.ItemIndex]
		materials, err := tx.GetMaterialsForUpdate(ctx, []int64{item.MaterialID})
		if err != nil {
			return fmt.Errorf("get material: %w", err)
		}
		snapshot := snapshotOf(materials)

		updated, err := ApplyDelivery(*inv, req.ItemIndex, req.DeliveredQuantity, snapshot)
		if err != nil {
			return err
		}
		updated.UpdatedAt = time.Now()

		delta := updated.Items[req.ItemIndex].DeliveredQuantity - item.DeliveredQuantity
		if delta != 0 {
			ref := fmt.Sprintf("invoice:%s:item:%d", inv.InvoiceNumber, req.ItemIndex)
			if err := tx.AdjustStock(ctx, item.MaterialID, -delta, ref); err != nil {
				return fmt.Errorf("adjust stock: %w", err)
			}
		}

		if err := tx.UpdateInvoice(ctx, updated); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return tx.ReplaceItems(ctx, id, updated.Items)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// SetStatus applies a manual status transition. Confirming or delivering
// requires stock for every undelivered remainder; shortfalls for all
// failing items are reported in one error. Delivering consumes the
// remaining stock of every line in the same transaction.
func (s *Service) SetStatus(ctx context.Context, id int64, req StatusRequest) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		ids := make([]int64, 0, len(inv.Items))
		for _, it := range inv.Items {
			ids = append(ids, it.MaterialID)
		}
		materials, err := tx.GetMaterialsForUpdate(ctx, ids)
		if err != nil {
			return fmt.Errorf("get materials: %w", err)
		}
		snapshot := snapshotOf(materials)

		updated, err := SetStatus(*inv, req.Status, snapshot)
		if err != nil {
			return err
		}
		updated.UpdatedAt = time.Now()

		if req.Status == StatusDelivered {
			for i, before := range inv.Items {
				delta := updated.Items[i].DeliveredQuantity - before.DeliveredQuantity
				if delta == 0 {
					continue
				}
				ref := fmt.Sprintf("invoice:%s:item:%d", inv.InvoiceNumber, i)
				if err := tx.AdjustStock(ctx, before.MaterialID, -delta, ref); err != nil {
					return fmt.Errorf("adjust stock: %w", err)
				}
			}
		}

		if err := tx.UpdateInvoice(ctx, updated); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return tx.ReplaceItems(ctx, id, updated.Items)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// ProcessPayment applies a payment to an invoice.
func (s *Service) ProcessPayment(ctx context.Context, id int64, req PaymentRequest) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		updated, err := ProcessPayment(*inv, req.Amount)
		if err != nil {
			return err
		}
		if req.Method != "" {
			updated.PaymentMethod = req.Method
		}
		updated.UpdatedAt = time.Now()

		return tx.UpdateInvoice(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// GetByID retrieves an invoice by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByNumber retrieves an invoice by its number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns a paginated list of invoices.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}

// resolveItems loads master data for every requested material, builds the
// proposed line items and the stock snapshot used by the engines.
func resolveItems(ctx context.Context, tx TxRepository, reqs []ItemRequest) ([]LineItem, StockSnapshot, error) {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.MaterialID)
	}
	materials, err := tx.GetMaterialsForUpdate(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("get materials: %w", err)
	}

	items := make([]LineItem, 0, len(reqs))
	for _, r := range reqs {
		m, ok := materials[r.MaterialID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: id %d", ErrUnknownMaterial, r.MaterialID)
		}
		items = append(items, LineItem{
			MaterialID:      m.ID,
			MaterialName:    m.Name,
			Unit:            m.Unit,
			OrderedQuantity: r.OrderedQuantity,
			UnitPrice:       m.UnitPrice,
		})
	}
	return items, snapshotOf(materials), nil
}

func snapshotOf(materials map[int64]MaterialInfo) StockSnapshot {
	snap := make(StockSnapshot, len(materials))
	for id, m := range materials {
		snap[id] = m.Available
	}
	return snap
}
