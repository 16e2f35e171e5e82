package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetInvoiceForUpdate loads an invoice with its items, locking the row.
func (t *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 FOR UPDATE`, invoiceColumns)
	inv, err := scanInvoice(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	items, err := getItems(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// InsertInvoice creates a new invoice row.
func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	query := `
		INSERT INTO invoices (
			invoice_number, customer_name, customer_phone, customer_address,
			discount_rate, subtotal, total_amount, status, payment_method,
			payment_status, paid_amount, remaining_amount, notes, delivery_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		inv.InvoiceNumber, inv.CustomerName, inv.CustomerPhone, inv.CustomerAddress,
		inv.DiscountRate, inv.Subtotal, inv.TotalAmount, inv.Status, inv.PaymentMethod,
		inv.PaymentStatus, inv.PaidAmount, inv.RemainingAmount, inv.Notes, inv.DeliveryDate,
		inv.CreatedAt, inv.UpdatedAt,
	).Scan(&id)
	return id, err
}

// UpdateInvoice rewrites every mutable invoice column in one statement so
// one operation never persists a partial field set.
func (t *txRepository) UpdateInvoice(ctx context.Context, inv Invoice) error {
	query := `
		UPDATE invoices SET
			customer_name = $2, customer_phone = $3, customer_address = $4,
			discount_rate = $5, subtotal = $6, total_amount = $7, status = $8,
			payment_method = $9, payment_status = $10, paid_amount = $11,
			remaining_amount = $12, notes = $13, delivery_date = $14, updated_at = $15
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query,
		inv.ID, inv.CustomerName, inv.CustomerPhone, inv.CustomerAddress,
		inv.DiscountRate, inv.Subtotal, inv.TotalAmount, inv.Status,
		inv.PaymentMethod, inv.PaymentStatus, inv.PaidAmount,
		inv.RemainingAmount, inv.Notes, inv.DeliveryDate, inv.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceItems swaps the full item list of an invoice.
func (t *txRepository) ReplaceItems(ctx context.Context, invoiceID int64, items []LineItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	query := `
		INSERT INTO invoice_items (
			invoice_id, position, material_id, material_name, unit,
			ordered_quantity, unit_price, total_price, delivered_quantity, delivery_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, it := range items {
		_, err := t.tx.Exec(ctx, query,
			invoiceID, i, it.MaterialID, it.MaterialName, it.Unit,
			it.OrderedQuantity, it.UnitPrice, it.TotalPrice,
			it.DeliveredQuantity, it.DeliveryStatus,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetMaterialsForUpdate loads and locks the referenced material rows.
func (t *txRepository) GetMaterialsForUpdate(ctx context.Context, ids []int64) (map[int64]MaterialInfo, error) {
	if len(ids) == 0 {
		return map[int64]MaterialInfo{}, nil
	}
	query := `
		SELECT id, sku, name, unit, unit_price, available_quantity
		FROM materials
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`
	rows, err := t.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := make(map[int64]MaterialInfo)
	for rows.Next() {
		var m MaterialInfo
		if err := rows.Scan(&m.ID, &m.SKU, &m.Name, &m.Unit, &m.UnitPrice, &m.Available); err != nil {
			return nil, err
		}
		materials[m.ID] = m
	}
	return materials, rows.Err()
}

// AdjustStock applies a delta to a material's availability and records
// the movement. The availability check lives in the engine; the CHECK
// constraint on the column is the backstop.
func (t *txRepository) AdjustStock(ctx context.Context, materialID int64, delta float64, ref string) error {
	query := `
		UPDATE materials
		SET available_quantity = available_quantity + $2, updated_at = $3
		WHERE id = $1
		RETURNING available_quantity
	`
	var remaining float64
	if err := t.tx.QueryRow(ctx, query, materialID, delta, time.Now()).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrUnknownMaterial, materialID)
		}
		return err
	}

	movement := `
		INSERT INTO stock_movements (material_id, quantity, ref, note, created_at)
		VALUES ($1, $2, $3, '', $4)
	`
	_, err := t.tx.Exec(ctx, movement, materialID, delta, ref, time.Now())
	return err
}
