package lookup

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vlxd-erp/vlxd-erp/internal/invoices"
)

// repository implements RepositoryPort against the invoices tables.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new read-only repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

// Search matches invoice number exactly and phone or name by substring.
func (r *repository) Search(ctx context.Context, query string, limit int) ([]invoices.Invoice, error) {
	sql := `
		SELECT id, invoice_number, customer_name, customer_phone, customer_address,
		       discount_rate, subtotal, total_amount, status, payment_method,
		       payment_status, paid_amount, remaining_amount, notes, delivery_date,
		       created_at, updated_at
		FROM invoices
		WHERE invoice_number = $1
		   OR customer_phone ILIKE $2
		   OR customer_name ILIKE $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, sql, query, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoices.Invoice
	for rows.Next() {
		var inv invoices.Invoice
		err := rows.Scan(
			&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.CustomerPhone,
			&inv.CustomerAddress, &inv.DiscountRate, &inv.Subtotal, &inv.TotalAmount,
			&inv.Status, &inv.PaymentMethod, &inv.PaymentStatus, &inv.PaidAmount,
			&inv.RemainingAmount, &inv.Notes, &inv.DeliveryDate,
			&inv.CreatedAt, &inv.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT material_id, material_name, unit, ordered_quantity, unit_price,
		       total_price, delivered_quantity, delivery_status
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position, material_id
	`
	for i := range result {
		itemRows, err := r.pool.Query(ctx, itemsQuery, result[i].ID)
		if err != nil {
			return nil, err
		}
		var items []invoices.LineItem
		for itemRows.Next() {
			var it invoices.LineItem
			err := itemRows.Scan(
				&it.MaterialID, &it.MaterialName, &it.Unit, &it.OrderedQuantity,
				&it.UnitPrice, &it.TotalPrice, &it.DeliveredQuantity, &it.DeliveryStatus,
			)
			if err != nil {
				itemRows.Close()
				return nil, err
			}
			items = append(items, it)
		}
		itemRows.Close()
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}
