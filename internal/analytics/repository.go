package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// repository implements RepositoryPort using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

// RevenueSummary aggregates invoice figures in one query.
func (r *repository) RevenueSummary(ctx context.Context, from, to time.Time) (RevenueSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(paid_amount), 0),
		       COALESCE(SUM(remaining_amount), 0),
		       COUNT(*) FILTER (WHERE payment_status = 'unpaid'),
		       COUNT(*) FILTER (WHERE payment_status = 'partial'),
		       COUNT(*) FILTER (WHERE payment_status = 'paid')
		FROM invoices
		WHERE status <> 'cancelled'
		  AND created_at >= $1 AND created_at < $2
	`
	summary := RevenueSummary{From: from, To: to}
	err := r.pool.QueryRow(ctx, query, from, to).Scan(
		&summary.InvoiceCount, &summary.TotalRevenue, &summary.TotalPaid,
		&summary.Outstanding, &summary.UnpaidCount, &summary.PartialCount,
		&summary.PaidCount,
	)
	return summary, err
}

// TopMaterials ranks materials by delivered value within the range.
func (r *repository) TopMaterials(ctx context.Context, from, to time.Time, limit int) ([]TopMaterial, error) {
	query := `
		SELECT ii.material_id, ii.material_name, ii.unit,
		       SUM(ii.delivered_quantity),
		       SUM(ii.delivered_quantity * ii.unit_price)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		WHERE i.status <> 'cancelled'
		  AND i.created_at >= $1 AND i.created_at < $2
		  AND ii.delivered_quantity > 0
		GROUP BY ii.material_id, ii.material_name, ii.unit
		ORDER BY SUM(ii.delivered_quantity * ii.unit_price) DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []TopMaterial
	for rows.Next() {
		var t TopMaterial
		if err := rows.Scan(&t.MaterialID, &t.MaterialName, &t.Unit, &t.DeliveredQty, &t.DeliveredValue); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

// StatusBreakdown counts invoices per status.
func (r *repository) StatusBreakdown(ctx context.Context) (StatusBreakdown, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'delivered'),
		       COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM invoices
	`
	var b StatusBreakdown
	err := r.pool.QueryRow(ctx, query).Scan(&b.Pending, &b.Confirmed, &b.Delivered, &b.Cancelled)
	return b, err
}
