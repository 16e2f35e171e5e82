package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vlxd-erp/vlxd-erp/internal/shared"
)

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// txRepository implements TxRepository.
type txRepository struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction. Conflicts surface as
// shared.ErrConcurrentModification so callers can retry.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return shared.MapPgError(err)
	}
	return shared.MapPgError(tx.Commit(ctx))
}

const invoiceColumns = `id, invoice_number, customer_name, customer_phone, customer_address,
	       discount_rate, subtotal, total_amount, status, payment_method,
	       payment_status, paid_amount, remaining_amount, notes, delivery_date,
	       created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.CustomerPhone,
		&inv.CustomerAddress, &inv.DiscountRate, &inv.Subtotal, &inv.TotalAmount,
		&inv.Status, &inv.PaymentMethod, &inv.PaymentStatus, &inv.PaidAmount,
		&inv.RemainingAmount, &inv.Notes, &inv.DeliveryDate,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// GetByID retrieves an invoice with its items.
func (r *repository) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns)
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	items, err := getItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// GetByNumber retrieves an invoice by its number.
func (r *repository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE invoice_number = $1`, invoiceColumns)
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, number))
	if err != nil {
		return nil, err
	}
	items, err := getItems(ctx, r.pool, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getItems(ctx context.Context, q queryer, invoiceID int64) ([]LineItem, error) {
	query := `
		SELECT material_id, material_name, unit, ordered_quantity, unit_price,
		       total_price, delivered_quantity, delivery_status
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position, material_id
	`
	rows, err := q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		err := rows.Scan(
			&it.MaterialID, &it.MaterialName, &it.Unit, &it.OrderedQuantity,
			&it.UnitPrice, &it.TotalPrice, &it.DeliveredQuantity, &it.DeliveryStatus,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns invoices matching the filters plus the unpaged total.
func (r *repository) List(ctx context.Context, req ListRequest) ([]Invoice, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argPos))
		args = append(args, *req.PaymentStatus)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(invoice_number ILIKE $%d OR customer_name ILIKE $%d OR customer_phone ILIKE $%d)",
			argPos, argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM invoices %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT %s FROM invoices %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, invoiceColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range invoices {
		items, err := getItems(ctx, r.pool, invoices[i].ID)
		if err != nil {
			return nil, 0, err
		}
		invoices[i].Items = items
	}
	return invoices, total, nil
}

// GenerateInvoiceNumber produces the next HD-yyyymmdd-nnnn number for the
// given date using a per-day counter row.
func (r *repository) GenerateInvoiceNumber(ctx context.Context, date time.Time) (string, error) {
	query := `
		INSERT INTO invoice_counters (day, counter) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = invoice_counters.counter + 1
		RETURNING counter
	`
	day := date.Format("2006-01-02")
	var seq int
	if err := r.pool.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("HD-%s-%04d", date.Format("20060102"), seq), nil
}
