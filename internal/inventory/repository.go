package inventory

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

// repository implements RepositoryPort using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
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

const materialColumns = `id, sku, name, unit, unit_price, available_quantity, created_at, updated_at`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.SKU, &m.Name, &m.Unit, &m.UnitPrice, &m.AvailableQuantity, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves one material.
func (r *repository) GetByID(ctx context.Context, id int64) (*Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE id = $1`, materialColumns)
	return scanMaterial(r.pool.QueryRow(ctx, query, id))
}

// GetBySKU retrieves one material by SKU.
func (r *repository) GetBySKU(ctx context.Context, sku string) (*Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE sku = $1`, materialColumns)
	return scanMaterial(r.pool.QueryRow(ctx, query, sku))
}

// List returns materials matching the filter plus the unpaged total.
func (r *repository) List(ctx context.Context, req ListRequest) ([]Material, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM materials %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM materials %s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, materialColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, 0, err
		}
		materials = append(materials, *m)
	}
	return materials, total, rows.Err()
}

// ListMovements returns the latest movements for one material.
func (r *repository) ListMovements(ctx context.Context, materialID int64, limit int) ([]Movement, error) {
	query := `
		SELECT id, material_id, quantity, ref, note, created_at
		FROM stock_movements
		WHERE material_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, materialID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.MaterialID, &mv.Quantity, &mv.Ref, &mv.Note, &mv.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

// LowStock lists materials at or below the threshold, lowest first.
func (r *repository) LowStock(ctx context.Context, threshold float64) ([]Material, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM materials
		WHERE available_quantity <= $1
		ORDER BY available_quantity, name
	`, materialColumns)
	rows, err := r.pool.Query(ctx, query, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, *m)
	}
	return materials, rows.Err()
}

// InsertMaterial creates a material row.
func (t *txRepository) InsertMaterial(ctx context.Context, m Material) (int64, error) {
	query := `
		INSERT INTO materials (sku, name, unit, unit_price, available_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query, m.SKU, m.Name, m.Unit, m.UnitPrice, m.AvailableQuantity, m.CreatedAt, m.UpdatedAt).Scan(&id)
	return id, err
}

// UpdateMaterial rewrites master data fields.
func (t *txRepository) UpdateMaterial(ctx context.Context, m Material) error {
	query := `
		UPDATE materials
		SET name = $2, unit = $3, unit_price = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query, m.ID, m.Name, m.Unit, m.UnitPrice, m.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMaterialForUpdate loads and locks one material row.
func (t *txRepository) GetMaterialForUpdate(ctx context.Context, id int64) (*Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE id = $1 FOR UPDATE`, materialColumns)
	return scanMaterial(t.tx.QueryRow(ctx, query, id))
}

// SetAvailable writes the new availability.
func (t *txRepository) SetAvailable(ctx context.Context, id int64, quantity float64) error {
	query := `UPDATE materials SET available_quantity = $2, updated_at = $3 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query, id, quantity, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertMovement appends to the movement trail.
func (t *txRepository) InsertMovement(ctx context.Context, mv Movement) error {
	query := `
		INSERT INTO stock_movements (material_id, quantity, ref, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.tx.Exec(ctx, query, mv.MaterialID, mv.Quantity, mv.Ref, mv.Note, mv.CreatedAt)
	return err
}
