package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

const detailColumns = `
	i.store_id, i.product_variant_id, i.quantity, i.reserved, i.updated_at,
	v.sku, v.name, p.name, v.price, s.name`

const detailJoins = `
	FROM inventories i
	JOIN product_variants v ON v.id = i.product_variant_id
	JOIN products p ON p.id = v.product_id
	JOIN stores s ON s.id = i.store_id`

func scanDetail(row pgx.Row) (*RecordDetail, error) {
	var d RecordDetail
	err := row.Scan(
		&d.StoreID, &d.ProductVariantID, &d.Quantity, &d.Reserved, &d.UpdatedAt,
		&d.SKU, &d.VariantName, &d.ProductName, &d.Price, &d.StoreName,
	)
	if err != nil {
		return nil, err
	}
	d.Available = d.Record.Available()
	return &d, nil
}

func (r *Repo) Get(ctx context.Context, storeID, variantID string) (*RecordDetail, error) {
	row := r.DB.QueryRow(ctx, `SELECT`+detailColumns+detailJoins+`
		WHERE i.store_id=$1 AND i.product_variant_id=$2`, storeID, variantID)
	d, err := scanDetail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get inventory", err)
	}
	return d, nil
}

func (r *Repo) ListByStore(ctx context.Context, storeID string, f ListFilter) ([]RecordDetail, int, error) {
	where := ` WHERE i.store_id=$1`
	args := []any{storeID}
	if f.Search != "" {
		where += ` AND (v.name ILIKE $2 OR v.sku ILIKE $2 OR p.name ILIKE $2)`
		args = append(args, "%"+f.Search+"%")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*)`+detailJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count inventory", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	n := len(args)
	query := `SELECT` + detailColumns + detailJoins + where +
		` ORDER BY i.updated_at DESC` +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n-1, n)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list inventory", err)
	}
	defer rows.Close()

	var out []RecordDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan inventory", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("list inventory", err)
	}
	return out, total, nil
}

func (r *Repo) ListByVariant(ctx context.Context, variantID string) ([]RecordDetail, error) {
	rows, err := r.DB.Query(ctx, `SELECT`+detailColumns+detailJoins+`
		WHERE i.product_variant_id=$1 ORDER BY s.name`, variantID)
	if err != nil {
		return nil, apperr.Persistence("list inventory by variant", err)
	}
	defer rows.Close()

	var out []RecordDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, apperr.Persistence("scan inventory", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list inventory by variant", err)
	}
	return out, nil
}

// Reserve increments reserved only when enough unreserved stock remains.
// The guard and the increment are one statement so concurrent checkouts
// against the same row serialize at the database.
func (r *Repo) Reserve(ctx context.Context, storeID, variantID string, qty int64) (*Record, error) {
	rec := Record{StoreID: storeID, ProductVariantID: variantID}
	err := r.DB.QueryRow(ctx, `
		UPDATE inventories SET reserved = reserved + $3, updated_at = now()
		WHERE store_id=$1 AND product_variant_id=$2 AND quantity - reserved >= $3
		RETURNING quantity, reserved, updated_at`,
		storeID, variantID, qty,
	).Scan(&rec.Quantity, &rec.Reserved, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("reserve stock", err)
	}
	return &rec, nil
}

// Release refuses to drive reserved below zero; a failed guard here means
// reservation accounting drifted and the caller treats it as a conflict.
func (r *Repo) Release(ctx context.Context, storeID, variantID string, qty int64) (*Record, error) {
	rec := Record{StoreID: storeID, ProductVariantID: variantID}
	err := r.DB.QueryRow(ctx, `
		UPDATE inventories SET reserved = reserved - $3, updated_at = now()
		WHERE store_id=$1 AND product_variant_id=$2 AND reserved >= $3
		RETURNING quantity, reserved, updated_at`,
		storeID, variantID, qty,
	).Scan(&rec.Quantity, &rec.Reserved, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("release stock", err)
	}
	return &rec, nil
}

func (r *Repo) InitializeForVariant(ctx context.Context, variantID string) (int, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO inventories (store_id, product_variant_id, quantity, reserved)
		SELECT s.id, $1, 0, 0 FROM stores s WHERE s.is_active
		ON CONFLICT (product_variant_id, store_id) DO NOTHING`, variantID)
	if err != nil {
		return 0, apperr.Persistence("initialize inventory", err)
	}
	return int(ct.RowsAffected()), nil
}
