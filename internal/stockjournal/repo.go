package stockjournal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

const entryColumns = `
	j.id, j.store_id, j.product_variant_id, j.type, j.quantity,
	j.stock_before, j.stock_after, j.reference_no, j.reason, j.notes,
	j.created_by, j.order_id, j.created_at,
	v.sku, v.name, p.name, s.name`

const entryJoins = `
	FROM stock_journals j
	JOIN product_variants v ON v.id = j.product_variant_id
	JOIN products p ON p.id = v.product_id
	JOIN stores s ON s.id = j.store_id`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.StoreID, &e.ProductVariantID, &e.Type, &e.Quantity,
		&e.StockBefore, &e.StockAfter, &e.ReferenceNo, &e.Reason, &e.Notes,
		&e.CreatedBy, &e.OrderID, &e.CreatedAt,
		&e.SKU, &e.VariantName, &e.ProductName, &e.StoreName,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ApplyMutation runs the whole mutation as one transaction. The inventory
// row is locked FOR UPDATE so two concurrent stock OUTs cannot both pass
// the non-negative check on a stale read.
func (r *Repo) ApplyMutation(ctx context.Context, m Mutation) (*Entry, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Persistence("begin stock mutation", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if m.Type == TypeIn {
		// lazy creation: first stock IN for a (store, variant) pair starts at 0
		_, err = tx.Exec(ctx, `
			INSERT INTO inventories (store_id, product_variant_id, quantity, reserved)
			VALUES ($1, $2, 0, 0)
			ON CONFLICT (product_variant_id, store_id) DO NOTHING`,
			m.StoreID, m.ProductVariantID)
		if err != nil {
			return nil, apperr.Persistence("init inventory row", err)
		}
	}

	var before int64
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM inventories
		WHERE store_id=$1 AND product_variant_id=$2 FOR UPDATE`,
		m.StoreID, m.ProductVariantID).Scan(&before)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Inventory not found. Cannot perform stock OUT on non-existent inventory.")
	}
	if err != nil {
		return nil, apperr.Persistence("lock inventory row", err)
	}

	var after int64
	switch m.Type {
	case TypeIn:
		after = before + m.Quantity
	case TypeOut:
		after = before - m.Quantity
		if after < 0 {
			return nil, apperr.InsufficientStock(before, m.Quantity)
		}
	default:
		return nil, apperr.Validation("invalid journal type %q", m.Type)
	}

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_journals
			(id, store_id, product_variant_id, type, quantity, stock_before, stock_after,
			 reference_no, reason, notes, created_by, order_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		id, m.StoreID, m.ProductVariantID, m.Type, m.Quantity, before, after,
		m.ReferenceNo, m.Reason, m.Notes, m.CreatedBy, m.OrderID)
	if err != nil {
		return nil, apperr.Persistence("insert journal entry", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE inventories SET quantity=$3, updated_at=now()
		WHERE store_id=$1 AND product_variant_id=$2`,
		m.StoreID, m.ProductVariantID, after)
	if err != nil {
		return nil, apperr.Persistence("update inventory quantity", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Persistence("commit stock mutation", err)
	}
	return r.ByID(ctx, id)
}

func (r *Repo) History(ctx context.Context, storeID, variantID string, p Page) ([]Entry, int, error) {
	p = p.Normalize()
	var total int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_journals
		WHERE store_id=$1 AND product_variant_id=$2`, storeID, variantID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Persistence("count journal", err)
	}

	rows, err := r.DB.Query(ctx, `SELECT`+entryColumns+entryJoins+`
		WHERE j.store_id=$1 AND j.product_variant_id=$2
		ORDER BY j.created_at DESC LIMIT $3 OFFSET $4`,
		storeID, variantID, p.Limit, (p.Page-1)*p.Limit)
	if err != nil {
		return nil, 0, apperr.Persistence("query journal", err)
	}
	defer rows.Close()
	out, err := collectEntries(rows)
	return out, total, err
}

func (r *Repo) HistoryByStore(ctx context.Context, storeID string, typ EntryType, p Page) ([]Entry, int, error) {
	p = p.Normalize()
	where := ` WHERE j.store_id=$1`
	args := []any{storeID}
	if typ != "" {
		where += ` AND j.type=$2`
		args = append(args, typ)
	}

	var total int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM stock_journals j`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Persistence("count journal", err)
	}

	args = append(args, p.Limit, (p.Page-1)*p.Limit)
	n := len(args)
	rows, err := r.DB.Query(ctx, `SELECT`+entryColumns+entryJoins+where+
		fmt.Sprintf(` ORDER BY j.created_at DESC LIMIT $%d OFFSET $%d`, n-1, n), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("query journal", err)
	}
	defer rows.Close()
	out, err := collectEntries(rows)
	return out, total, err
}

func (r *Repo) ByID(ctx context.Context, id string) (*Entry, error) {
	row := r.DB.QueryRow(ctx, `SELECT`+entryColumns+entryJoins+` WHERE j.id=$1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get journal entry", err)
	}
	return e, nil
}

// EntriesInRange returns a store's entries time-ascending; the monthly
// summary fold depends on that ordering.
func (r *Repo) EntriesInRange(ctx context.Context, storeID string, from, to time.Time) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, `SELECT`+entryColumns+entryJoins+`
		WHERE j.store_id=$1 AND j.created_at >= $2 AND j.created_at <= $3
		ORDER BY j.created_at ASC`, storeID, from, to)
	if err != nil {
		return nil, apperr.Persistence("query journal range", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperr.Persistence("scan journal entry", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate journal", err)
	}
	return out, nil
}
