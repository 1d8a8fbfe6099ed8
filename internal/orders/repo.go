package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

const uniqueViolation = "23505"

func (r *Repo) CartForUser(ctx context.Context, userID string) (*Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `SELECT id, user_id, store_id FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &c.StoreID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get cart", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT ci.product_variant_id, v.sku, p.name, v.name, ci.price_at_add, ci.quantity, v.is_active
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.product_variant_id
		JOIN products p ON p.id = v.product_id
		WHERE ci.cart_id=$1
		ORDER BY ci.created_at`, c.ID)
	if err != nil {
		return nil, apperr.Persistence("get cart items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductVariantID, &l.SKU, &l.ProductName, &l.VariantName,
			&l.PriceAtAdd, &l.Quantity, &l.VariantActive); err != nil {
			return nil, apperr.Persistence("scan cart item", err)
		}
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("get cart items", err)
	}
	return &c, nil
}

func (r *Repo) AddressBelongsToUser(ctx context.Context, addressID, userID string) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM addresses WHERE id=$1 AND user_id=$2`,
		addressID, userID).Scan(&n)
	if err != nil {
		return false, apperr.Persistence("check address", err)
	}
	return n > 0, nil
}

func (r *Repo) VariantForPurchase(ctx context.Context, variantID string) (*VariantInfo, error) {
	var v VariantInfo
	err := r.DB.QueryRow(ctx, `
		SELECT v.id, v.sku, v.name, p.name, v.price, v.is_active
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id=$1`, variantID).
		Scan(&v.ID, &v.SKU, &v.Name, &v.ProductName, &v.Price, &v.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get variant", err)
	}
	return &v, nil
}

// CreateOrder is the order-creation transaction. Reservation increments
// run inside the same tx as the order/item inserts through a conditional
// update, so a race that exhausts stock after the pre-check rolls the
// whole order back with InsufficientStockError.
func (r *Repo) CreateOrder(ctx context.Context, o *Order, items []Item, cartID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Persistence("begin create order", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.insertOrder(ctx, tx, o); err != nil {
		return err
	}

	for i := range items {
		it := &items[i]
		it.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items
				(id, order_id, product_variant_id, sku, product_name, variant_name,
				 price, quantity, subtotal, discount, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			it.ID, it.OrderID, it.ProductVariantID, it.SKU, it.ProductName, it.VariantName,
			it.Price, it.Quantity, it.Subtotal, it.Discount, it.Total)
		if err != nil {
			return apperr.Persistence("insert order item", err)
		}

		ct, err := tx.Exec(ctx, `
			UPDATE inventories SET reserved = reserved + $3, updated_at = now()
			WHERE store_id=$1 AND product_variant_id=$2 AND quantity - reserved >= $3`,
			o.ShippingStoreID, it.ProductVariantID, it.Quantity)
		if err != nil {
			return apperr.Persistence("reserve stock", err)
		}
		if ct.RowsAffected() != 1 {
			var available int64
			err := tx.QueryRow(ctx, `
				SELECT quantity - reserved FROM inventories
				WHERE store_id=$1 AND product_variant_id=$2`,
				o.ShippingStoreID, it.ProductVariantID).Scan(&available)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return apperr.Persistence("read availability", err)
			}
			return apperr.InsufficientStock(available, it.Quantity)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, order_id, method, status, amount)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), o.ID, o.PaymentMethod, PaymentUnpaid, o.Total)
	if err != nil {
		return apperr.Persistence("insert payment", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_histories (id, order_id, from_status, to_status, note, created_by)
		VALUES ($1,$2,NULL,$3,'Order created',$4)`,
		uuid.NewString(), o.ID, StatusPendingPayment, o.UserID)
	if err != nil {
		return apperr.Persistence("insert order history", err)
	}

	if cartID != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
			return apperr.Persistence("clear cart", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Persistence("commit create order", err)
	}
	return nil
}

// insertOrder retries once with a fresh number when the unique constraint
// on order_number trips; the timestamp+token scheme makes that rare. The
// insert runs under a savepoint (nested Begin) because a failed statement
// aborts the enclosing postgres transaction; rolling the savepoint back
// keeps the outer transaction usable for the retry.
func (r *Repo) insertOrder(ctx context.Context, tx pgx.Tx, o *Order) error {
	for attempt := 0; ; attempt++ {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return apperr.Persistence("begin order insert", err)
		}
		_, err = sp.Exec(ctx, `
			INSERT INTO orders
				(id, user_id, order_number, shipping_address_id, shipping_store_id,
				 shipping_courier, shipping_service, shipping_description, shipping_estimate,
				 shipping_fee, subtotal, tax, total_discount, total,
				 payment_method, payment_status, order_status, auto_cancel_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			o.ID, o.UserID, o.OrderNumber, o.ShippingAddressID, o.ShippingStoreID,
			o.ShippingCourier, o.ShippingService, o.ShippingDescription, o.ShippingEstimate,
			o.ShippingFee, o.Subtotal, o.Tax, o.TotalDiscount, o.Total,
			o.PaymentMethod, o.PaymentStatus, o.OrderStatus, o.AutoCancelAt)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return apperr.Persistence("insert order", err)
			}
			return nil
		}
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && attempt == 0 {
			o.OrderNumber = NewOrderNumber(time.Now())
			continue
		}
		return apperr.Persistence("insert order", err)
	}
}

const orderColumns = `
	id, user_id, order_number, shipping_address_id, shipping_store_id,
	shipping_courier, shipping_service, shipping_description, shipping_estimate,
	shipping_fee, subtotal, tax, total_discount, total,
	payment_method, payment_status, order_status, auto_cancel_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.ShippingAddressID, &o.ShippingStoreID,
		&o.ShippingCourier, &o.ShippingService, &o.ShippingDescription, &o.ShippingEstimate,
		&o.ShippingFee, &o.Subtotal, &o.Tax, &o.TotalDiscount, &o.Total,
		&o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus, &o.AutoCancelAt,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) UserOrders(ctx context.Context, userID string, status Status, p Page) ([]Order, int, error) {
	p = p.Normalize()
	where := ` WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		where += ` AND order_status=$2`
		args = append(args, status)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count orders", err)
	}

	args = append(args, p.Limit, (p.Page-1)*p.Limit)
	n := len(args)
	query := fmt.Sprintf(`SELECT%s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, n-1, n)
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list orders", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan order", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("list orders", err)
	}
	return out, total, nil
}

func (r *Repo) OrderByID(ctx context.Context, id string) (*OrderDetail, error) {
	row := r.DB.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get order", err)
	}
	d := OrderDetail{Order: *o}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_variant_id, sku, product_name, variant_name,
		       price, quantity, subtotal, discount, total
		FROM order_items WHERE order_id=$1`, id)
	if err != nil {
		return nil, apperr.Persistence("get order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductVariantID, &it.SKU,
			&it.ProductName, &it.VariantName, &it.Price, &it.Quantity,
			&it.Subtotal, &it.Discount, &it.Total); err != nil {
			return nil, apperr.Persistence("scan order item", err)
		}
		d.Items = append(d.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("get order items", err)
	}

	var pay Payment
	err = r.DB.QueryRow(ctx, `
		SELECT id, order_id, method, status, amount, created_at
		FROM payments WHERE order_id=$1`, id).
		Scan(&pay.ID, &pay.OrderID, &pay.Method, &pay.Status, &pay.Amount, &pay.CreatedAt)
	if err == nil {
		d.Payment = &pay
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Persistence("get payment", err)
	}

	hrows, err := r.DB.Query(ctx, `
		SELECT id, order_id, from_status, to_status, note, created_by, created_at
		FROM order_histories WHERE order_id=$1 ORDER BY created_at`, id)
	if err != nil {
		return nil, apperr.Persistence("get order history", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var h History
		if err := hrows.Scan(&h.ID, &h.OrderID, &h.FromStatus, &h.ToStatus,
			&h.Note, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, apperr.Persistence("scan order history", err)
		}
		d.History = append(d.History, h)
	}
	if err := hrows.Err(); err != nil {
		return nil, apperr.Persistence("get order history", err)
	}
	return &d, nil
}

func (r *Repo) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE order_status=$1 AND payment_status=$2 AND auto_cancel_at <= $3
		ORDER BY auto_cancel_at LIMIT $4`,
		StatusPendingPayment, PaymentUnpaid, cutoff, limit)
	if err != nil {
		return nil, apperr.Persistence("list expired orders", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Persistence("scan expired order", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CancelExpired sweeps one order. The conditional status flip guarantees
// at-most-once: a second sweeper, or a payment that landed in between,
// makes the update match zero rows and the tx is abandoned.
func (r *Repo) CancelExpired(ctx context.Context, orderID string, cutoff time.Time) (*CancelResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Persistence("begin cancel order", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE orders SET order_status=$2, updated_at=now()
		WHERE id=$1 AND order_status=$3 AND payment_status=$4 AND auto_cancel_at <= $5
		RETURNING`+orderColumns,
		orderID, StatusCancelled, StatusPendingPayment, PaymentUnpaid, cutoff)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("cancel order", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT product_variant_id, quantity FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, apperr.Persistence("get order items", err)
	}
	var items []ItemQty
	for rows.Next() {
		var it ItemQty
		if err := rows.Scan(&it.ProductVariantID, &it.Qty); err != nil {
			rows.Close()
			return nil, apperr.Persistence("scan order item", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("get order items", err)
	}

	for _, it := range items {
		ct, err := tx.Exec(ctx, `
			UPDATE inventories SET reserved = reserved - $3, updated_at = now()
			WHERE store_id=$1 AND product_variant_id=$2 AND reserved >= $3`,
			o.ShippingStoreID, it.ProductVariantID, it.Qty)
		if err != nil {
			return nil, apperr.Persistence("release stock", err)
		}
		if ct.RowsAffected() != 1 {
			// reservation accounting drifted; abort so nothing half-releases
			return nil, apperr.Conflict(
				"release of %d exceeds reserved stock for variant %s", it.Qty, it.ProductVariantID)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_histories (id, order_id, from_status, to_status, note, created_by)
		VALUES ($1,$2,$3,$4,'Auto-cancelled: payment window expired','system')`,
		uuid.NewString(), orderID, StatusPendingPayment, StatusCancelled)
	if err != nil {
		return nil, apperr.Persistence("insert order history", err)
	}

	_, err = tx.Exec(ctx, `UPDATE payments SET status=$2 WHERE order_id=$1`,
		orderID, PaymentExpired)
	if err != nil {
		return nil, apperr.Persistence("expire payment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Persistence("commit cancel order", err)
	}
	return &CancelResult{Order: *o, Items: items}, nil
}
