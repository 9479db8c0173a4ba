package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// MySQLOrderRepo persists orders in the `orders` and `order_items` tables.
type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

// Create writes the order row and all item rows in a single transaction.
// The transaction covers local state only; it is committed before any
// outbound call the caller makes afterwards.
func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO orders (id,user_id,status,total_cents,currency,shipping_address_json,
                    external_payment_id,payment_intent_id,payment_client_secret,
                    created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,NOW(),NOW())
`, o.ID, o.UserID, o.Status, o.TotalCents, o.Currency, o.ShippingAddressJSON,
		o.ExternalPaymentID, o.PaymentIntentID, o.PaymentClientSecret)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
INSERT INTO order_items (id,order_id,product_id,product_name,quantity,unit_price_cents,total_cents)
VALUES (?,?,?,?,?,?,?)
`, item.ID, o.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPriceCents, item.TotalCents)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	return tx.Commit()
}

const orderColumns = `id,user_id,status,total_cents,currency,shipping_address_json,
external_payment_id,payment_intent_id,payment_client_secret,created_at,updated_at`

func (r *MySQLOrderRepo) scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency,
		&o.ShippingAddressJSON, &o.ExternalPaymentID, &o.PaymentIntentID,
		&o.PaymentClientSecret, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MySQLOrderRepo) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,product_id,product_name,quantity,unit_price_cents,total_cents
FROM order_items WHERE order_id=? ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.UnitPriceCents, &it.TotalCents); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id)
	o, err := r.scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, usecase.ErrOrderNotFound(id)
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *MySQLOrderRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=? AND user_id=?`, id, userID)
	o, err := r.scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o == nil {
		// Absent and not-owned are indistinguishable on purpose.
		return nil, usecase.ErrOrderNotFound(id)
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *MySQLOrderRepo) ListAll(ctx context.Context, offset, limit int) ([]*domain.Order, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *MySQLOrderRepo) collect(ctx context.Context, rows *sql.Rows) ([]*domain.Order, error) {
	defer rows.Close()
	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency,
			&o.ShippingAddressJSON, &o.ExternalPaymentID, &o.PaymentIntentID,
			&o.PaymentClientSecret, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *MySQLOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=?, updated_at=NOW() WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return usecase.ErrOrderNotFound(id)
	}
	return nil
}

// UpdatePayment writes the payment-owned fields: status, intent id,
// client secret and external payment id. Items are immutable and never
// touched here.
func (r *MySQLOrderRepo) UpdatePayment(ctx context.Context, o *domain.Order) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders
SET status=?, external_payment_id=?, payment_intent_id=?, payment_client_secret=?, updated_at=NOW()
WHERE id=?`,
		o.Status, o.ExternalPaymentID, o.PaymentIntentID, o.PaymentClientSecret, o.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return usecase.ErrOrderNotFound(o.ID)
	}
	return nil
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
