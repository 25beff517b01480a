package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresOrderRepository struct {
	pool DBPool
}

func NewPostgresOrderRepository(pool DBPool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

const insertOrderSQL = `
	INSERT INTO orders (id, user_email, lines, subtotal, tax, delivery_fee, discount, total_amount, currency, coupon_code, payment_reference, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (payment_reference) DO UPDATE SET payment_reference = EXCLUDED.payment_reference
	RETURNING id`

func (r *PostgresOrderRepository) Persist(ctx context.Context, order models.Order) (string, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return "", fmt.Errorf("marshal order lines: %w", err)
	}

	var id string
	err = r.pool.QueryRow(ctx, insertOrderSQL,
		order.ID,
		order.UserEmail,
		lines,
		order.Subtotal.String(),
		order.Tax.String(),
		order.DeliveryFee.String(),
		order.Discount.String(),
		order.TotalAmount.String(),
		order.Currency,
		order.CouponCode,
		order.PaymentReference,
		order.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

const listOrdersSQL = `
	SELECT id, user_email, lines, subtotal::text, tax::text, delivery_fee::text, discount::text, total_amount::text,
	       currency, coupon_code, payment_reference, created_at
	FROM orders WHERE user_email = $1 ORDER BY created_at DESC`

func (r *PostgresOrderRepository) ListByUser(ctx context.Context, email string) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, email)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var (
			o                                              models.Order
			lines                                          []byte
			subtotal, tax, delivery, discount, totalAmount string
		)
		if err := rows.Scan(&o.ID, &o.UserEmail, &lines, &subtotal, &tax, &delivery, &discount, &totalAmount,
			&o.Currency, &o.CouponCode, &o.PaymentReference, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(lines, &o.Lines); err != nil {
			return nil, fmt.Errorf("decode lines of order %s: %w", o.ID, err)
		}
		amounts := []struct {
			dst *decimal.Decimal
			src string
		}{
			{&o.Subtotal, subtotal}, {&o.Tax, tax}, {&o.DeliveryFee, delivery},
			{&o.Discount, discount}, {&o.TotalAmount, totalAmount},
		}
		for _, a := range amounts {
			if *a.dst, err = decimal.NewFromString(a.src); err != nil {
				return nil, fmt.Errorf("decode amount of order %s: %w", o.ID, err)
			}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return orders, nil
}
