package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
)

type OrderRepository struct {
	DB *sqlx.DB
}

const orderColumns = `seq, created_at, order_id, email, first_name, products, total, status, email_message_id`

func (r *OrderRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	query := `
        INSERT INTO orders (order_id, created_at, email, first_name, products, total, status, email_message_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING seq
    `
	err := r.DB.QueryRowxContext(ctx, query, o.OrderID, o.CreatedAt, o.Email, o.FirstName, o.Products, o.Total, o.Status, o.EmailMessageID).Scan(&o.Seq)
	if isUniqueViolation(err) {
		return appErrors.NewDuplicateOrder(o.OrderID)
	}
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.OrderID, err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewOrderNotFound(orderID)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders filters by status when one is given.
func (r *OrderRepository) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	orders := []model.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}
	if status != "" {
		query += ` AND status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY seq`
	err := r.DB.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	return r.exec(ctx, orderID, `UPDATE orders SET status = $1 WHERE order_id = $2`, status, orderID)
}

func (r *OrderRepository) SetEmailMessageID(ctx context.Context, orderID, messageID string) error {
	return r.exec(ctx, orderID, `UPDATE orders SET email_message_id = $1 WHERE order_id = $2`, messageID, orderID)
}

func (r *OrderRepository) exec(ctx context.Context, orderID, query string, args ...interface{}) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return appErrors.NewOrderNotFound(orderID)
	}
	return nil
}

var _ OrderRepositoryInterface = (*OrderRepository)(nil)
