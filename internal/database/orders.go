package database

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_name, phone_number, cart_items, status, payment_method, payment_link, table_id, table_number, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.PhoneNumber, &o.CartItems, &o.Status,
		&o.PaymentMethod, &o.PaymentLink, &o.TableID, &o.TableNumber,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders ORDER BY created_at DESC`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

type CreateOrderParams struct {
	CustomerName  string
	PhoneNumber   string
	CartItems     json.RawMessage
	Status        string
	PaymentMethod pgtype.Text
	PaymentLink   pgtype.Text
	TableID       int64
	TableNumber   int32
}

const createOrder = `INSERT INTO orders
(customer_name, phone_number, cart_items, status, payment_method, payment_link, table_id, table_number)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.CustomerName, arg.PhoneNumber, arg.CartItems, arg.Status,
		arg.PaymentMethod, arg.PaymentLink, arg.TableID, arg.TableNumber,
	))
}

type UpdateOrderStatusParams struct {
	ID     int64
	Status string
}

const updateOrderStatus = `UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}
