package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, sku, image, thumbnail, description, price, use_stock, stock, addons, admin_id, created_at, updated_at, is_deleted`

func scanProduct(row interface{ Scan(dest ...interface{}) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Sku, &p.Image, &p.Thumbnail, &p.Description,
		&p.Price, &p.UseStock, &p.Stock, &p.Addons, &p.AdminID,
		&p.CreatedAt, &p.UpdatedAt, &p.IsDeleted,
	)
	return p, err
}

const listProducts = `SELECT ` + productColumns + `
FROM products WHERE is_deleted = false ORDER BY created_at DESC`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const searchProducts = `SELECT ` + productColumns + `
FROM products WHERE is_deleted = false AND name ILIKE '%' || $1 || '%'
ORDER BY created_at DESC`

func (q *Queries) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	rows, err := q.db.Query(ctx, searchProducts, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getProduct = `SELECT ` + productColumns + `
FROM products WHERE id = $1 AND is_deleted = false`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProductsByIDs = `SELECT ` + productColumns + `
FROM products WHERE id = ANY($1::bigint[]) AND is_deleted = false`

// ListProductsByIDs returns the non-deleted products among ids, in no
// particular order. Callers needing referential strictness compare the
// result count against len(ids).
func (q *Queries) ListProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type CreateProductParams struct {
	Name        string
	Sku         string
	Image       pgtype.Text
	Thumbnail   pgtype.Text
	Description string
	Price       int64
	UseStock    bool
	Stock       int32
	Addons      []AddonGroup
	AdminID     uuid.UUID
}

const createProduct = `INSERT INTO products
(name, sku, image, thumbnail, description, price, use_stock, stock, addons, admin_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + productColumns

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Sku, arg.Image, arg.Thumbnail, arg.Description,
		arg.Price, arg.UseStock, arg.Stock, arg.Addons, arg.AdminID,
	))
}

type UpdateProductParams struct {
	ID          int64
	Name        string
	Sku         string
	Image       pgtype.Text
	Thumbnail   pgtype.Text
	Description string
	Price       int64
	UseStock    bool
	Stock       int32
	Addons      []AddonGroup
}

const updateProduct = `UPDATE products
SET name = $2, sku = $3, image = $4, thumbnail = $5, description = $6,
    price = $7, use_stock = $8, stock = $9, addons = $10, updated_at = now()
WHERE id = $1 AND is_deleted = false
RETURNING ` + productColumns

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Sku, arg.Image, arg.Thumbnail, arg.Description,
		arg.Price, arg.UseStock, arg.Stock, arg.Addons,
	))
}

const softDeleteProduct = `UPDATE products
SET is_deleted = true, updated_at = now()
WHERE id = $1 AND is_deleted = false
RETURNING id`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, softDeleteProduct, id).Scan(&deleted)
	return deleted, err
}
