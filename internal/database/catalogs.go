package database

import (
	"context"

	"github.com/google/uuid"
)

const catalogColumns = `id, name, category_list, admin_id, created_at, updated_at, is_deleted, sort_order`

func scanCatalog(row interface{ Scan(dest ...interface{}) error }) (Catalog, error) {
	var c Catalog
	err := row.Scan(
		&c.ID, &c.Name, &c.CategoryList, &c.AdminID,
		&c.CreatedAt, &c.UpdatedAt, &c.IsDeleted, &c.SortOrder,
	)
	return c, err
}

const listCatalogs = `SELECT ` + catalogColumns + `
FROM catalogs WHERE is_deleted = false ORDER BY created_at DESC`

func (q *Queries) ListCatalogs(ctx context.Context) ([]Catalog, error) {
	rows, err := q.db.Query(ctx, listCatalogs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Catalog
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const listCatalogsBySortOrder = `SELECT ` + catalogColumns + `
FROM catalogs WHERE is_deleted = false ORDER BY sort_order ASC, id ASC`

// ListCatalogsBySortOrder returns the catalogs in customer display
// order; input order feeds directly into catalog.Aggregate.
func (q *Queries) ListCatalogsBySortOrder(ctx context.Context) ([]Catalog, error) {
	rows, err := q.db.Query(ctx, listCatalogsBySortOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Catalog
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCatalog = `SELECT ` + catalogColumns + `
FROM catalogs WHERE id = $1 AND is_deleted = false`

func (q *Queries) GetCatalog(ctx context.Context, id int64) (Catalog, error) {
	return scanCatalog(q.db.QueryRow(ctx, getCatalog, id))
}

type CreateCatalogParams struct {
	Name         string
	CategoryList []Category
	AdminID      uuid.UUID
}

const createCatalog = `INSERT INTO catalogs (name, category_list, admin_id, sort_order)
VALUES ($1, $2, $3, COALESCE((SELECT MAX(sort_order) FROM catalogs), 0) + 1)
RETURNING ` + catalogColumns

func (q *Queries) CreateCatalog(ctx context.Context, arg CreateCatalogParams) (Catalog, error) {
	return scanCatalog(q.db.QueryRow(ctx, createCatalog, arg.Name, arg.CategoryList, arg.AdminID))
}

type UpdateCatalogParams struct {
	ID           int64
	Name         string
	CategoryList []Category
}

// category_list is replaced wholesale, never merged.
const updateCatalog = `UPDATE catalogs
SET name = $2, category_list = $3, updated_at = now()
WHERE id = $1 AND is_deleted = false
RETURNING ` + catalogColumns

func (q *Queries) UpdateCatalog(ctx context.Context, arg UpdateCatalogParams) (Catalog, error) {
	return scanCatalog(q.db.QueryRow(ctx, updateCatalog, arg.ID, arg.Name, arg.CategoryList))
}

type UpdateCatalogSortOrderParams struct {
	ID        int64
	SortOrder int32
}

const updateCatalogSortOrder = `UPDATE catalogs
SET sort_order = $2, updated_at = now()
WHERE id = $1 AND is_deleted = false
RETURNING id`

func (q *Queries) UpdateCatalogSortOrder(ctx context.Context, arg UpdateCatalogSortOrderParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, updateCatalogSortOrder, arg.ID, arg.SortOrder).Scan(&id)
	return id, err
}

const softDeleteCatalog = `UPDATE catalogs
SET is_deleted = true, updated_at = now()
WHERE id = $1 AND is_deleted = false
RETURNING id`

func (q *Queries) SoftDeleteCatalog(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, softDeleteCatalog, id).Scan(&deleted)
	return deleted, err
}
