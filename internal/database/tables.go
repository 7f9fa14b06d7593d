package database

import (
	"context"

	"github.com/google/uuid"
)

const tableColumns = `id, table_number, admin_id, created_at, updated_at, is_deleted`

func scanTable(row interface{ Scan(dest ...interface{}) error }) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.TableNumber, &t.AdminID, &t.CreatedAt, &t.UpdatedAt, &t.IsDeleted)
	return t, err
}

const listTables = `SELECT ` + tableColumns + `
FROM tables WHERE is_deleted = false ORDER BY table_number ASC`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTable = `SELECT ` + tableColumns + `
FROM tables WHERE id = $1 AND is_deleted = false`

func (q *Queries) GetTable(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

const getTableByNumber = `SELECT ` + tableColumns + `
FROM tables WHERE table_number = $1 AND is_deleted = false`

func (q *Queries) GetTableByNumber(ctx context.Context, tableNumber int32) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByNumber, tableNumber))
}

// Table numbers are assigned sequentially and never reused while a
// deleted table still holds the number.
const createTable = `INSERT INTO tables (table_number, admin_id)
VALUES (COALESCE((SELECT MAX(table_number) FROM tables), 0) + 1, $1)
RETURNING ` + tableColumns

func (q *Queries) CreateTable(ctx context.Context, adminID uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, adminID))
}

const softDeleteTable = `UPDATE tables
SET is_deleted = true, updated_at = now()
WHERE id = $1 AND is_deleted = false
RETURNING id`

func (q *Queries) SoftDeleteTable(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, softDeleteTable, id).Scan(&deleted)
	return deleted, err
}
