package database

import (
	"context"

	"github.com/google/uuid"
)

const adminColumns = `id, username, password, created_at, updated_at`

func scanAdmin(row interface{ Scan(dest ...interface{}) error }) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Username, &a.Password, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const getAdminByUsername = `SELECT ` + adminColumns + `
FROM admins WHERE username = $1`

func (q *Queries) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByUsername, username))
}

const getAdminByID = `SELECT ` + adminColumns + `
FROM admins WHERE id = $1`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByID, id))
}

type CreateAdminParams struct {
	ID       uuid.UUID
	Username string
	Password string // bcrypt hash
}

const createAdmin = `INSERT INTO admins (id, username, password)
VALUES ($1, $2, $3)
RETURNING ` + adminColumns

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, createAdmin, arg.ID, arg.Username, arg.Password))
}
