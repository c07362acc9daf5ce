package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/intake/pkg/models"
)

func (r *SQLiteRepo) CreateAdmin(ctx context.Context, a *models.Admin) error {
	if a == nil {
		return fmt.Errorf("admin is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO admins (id, email, password_hash, name, role, is_active, last_login, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, a.Name, a.Role, a.IsActive, nullMillis(a.LastLogin), toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	return nil
}

func (r *SQLiteRepo) GetAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, email, name, role, is_active, last_login, created_at, updated_at FROM admins WHERE id = ?`, id)
	var (
		a         models.Admin
		lastLogin sql.NullInt64
		created   int64
		updated   int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.IsActive, &lastLogin, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	a.LastLogin = timePtr(lastLogin)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func (r *SQLiteRepo) GetAdminCredentials(ctx context.Context, email string) (*models.Admin, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, email, password_hash, name, role, is_active, last_login, created_at, updated_at FROM admins WHERE email = ?`, strings.ToLower(email))
	var (
		a         models.Admin
		lastLogin sql.NullInt64
		created   int64
		updated   int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.IsActive, &lastLogin, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	a.LastLogin = timePtr(lastLogin)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func (r *SQLiteRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.conn.Exec(ctx, `UPDATE admins SET last_login = ?, updated_at = ? WHERE id = ?`, toMillis(at), toMillis(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("admin %s not found", id)
	}

	return nil
}
