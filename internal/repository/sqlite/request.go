package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository"
)

const requestColumns = `id, name, email, company, phone, service_type, message, status, priority, estimated_budget, deadline, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.ServiceRequest, error) {
	var (
		sr       models.ServiceRequest
		deadline sql.NullInt64
		created  int64
		updated  int64
	)
	if err := row.Scan(&sr.ID, &sr.Name, &sr.Email, &sr.Company, &sr.Phone, &sr.ServiceType, &sr.Message, &sr.Status, &sr.Priority, &sr.EstimatedBudget, &deadline, &sr.Notes, &created, &updated); err != nil {
		return nil, err
	}

	sr.Deadline = timePtr(deadline)
	sr.CreatedAt = fromMillis(created)
	sr.UpdatedAt = fromMillis(updated)
	return &sr, nil
}

func (r *SQLiteRepo) CreateRequest(ctx context.Context, sr *models.ServiceRequest) error {
	if sr == nil {
		return fmt.Errorf("service request is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO service_requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.Name, sr.Email, sr.Company, sr.Phone, sr.ServiceType, sr.Message, sr.Status, sr.Priority,
		sr.EstimatedBudget, nullMillis(sr.Deadline), sr.Notes, toMillis(sr.CreatedAt), toMillis(sr.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}

	return nil
}

func (r *SQLiteRepo) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	sr, err := scanRequest(r.conn.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return sr, nil
}

// ListRequests returns requests newest first. rowid breaks ties between
// requests created within the same millisecond.
func (r *SQLiteRepo) ListRequests(ctx context.Context, f repository.RequestFilter, limit, offset int) ([]models.ServiceRequest, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	where, args := filterClause(f)
	args = append(args, limit, offset)
	rows, err := r.conn.QueryRows(ctx, `SELECT `+requestColumns+` FROM service_requests`+where+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ServiceRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *sr)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CountRequests(ctx context.Context, f repository.RequestFilter) (int64, error) {
	where, args := filterClause(f)
	var cnt int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`+where, args...).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *SQLiteRepo) UpdateRequest(ctx context.Context, sr *models.ServiceRequest) (bool, error) {
	if sr == nil {
		return false, fmt.Errorf("service request is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE service_requests SET name = ?, email = ?, company = ?, phone = ?, service_type = ?, message = ?, status = ?, priority = ?, estimated_budget = ?, deadline = ?, notes = ?, updated_at = ? WHERE id = ?`,
		sr.Name, sr.Email, sr.Company, sr.Phone, sr.ServiceType, sr.Message, sr.Status, sr.Priority,
		sr.EstimatedBudget, nullMillis(sr.Deadline), sr.Notes, toMillis(sr.UpdatedAt), sr.ID)
	if err != nil {
		return false, fmt.Errorf("update service request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteRepo) DeleteRequest(ctx context.Context, id string) (bool, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM service_requests WHERE id = ?`, id)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func filterClause(f repository.RequestFilter) (string, []any) {
	if f.Status == "" {
		return "", nil
	}
	return ` WHERE status = ?`, []any{f.Status}
}
