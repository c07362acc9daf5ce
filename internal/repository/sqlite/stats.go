package sqlite

import (
	"context"

	"github.com/garnizeh/intake/pkg/models"
)

// CountGrouped counts requests per (service_type, status). Empty groups are
// not returned.
func (r *SQLiteRepo) CountGrouped(ctx context.Context) ([]models.GroupCount, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT service_type, status, COUNT(*) FROM service_requests GROUP BY service_type, status ORDER BY service_type, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.GroupCount{}
	for rows.Next() {
		var g models.GroupCount
		if err := rows.Scan(&g.ServiceType, &g.Status, &g.Count); err != nil {
			return nil, err
		}

		out = append(out, g)
	}

	return out, rows.Err()
}
