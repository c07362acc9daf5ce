package repository

import (
	"context"
	"time"

	"github.com/garnizeh/intake/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

type AdminRepo interface {
	CreateAdmin(ctx context.Context, a *models.Admin) error
	// GetAdminByID never populates PasswordHash.
	GetAdminByID(ctx context.Context, id string) (*models.Admin, error)
	// GetAdminCredentials looks an admin up by email including the password hash.
	GetAdminCredentials(ctx context.Context, email string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// RequestFilter narrows ListRequests and CountRequests. A zero value matches everything.
type RequestFilter struct {
	Status models.Status
}

type RequestRepo interface {
	CreateRequest(ctx context.Context, r *models.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	ListRequests(ctx context.Context, f RequestFilter, limit, offset int) ([]models.ServiceRequest, error)
	CountRequests(ctx context.Context, f RequestFilter) (int64, error)
	// UpdateRequest and DeleteRequest report false when no row matched id.
	UpdateRequest(ctx context.Context, r *models.ServiceRequest) (bool, error)
	DeleteRequest(ctx context.Context, id string) (bool, error)
}

// StatsRepo reads every (serviceType, status) group in one query so the
// aggregated counts come from a single snapshot.
type StatsRepo interface {
	CountGrouped(ctx context.Context) ([]models.GroupCount, error)
}
