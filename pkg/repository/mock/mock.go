package mock

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Admins   *AdminRepo
	Requests *RequestRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Admins:   NewAdminRepo(),
		Requests: NewRequestRepo(),
	}
}

var (
	_ repository.AdminRepo   = (*AdminRepo)(nil)
	_ repository.RequestRepo = (*RequestRepo)(nil)
	_ repository.StatsRepo   = (*RequestRepo)(nil)
)

// AdminRepo is an in-memory repository.AdminRepo.
type AdminRepo struct {
	mu     sync.Mutex
	admins map[string]models.Admin

	// Err, when set, is returned by every method.
	Err error
}

func NewAdminRepo() *AdminRepo {
	return &AdminRepo{admins: map[string]models.Admin{}}
}

func (m *AdminRepo) CreateAdmin(ctx context.Context, a *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if a == nil {
		return errors.New("nil admin")
	}
	for _, existing := range m.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return errors.New("email already exists")
		}
	}
	c := *a
	c.Email = strings.ToLower(c.Email)
	m.admins[c.ID] = c
	return nil
}

func (m *AdminRepo) GetAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.admins[id]
	if !ok {
		return nil, nil
	}
	a.PasswordHash = ""
	return &a, nil
}

func (m *AdminRepo) GetAdminCredentials(ctx context.Context, email string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *AdminRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	a, ok := m.admins[id]
	if !ok {
		return errors.New("admin not found")
	}
	at = at.UTC()
	a.LastLogin = &at
	a.UpdatedAt = at
	m.admins[id] = a
	return nil
}

// SetActive flips the active flag of a stored admin.
func (m *AdminRepo) SetActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.admins[id]; ok {
		a.IsActive = active
		m.admins[id] = a
	}
}

// Remove deletes a stored admin.
func (m *AdminRepo) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.admins, id)
}

type storedRequest struct {
	seq int
	sr  models.ServiceRequest
}

// RequestRepo is an in-memory repository.RequestRepo and StatsRepo. Listing
// order matches the sqlite implementation: createdAt descending, later
// inserts first on ties.
type RequestRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]storedRequest

	// Err, when set, is returned by every method.
	Err error
}

func NewRequestRepo() *RequestRepo {
	return &RequestRepo{rows: map[string]storedRequest{}}
}

func (m *RequestRepo) CreateRequest(ctx context.Context, r *models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if r == nil {
		return errors.New("nil request")
	}
	if _, ok := m.rows[r.ID]; ok {
		return errors.New("duplicate id")
	}
	m.seq++
	m.rows[r.ID] = storedRequest{seq: m.seq, sr: *r}
	return nil
}

func (m *RequestRepo) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &row.sr, nil
}

func (m *RequestRepo) ListRequests(ctx context.Context, f repository.RequestFilter, limit, offset int) ([]models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	matched := m.matching(f)
	slices.SortFunc(matched, func(a, b storedRequest) int {
		if c := b.sr.CreatedAt.Compare(a.sr.CreatedAt); c != 0 {
			return c
		}
		return b.seq - a.seq
	})

	out := []models.ServiceRequest{}
	for i := offset; i < len(matched) && len(out) < limit; i++ {
		out = append(out, matched[i].sr)
	}
	return out, nil
}

func (m *RequestRepo) CountRequests(ctx context.Context, f repository.RequestFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.matching(f))), nil
}

func (m *RequestRepo) UpdateRequest(ctx context.Context, r *models.ServiceRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	row, ok := m.rows[r.ID]
	if !ok {
		return false, nil
	}
	createdAt := row.sr.CreatedAt
	row.sr = *r
	row.sr.CreatedAt = createdAt
	m.rows[r.ID] = row
	return true, nil
}

func (m *RequestRepo) DeleteRequest(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *RequestRepo) CountGrouped(ctx context.Context) ([]models.GroupCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	type key struct {
		st     models.ServiceType
		status models.Status
	}
	counts := map[key]int64{}
	for _, row := range m.rows {
		counts[key{row.sr.ServiceType, row.sr.Status}]++
	}
	out := []models.GroupCount{}
	for k, n := range counts {
		out = append(out, models.GroupCount{ServiceType: k.st, Status: k.status, Count: n})
	}
	return out, nil
}

func (m *RequestRepo) matching(f repository.RequestFilter) []storedRequest {
	out := make([]storedRequest, 0, len(m.rows))
	for _, row := range m.rows {
		if f.Status != "" && row.sr.Status != f.Status {
			continue
		}
		out = append(out, row)
	}
	return out
}
