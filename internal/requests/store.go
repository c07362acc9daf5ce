// Package requests implements the lifecycle of client service requests:
// public submission, paginated listing, review updates, deletion and the
// dashboard overview.
package requests

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Notifier is told about every accepted submission. Failures never undo the
// submission.
type Notifier interface {
	RequestReceived(ctx context.Context, sr *models.ServiceRequest) error
}

// Submission is the public form payload.
type Submission struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	ServiceType string `json:"serviceType"`
	Message     string `json:"message"`
}

// Patch carries a partial update. Nil fields are left untouched. An empty
// Deadline clears the stored deadline.
type Patch struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Company         *string `json:"company"`
	Phone           *string `json:"phone"`
	ServiceType     *string `json:"serviceType"`
	Message         *string `json:"message"`
	Status          *string `json:"status"`
	Priority        *string `json:"priority"`
	EstimatedBudget *string `json:"estimatedBudget"`
	Deadline        *string `json:"deadline"`
	Notes           *string `json:"notes"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type Page struct {
	Records    []models.ServiceRequest
	Pagination Pagination
}

type Store struct {
	repo     repository.RequestRepo
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewStore wires the request store. notifier may be nil.
func NewStore(repo repository.RequestRepo, notifier Notifier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Create validates and persists a public submission as a pending, medium
// priority request, then notifies. Notification errors are logged only.
func (s *Store) Create(ctx context.Context, in Submission) (*models.ServiceRequest, error) {
	now := s.now()
	sr := &models.ServiceRequest{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Company:     strings.TrimSpace(in.Company),
		Phone:       strings.TrimSpace(in.Phone),
		ServiceType: models.ServiceType(strings.TrimSpace(in.ServiceType)),
		Message:     strings.TrimSpace(in.Message),
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateRequest(sr); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRequest(ctx, sr); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.logger.Info("service request created", slog.String("id", sr.ID), slog.String("service_type", string(sr.ServiceType)))

	if s.notifier != nil {
		if err := s.notifier.RequestReceived(ctx, sr); err != nil {
			s.logger.Error("request notification failed", slog.String("id", sr.ID), slog.Any("err", err))
		}
	}

	return sr, nil
}

// List returns one page of requests, newest first. page and limit outside
// their ranges are normalised rather than rejected.
func (s *Store) List(ctx context.Context, status string, page, limit int) (*Page, error) {
	status = strings.TrimSpace(status)
	if err := validStatusFilter(status); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	f := repository.RequestFilter{Status: models.Status(status)}
	total, err := s.repo.CountRequests(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	records, err := s.repo.ListRequests(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if records == nil {
		records = []models.ServiceRequest{}
	}

	return &Page{
		Records: records,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	sr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if sr == nil {
		return nil, apperr.ErrNotFound
	}
	return sr, nil
}

// Update applies p to the stored record, re-validates the merged result and
// refreshes updatedAt. Any status may be set directly.
func (s *Store) Update(ctx context.Context, id string, p Patch) (*models.ServiceRequest, error) {
	sr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(sr, p); err != nil {
		return nil, err
	}
	if err := validateRequest(sr); err != nil {
		return nil, err
	}
	sr.UpdatedAt = s.now()

	ok, err := s.repo.UpdateRequest(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if !ok {
		// deleted between read and write
		return nil, apperr.ErrNotFound
	}
	s.logger.Info("service request updated", slog.String("id", sr.ID), slog.String("status", string(sr.Status)))

	return sr, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteRequest(ctx, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if !ok {
		return apperr.ErrNotFound
	}
	s.logger.Info("service request deleted", slog.String("id", id))
	return nil
}

func apply(sr *models.ServiceRequest, p Patch) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&sr.Name, p.Name)
	set(&sr.Company, p.Company)
	set(&sr.Phone, p.Phone)
	set(&sr.Message, p.Message)
	set(&sr.EstimatedBudget, p.EstimatedBudget)
	set(&sr.Notes, p.Notes)
	if p.Email != nil {
		sr.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.ServiceType != nil {
		sr.ServiceType = models.ServiceType(strings.TrimSpace(*p.ServiceType))
	}
	if p.Status != nil {
		sr.Status = models.Status(strings.TrimSpace(*p.Status))
	}
	if p.Priority != nil {
		sr.Priority = models.Priority(strings.TrimSpace(*p.Priority))
	}
	if p.Deadline != nil {
		d, err := parseDeadline(*p.Deadline)
		if err != nil {
			return err
		}
		sr.Deadline = d
	}
	return nil
}

var deadlineLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.NewValidationError("deadline", "Deadline must be a valid date")
}
