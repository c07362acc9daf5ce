package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository/mock"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (n *recordingNotifier) RequestReceived(ctx context.Context, sr *models.ServiceRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, sr.ID)
	return n.fail
}

// newTestStore returns a store whose clock advances one millisecond per call.
func newTestStore(t *testing.T, n Notifier) (*Store, *mock.RequestRepo) {
	t.Helper()
	repo := mock.NewRequestRepo()
	s := NewStore(repo, n, nil)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	return s, repo
}

func validSubmission() Submission {
	return Submission{
		Name:        "  Jane Client ",
		Email:       " Jane@Example.COM ",
		Company:     "Acme",
		ServiceType: "web-development",
		Message:     "We need a new marketing site.",
	}
}

func TestCreate_Defaults(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newTestStore(t, n)

	sr, err := s.Create(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sr.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if sr.Status != models.StatusPending || sr.Priority != models.PriorityMedium {
		t.Fatalf("unexpected defaults status=%s priority=%s", sr.Status, sr.Priority)
	}
	if sr.Name != "Jane Client" || sr.Email != "jane@example.com" {
		t.Fatalf("input not normalised: name=%q email=%q", sr.Name, sr.Email)
	}
	if !sr.CreatedAt.Equal(sr.UpdatedAt) {
		t.Fatalf("createdAt and updatedAt should match on create")
	}
	if len(n.got) != 1 || n.got[0] != sr.ID {
		t.Fatalf("expected one notification for %s, got %v", sr.ID, n.got)
	}

	stored, err := s.Get(context.Background(), sr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Message != sr.Message {
		t.Fatalf("stored record differs: %#v", stored)
	}
}

func TestCreate_NotifierFailureDoesNotFail(t *testing.T) {
	n := &recordingNotifier{fail: errors.New("smtp down")}
	s, repo := newTestStore(t, n)

	sr, err := s.Create(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Create should succeed despite notifier error: %v", err)
	}
	if got, _ := repo.GetRequest(context.Background(), sr.ID); got == nil {
		t.Fatalf("record should be persisted")
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"missing name", func(s *Submission) { s.Name = "   " }, "name"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email"},
		{"bad email", func(s *Submission) { s.Email = "not-an-email" }, "email"},
		{"email without domain", func(s *Submission) { s.Email = "user@localhost" }, "email"},
		{"unknown service", func(s *Submission) { s.ServiceType = "plumbing" }, "serviceType"},
		{"short message", func(s *Submission) { s.Message = "too short" }, "message"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := &recordingNotifier{}
			s, repo := newTestStore(t, n)
			in := validSubmission()
			tc.mutate(&in)

			_, err := s.Create(context.Background(), in)
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError got %v", err)
			}
			found := false
			for _, f := range ve.Fields {
				if f.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error on field %s, got %+v", tc.field, ve.Fields)
			}
			if n, _ := repo.CountRequests(context.Background(), repositoryAll); n != 0 {
				t.Fatalf("nothing should be stored on validation failure")
			}
			if len(n.got) != 0 {
				t.Fatalf("no notification expected on validation failure")
			}
		})
	}
}

func TestCreate_MessageExactlyTenChars(t *testing.T) {
	s, _ := newTestStore(t, nil)
	in := validSubmission()
	in.Message = "0123456789"
	if _, err := s.Create(context.Background(), in); err != nil {
		t.Fatalf("10 character message should be accepted: %v", err)
	}
}

func TestList_Pagination(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 25; i++ {
		in := validSubmission()
		in.Name = fmt.Sprintf("Client %02d", i)
		sr, err := s.Create(ctx, in)
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		ids = append(ids, sr.ID)
	}

	p, err := s.List(ctx, "", 2, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(p.Records) != 10 {
		t.Fatalf("expected 10 records got %d", len(p.Records))
	}
	if p.Pagination != (Pagination{Page: 2, Limit: 10, Total: 25, Pages: 3}) {
		t.Fatalf("unexpected pagination %+v", p.Pagination)
	}
	// newest first
	if p.Records[0].ID != ids[14] || p.Records[9].ID != ids[5] {
		t.Fatalf("unexpected order on page 2")
	}

	last, _ := s.List(ctx, "", 3, 10)
	if len(last.Records) != 5 {
		t.Fatalf("expected 5 records on last page got %d", len(last.Records))
	}
	beyond, _ := s.List(ctx, "", 9, 10)
	if len(beyond.Records) != 0 || beyond.Records == nil {
		t.Fatalf("expected empty non-nil page beyond the end")
	}
}

func TestList_Normalisation(t *testing.T) {
	s, _ := newTestStore(t, nil)
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultLimit},
		{-3, -1, 1, DefaultLimit},
		{1, 1000, 1, MaxLimit},
		{4, 25, 4, 25},
	}
	for _, tc := range tests {
		p, err := s.List(context.Background(), "", tc.page, tc.limit)
		if err != nil {
			t.Fatalf("List(%d,%d): %v", tc.page, tc.limit, err)
		}
		if p.Pagination.Page != tc.wantPage || p.Pagination.Limit != tc.wantLimit {
			t.Fatalf("List(%d,%d) normalised to %+v", tc.page, tc.limit, p.Pagination)
		}
		if p.Pagination.Pages != 0 || p.Pagination.Total != 0 {
			t.Fatalf("empty store should report zero pages: %+v", p.Pagination)
		}
	}
}

func TestList_StatusFilter(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		sr, err := s.Create(ctx, validSubmission())
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if i%2 == 0 {
			st := "completed"
			if _, err := s.Update(ctx, sr.ID, Patch{Status: &st}); err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
	}

	p, err := s.List(ctx, "completed", 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if p.Pagination.Total != 2 || len(p.Records) != 2 {
		t.Fatalf("expected 2 completed, got total=%d len=%d", p.Pagination.Total, len(p.Records))
	}
	for _, r := range p.Records {
		if r.Status != models.StatusCompleted {
			t.Fatalf("filter leaked %s", r.Status)
		}
	}

	if _, err := s.List(ctx, "archived", 1, 10); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	sr, err := s.Create(ctx, validSubmission())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status, priority, notes, budget, deadline := "in-progress", "high", " call back ", "$5k", "2030-06-01"
	got, err := s.Update(ctx, sr.ID, Patch{Status: &status, Priority: &priority, Notes: &notes, EstimatedBudget: &budget, Deadline: &deadline})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != models.StatusInProgress || got.Priority != models.PriorityHigh || got.Notes != "call back" || got.EstimatedBudget != "$5k" {
		t.Fatalf("patch not applied: %#v", got)
	}
	if got.Deadline == nil || !got.Deadline.Equal(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("deadline not parsed: %v", got.Deadline)
	}
	if !got.UpdatedAt.After(sr.CreatedAt) {
		t.Fatalf("updatedAt should move forward")
	}
	if !got.CreatedAt.Equal(sr.CreatedAt) || got.Name != sr.Name {
		t.Fatalf("untouched fields changed")
	}

	empty := ""
	cleared, err := s.Update(ctx, sr.ID, Patch{Deadline: &empty})
	if err != nil {
		t.Fatalf("clear deadline: %v", err)
	}
	if cleared.Deadline != nil {
		t.Fatalf("expected deadline to be cleared")
	}

	// any status may follow any other
	back := "pending"
	if _, err := s.Update(ctx, sr.ID, Patch{Status: &back}); err != nil {
		t.Fatalf("status back to pending: %v", err)
	}
}

func TestUpdate_Errors(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	sr, err := s.Create(ctx, validSubmission())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bad := "archived"
	if _, err := s.Update(ctx, sr.ID, Patch{Status: &bad}); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for bad status got %v", err)
	}
	badPriority := "urgent"
	if _, err := s.Update(ctx, sr.ID, Patch{Priority: &badPriority}); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for bad priority got %v", err)
	}
	badDate := "next tuesday"
	if _, err := s.Update(ctx, sr.ID, Patch{Deadline: &badDate}); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for bad deadline got %v", err)
	}
	short := "short"
	if _, err := s.Update(ctx, sr.ID, Patch{Message: &short}); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for short message got %v", err)
	}

	stored, _ := s.Get(ctx, sr.ID)
	if stored.Status != models.StatusPending || stored.Message != sr.Message {
		t.Fatalf("failed updates must not change the record: %#v", stored)
	}

	st := "completed"
	if _, err := s.Update(ctx, "missing", Patch{Status: &st}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	sr, err := s.Create(ctx, validSubmission())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, sr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, sr.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete got %v", err)
	}
	if err := s.Delete(ctx, sr.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound got %v", err)
	}
}

func TestRepoErrorsAreWrapped(t *testing.T) {
	s, repo := newTestStore(t, nil)
	boom := errors.New("disk gone")
	repo.Err = boom

	if _, err := s.Create(context.Background(), validSubmission()); !errors.Is(err, boom) {
		t.Fatalf("Create: expected wrapped error got %v", err)
	}
	if _, err := s.List(context.Background(), "", 1, 10); !errors.Is(err, boom) {
		t.Fatalf("List: expected wrapped error got %v", err)
	}
	if err := s.Delete(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "delete request") {
		t.Fatalf("Delete: expected wrapped error got %v", err)
	}
}
