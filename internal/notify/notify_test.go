package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/garnizeh/intake/db"
	"github.com/garnizeh/intake/internal/db"
	"github.com/garnizeh/intake/internal/jobs"
	"github.com/garnizeh/intake/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleRequest() *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:          "req-1",
		Name:        "Jane <script>",
		Email:       "jane@example.com",
		Company:     "Acme",
		ServiceType: models.ServiceUIUX,
		Message:     "Please redesign <b>everything</b>",
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMailer_Messages(t *testing.T) {
	msgs, err := NewMailer("staff@example.com").Messages(sampleRequest())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages got %d", len(msgs))
	}
	if msgs[0].To[0] != "jane@example.com" || msgs[1].To[0] != "staff@example.com" {
		t.Fatalf("unexpected recipients %v / %v", msgs[0].To, msgs[1].To)
	}
	if !strings.Contains(msgs[0].Subject, "UI/UX Design") {
		t.Fatalf("subject should name the service: %q", msgs[0].Subject)
	}
	for _, m := range msgs {
		if strings.Contains(m.HTML, "<script>") || strings.Contains(m.HTML, "<b>") {
			t.Fatalf("user input must be escaped: %s", m.HTML)
		}
		if !strings.Contains(m.HTML, "req-1") {
			t.Fatalf("body should carry the reference id")
		}
	}
	if !strings.Contains(msgs[1].HTML, "Company: Acme") {
		t.Fatalf("staff copy should list the company: %s", msgs[1].HTML)
	}
}

func TestMailer_NoAdminEmail(t *testing.T) {
	msgs, err := NewMailer("  ").Messages(sampleRequest())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected only the confirmation, got %d", len(msgs))
	}
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	if typ != JobType {
		return 0, errors.New("unexpected job type " + typ)
	}
	q.msgs = append(q.msgs, payload.(Message))
	return int64(len(q.msgs)), nil
}

func TestQueuedNotifier(t *testing.T) {
	q := &fakeQueue{}
	n := NewQueuedNotifier(NewMailer("staff@example.com"), q, 3, nil)
	if err := n.RequestReceived(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("RequestReceived: %v", err)
	}
	if len(q.msgs) != 2 {
		t.Fatalf("expected 2 queued messages got %d", len(q.msgs))
	}

	q.err = errors.New("queue full")
	if err := n.RequestReceived(context.Background(), sampleRequest()); err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("expected enqueue error, got %v", err)
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	fail int
}

func (s *recordingSender) Send(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("relay refused")
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestQueuedDelivery(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "notify.db"), nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer d.Close()
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sender := &recordingSender{}
	pool := jobs.NewWorkerPool(jobs.NewRepository(d), map[string]jobs.Handler{JobType: SendHandler(sender)}, nil, 1)
	pool.Start(ctx)
	defer pool.Stop()

	n := NewQueuedNotifier(NewMailer("staff@example.com"), pool, 3, nil)
	if err := n.RequestReceived(ctx, sampleRequest()); err != nil {
		t.Fatalf("RequestReceived: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for sender.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 delivered messages, got %d", sender.count())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSendHandler_BadPayload(t *testing.T) {
	h := SendHandler(&recordingSender{})
	if err := h(context.Background(), &jobs.Job{Payload: []byte("{")}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSMTPSender(t *testing.T) {
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	s := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 587, Username: "user", Password: "pw", From: "noreply@example.com"})
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	m := Message{To: []string{"jane@example.com"}, Subject: "Olá", HTML: "<p>hi</p>\n"}
	if err := s.Send(context.Background(), m); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "mail.example.com:587" || gotAuth == nil || gotFrom != "noreply@example.com" || gotTo[0] != "jane@example.com" {
		t.Fatalf("unexpected envelope addr=%s from=%s to=%v", gotAddr, gotFrom, gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{"To: jane@example.com\r\n", "Subject: =?utf-8?q?", "Content-Type: text/html", "@example.com>\r\n", "\r\n\r\n<p>hi</p>\r\n"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 rejected") }
	if err := s.Send(context.Background(), m); err == nil || !strings.Contains(err.Error(), "550") {
		t.Fatalf("expected relay error, got %v", err)
	}
	if err := s.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error for message without recipients")
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := s.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "subject=hello") {
		t.Fatalf("expected subject to be logged, got %s", buf.String())
	}
}
