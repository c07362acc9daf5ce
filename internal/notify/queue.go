package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/intake/internal/jobs"
	"github.com/garnizeh/intake/pkg/models"
)

// JobType is the job type used for queued e-mail.
const JobType = "email.send"

const jobPriority = 50

// Enqueuer is satisfied by *jobs.WorkerPool.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// QueuedNotifier turns new submissions into email.send jobs.
type QueuedNotifier struct {
	mailer      *Mailer
	queue       Enqueuer
	maxAttempts int
	logger      *slog.Logger
}

func NewQueuedNotifier(mailer *Mailer, queue Enqueuer, maxAttempts int, logger *slog.Logger) *QueuedNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueuedNotifier{mailer: mailer, queue: queue, maxAttempts: maxAttempts, logger: logger}
}

// RequestReceived enqueues every message for sr. It keeps going after a
// failed enqueue and returns the joined errors.
func (n *QueuedNotifier) RequestReceived(ctx context.Context, sr *models.ServiceRequest) error {
	msgs, err := n.mailer.Messages(sr)
	if err != nil {
		return err
	}

	var errs []error
	for _, m := range msgs {
		id, err := n.queue.Enqueue(ctx, JobType, m, jobPriority, n.maxAttempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue email to %v: %w", m.To, err))
			continue
		}
		n.logger.Debug("email queued", slog.Int64("job_id", id), slog.String("request_id", sr.ID))
	}
	return errors.Join(errs...)
}

// SendHandler returns the job handler that delivers queued messages.
func SendHandler(sender Sender) jobs.Handler {
	return func(ctx context.Context, j *jobs.Job) error {
		var m Message
		if err := json.Unmarshal(j.Payload, &m); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		return sender.Send(ctx, m)
	}
}
