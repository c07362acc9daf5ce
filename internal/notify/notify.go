// Package notify delivers e-mail about new service requests. Messages are
// queued as jobs and delivered by a Sender from the worker pool.
package notify

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/garnizeh/intake/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is one e-mail. It is also the payload of email.send jobs.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

var serviceLabels = map[models.ServiceType]string{
	models.ServiceWebDevelopment: "Web Development",
	models.ServiceMobileApps:     "Mobile Apps",
	models.ServiceCloudSolutions: "Cloud Solutions",
	models.ServiceAIIntegration:  "AI Integration",
	models.ServiceBlockchain:     "Blockchain",
	models.ServiceUIUX:           "UI/UX Design",
}

func serviceLabel(st models.ServiceType) string {
	if l, ok := serviceLabels[st]; ok {
		return l
	}
	return string(st)
}

type view struct {
	*models.ServiceRequest
	ServiceLabel string
	Received     string
}

// Mailer renders the messages sent for a new submission.
type Mailer struct {
	adminEmail string
}

// NewMailer returns a Mailer. An empty adminEmail disables the staff copy.
func NewMailer(adminEmail string) *Mailer {
	return &Mailer{adminEmail: strings.TrimSpace(adminEmail)}
}

// Messages renders the requester confirmation and, when configured, the
// staff notification for sr.
func (m *Mailer) Messages(sr *models.ServiceRequest) ([]Message, error) {
	v := view{
		ServiceRequest: sr,
		ServiceLabel:   serviceLabel(sr.ServiceType),
		Received:       sr.CreatedAt.UTC().Format(time.RFC1123),
	}

	confirmation, err := render("confirmation.html", v)
	if err != nil {
		return nil, err
	}
	out := []Message{{
		To:      []string{sr.Email},
		Subject: "We received your " + v.ServiceLabel + " request",
		HTML:    confirmation,
	}}

	if m.adminEmail != "" {
		body, err := render("admin.html", v)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{
			To:      []string{m.adminEmail},
			Subject: fmt.Sprintf("New %s request from %s", v.ServiceLabel, sr.Name),
			HTML:    body,
		})
	}

	return out, nil
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}
