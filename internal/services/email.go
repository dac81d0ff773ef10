package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"orlandiv/internal/config"
	"orlandiv/internal/domain"
)

// Notifier is told about every stored visitor submission
type Notifier interface {
	NotifySubmission(rec domain.Record)
}

// EmailService sends admin notification emails over SMTP
type EmailService struct {
	cfg  *config.EmailConfig
	send func(m *gomail.Message) error
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// IsEnabled returns whether email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.cfg.Enabled && s.cfg.AdminEmail != ""
}

// NotifySubmission emails the admin about rec in the background.
// Failures are logged and never reach the visitor.
func (s *EmailService) NotifySubmission(rec domain.Record) {
	n, ok := notificationFor(rec)
	if !ok {
		return
	}
	if !s.IsEnabled() {
		log.Debugf("[EMAIL] %s", n.Subject)
		return
	}
	go func() {
		if err := s.deliver(n); err != nil {
			log.Warnf("[EMAIL] failed to send notification for %s: %v", rec.TableName(), err)
			return
		}
		log.Infof("[EMAIL] notification sent for %s", rec.TableName())
	}()
}

func (s *EmailService) deliver(n notification) error {
	htmlBody, err := n.html()
	if err != nil {
		return err
	}
	return s.SendHTMLEmail(s.cfg.AdminEmail, n.Subject, htmlBody, n.text())
}

// SendHTMLEmail sends an HTML email with plain text fallback
func (s *EmailService) SendHTMLEmail(to, subject, htmlBody, textBody string) error {
	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not properly configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from())
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailService) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}

func (s *EmailService) from() string {
	if s.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}
	return s.cfg.FromEmail
}

type notificationField struct {
	Label string
	Value string
}

type notification struct {
	Subject string
	Heading string
	Fields  []notificationField
	Body    string
}

func notificationFor(rec domain.Record) (notification, bool) {
	switch r := rec.(type) {
	case *domain.Quote:
		return notification{
			Subject: fmt.Sprintf("New quote request from %s", r.Name),
			Heading: "New Quote Request",
			Fields: []notificationField{
				{"Name", r.Name}, {"Email", r.Email}, {"Package", r.ProjectType}, {"Submitted", formatWhen(r.CreatedAt)},
			},
			Body: r.Details,
		}, true
	case *domain.Message:
		return notification{
			Subject: fmt.Sprintf("New message from %s", r.Name),
			Heading: "New Contact Message",
			Fields: []notificationField{
				{"Name", r.Name}, {"Email", r.Email}, {"Project type", r.ProjectType}, {"Submitted", formatWhen(r.CreatedAt)},
			},
			Body: r.Details,
		}, true
	case *domain.IoTRequest:
		return notification{
			Subject: fmt.Sprintf("New IoT request from %s", r.Name),
			Heading: "New IoT Services Request",
			Fields: []notificationField{
				{"Name", r.Name}, {"Email", r.Email}, {"Number", orNotProvided(r.Number)},
				{"Attachment", orNotProvided(r.FileURL)}, {"Submitted", formatWhen(r.CreatedAt)},
			},
			Body: r.Message,
		}, true
	}
	return notification{}, false
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("January 2, 2006 at 3:04 PM")
}

func orNotProvided(v *string) string {
	if v == nil || *v == "" {
		return "Not provided"
	}
	return *v
}

func (n notification) text() string {
	var b strings.Builder
	b.WriteString(n.Heading + "\n\n")
	for _, f := range n.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	b.WriteString("\n" + n.Body)
	return b.String()
}

var notificationTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Heading}}</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #7c3aed;">{{.Heading}}</h2>
        <div style="background: #f5f3ff; padding: 20px; border-radius: 8px; margin: 20px 0;">
            {{range .Fields}}<p><strong>{{.Label}}:</strong> {{.Value}}</p>
            {{end}}
        </div>
        <div style="padding: 20px; border-left: 4px solid #7c3aed; margin: 20px 0;">
            <p style="white-space: pre-wrap;">{{.Body}}</p>
        </div>
    </div>
</body>
</html>`))

func (n notification) html() (string, error) {
	var buf bytes.Buffer
	if err := notificationTemplate.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("failed to render notification: %w", err)
	}
	return buf.String(), nil
}
