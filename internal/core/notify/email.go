// Package notify sends ingestion status emails over SMTP.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/somshekargr/studybuddy/internal/config"
	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

type EmailNotifier struct {
	username string
	password string
	from     string
	server   string
	port     int
}

var _ core.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	return &EmailNotifier{
		username: cfg.MailUsername,
		password: cfg.MailPassword,
		from:     cfg.MailFrom,
		server:   cfg.MailServer,
		port:     cfg.MailPort,
	}
}

// SendIngestionStatus emails the user when a document finishes processing.
// Missing SMTP configuration skips the send; callers treat any error as
// best-effort and log it.
func (n *EmailNotifier) SendIngestionStatus(ctx context.Context, email, filename, status string) error {
	if n.username == "" || n.password == "" {
		log.Println("notify: mail settings not configured, skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Study Buddy: Ingestion %s - %s", strings.ToUpper(status[:1])+status[1:], filename)
	body := renderBody(filename, status)

	msg := strings.Join([]string{
		"From: " + n.from,
		"To: " + email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.server, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.server)
	if err := smtp.SendMail(addr, auth, n.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", email, err)
	}
	return nil
}

func renderBody(filename, status string) string {
	outcome := "<p>There was an issue processing your file. Please try reprocessing it from the dashboard.</p>"
	if status == models.StatusReady {
		outcome = "<p>Your Knowledge Map has been updated and is ready for study!</p>"
	}
	return fmt.Sprintf(`<html><body>
<h2>Study Buddy Ingestion Update</h2>
<p>Hello,</p>
<p>The processing of your document <strong>%s</strong> has finished with status: <strong>%s</strong>.</p>
%s
<p>Happy Studying,<br>StudyBuddy Team</p>
</body></html>`, filename, strings.ToUpper(status), outcome)
}
