package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay such as Mailpit in
// development.
type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

// Send delivers one message. The body is sent as-is with a text/html
// content type so templated mail renders in clients.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.Addr == "" || m.From == "" {
		return fmt.Errorf("mailer: smtp not configured")
	}
	var msg strings.Builder
	msg.WriteString("From: " + m.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg.String()))
}

// MailJob processes mail:send tasks.
type MailJob struct {
	Mailer Mailer
	Logger *slog.Logger
}

// Handle delivers the queued message. Malformed payloads are dropped,
// delivery failures are retried by asynq.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if j.Mailer == nil {
		return fmt.Errorf("mail job: mailer not configured")
	}
	if err := j.Mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		if j.Logger != nil {
			j.Logger.Error("send mail", slog.String("to", payload.To), slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	}
	return nil
}
