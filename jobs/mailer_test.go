package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubMailer struct {
	sent []string
	err  error
}

func (s *stubMailer) Send(ctx context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

func TestMailJobDelivers(t *testing.T) {
	mailer := &stubMailer{}
	job := &MailJob{Mailer: mailer}

	task, err := NewSendEmailTask(SendEmailPayload{To: "asha@displaydoctor.local", Subject: "Welcome", Body: "<p>hi</p>"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []string{"asha@displaydoctor.local"}, mailer.sent)
}

func TestMailJobDropsMalformedPayload(t *testing.T) {
	job := &MailJob{Mailer: &stubMailer{}}

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMailJobPropagatesDeliveryError(t *testing.T) {
	boom := errors.New("relay down")
	job := &MailJob{Mailer: &stubMailer{err: boom}}

	task, err := NewSendEmailTask(SendEmailPayload{To: "x@y", Subject: "s", Body: "b"})
	require.NoError(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}
