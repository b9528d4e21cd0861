package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EmailConfig holds SMTP connection details.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// EmailHandler sends an email via SMTP when NotifyChannel is "email"; the
// task's Link field is interpreted as the recipient address.
type EmailHandler struct {
	cfg EmailConfig
}

// NewEmailHandler creates an EmailHandler from config.
func NewEmailHandler(cfg EmailConfig) *EmailHandler {
	return &EmailHandler{cfg: cfg}
}

func (h *EmailHandler) Channel() string { return "email" }

func (h *EmailHandler) Handle(ctx context.Context, event TaskEvent) error {
	ctx, span := otel.Tracer("notify").Start(ctx, "handler.email")
	defer span.End()

	to := event.Task.Link
	if to == "" {
		err := errors.New("email channel requires a non-empty task link as recipient")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing recipient")
		return err
	}
	span.SetAttributes(attribute.String("email.to", to))

	subject := fmt.Sprintf("Task triggered: %s", event.Task.Title)
	body := fmt.Sprintf("%s was triggered at %s.\n", event.Task.Title, event.Occurrence.ScheduledFor)

	addr := fmt.Sprintf("%s:%d", h.cfg.Host, h.cfg.Port)
	msg := buildMIME(h.cfg.From, to, subject, body)

	var auth smtp.Auth
	if h.cfg.Username != "" {
		auth = smtp.PlainAuth("", h.cfg.Username, h.cfg.Password, h.cfg.Host)
	}

	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		done <- result{err: smtp.SendMail(addr, auth, h.cfg.From, []string{to}, msg)}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, "smtp send failed")
			return fmt.Errorf("smtp send to %s: %w", to, res.err)
		}
		return nil
	case <-ctx.Done():
		err := fmt.Errorf("email send timed out: %w", ctx.Err())
		span.RecordError(err)
		span.SetStatus(codes.Error, "timeout")
		return err
	}
}

func buildMIME(from, to, subject, body string) []byte {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body,
	)
	return []byte(msg)
}
