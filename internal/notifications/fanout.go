package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	"github.com/pawbazaar/marketplace-backend/pkg/sendgrid"
)

// Sender delivers a rendered mail.
type Sender interface {
	Send(ctx context.Context, mail sendgrid.Mail) error
}

// DeliveryRecorder counts delivery outcomes.
type DeliveryRecorder interface {
	IncNotification(ok bool)
}

// Fanout renders and delivers messages to every party of a transaction.
type Fanout struct {
	renderer *Renderer
	sender   Sender
	logg     *logger.Logger
	metrics  DeliveryRecorder
}

func NewFanout(renderer *Renderer, sender Sender, logg *logger.Logger, metrics DeliveryRecorder) (*Fanout, error) {
	if renderer == nil {
		return nil, errors.New("notification renderer is required")
	}
	if sender == nil {
		return nil, errors.New("notification sender is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Fanout{renderer: renderer, sender: sender, logg: logg, metrics: metrics}, nil
}

// Send delivers each message in order. Failures are logged and counted per
// message; they never stop the remaining deliveries and are not returned.
func (f *Fanout) Send(ctx context.Context, msgs ...Message) {
	for _, msg := range msgs {
		err := f.deliver(ctx, msg)
		if f.metrics != nil {
			f.metrics.IncNotification(err == nil)
		}
		if err != nil {
			lctx := f.logg.WithFields(ctx, map[string]any{
				"template":  msg.Template,
				"recipient": msg.To,
			})
			f.logg.Warn(lctx, "notification delivery failed", err)
		}
	}
}

func (f *Fanout) deliver(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	html, err := f.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	mail := sendgrid.Mail{To: msg.To, Subject: msg.Subject, HTML: html}
	for _, a := range msg.Attachments {
		body, err := f.renderer.Render(a.Template, a.Data)
		if err != nil {
			return err
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = "text/html"
		}
		mail.Attachments = append(mail.Attachments, sendgrid.Attachment{
			Filename:    a.Filename,
			ContentType: contentType,
			Content:     []byte(body),
		})
	}
	return f.sender.Send(ctx, mail)
}

// LogSender records mail in the log instead of sending it. It backs local
// environments without a SendGrid key.
type LogSender struct {
	Logg *logger.Logger
}

func (s LogSender) Send(ctx context.Context, mail sendgrid.Mail) error {
	if s.Logg == nil {
		return nil
	}
	s.Logg.Info(s.Logg.WithFields(ctx, map[string]any{
		"to":          mail.To,
		"subject":     mail.Subject,
		"attachments": len(mail.Attachments),
	}), "mail suppressed")
	return nil
}
