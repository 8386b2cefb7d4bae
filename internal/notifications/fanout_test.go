package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	"github.com/pawbazaar/marketplace-backend/pkg/sendgrid"
)

type recordingSender struct {
	sent   []sendgrid.Mail
	failTo string
}

func (r *recordingSender) Send(_ context.Context, mail sendgrid.Mail) error {
	if mail.To == r.failTo {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, mail)
	return nil
}

type outcomeCounter struct {
	ok, failed int
}

func (c *outcomeCounter) IncNotification(ok bool) {
	if ok {
		c.ok++
		return
	}
	c.failed++
}

func newFanout(t *testing.T, sender Sender, counter DeliveryRecorder) *Fanout {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	f, err := NewFanout(renderer, sender, logger.Nop(), counter)
	require.NoError(t, err)
	return f
}

func TestFanoutIsolatesFailures(t *testing.T) {
	sender := &recordingSender{failTo: "vendor@example.com"}
	counter := &outcomeCounter{}
	f := newFanout(t, sender, counter)

	data := map[string]any{"Name": "Karim", "ExternalID": "ABC1234567", "Total": "160", "Status": "shipped"}
	f.Send(context.Background(),
		Message{To: "customer@example.com", Subject: "Order", Template: TemplateOrderStatus, Data: data},
		Message{To: "vendor@example.com", Subject: "Order", Template: TemplateOrderVendor, Data: data},
		Message{To: "", Subject: "Order", Template: TemplateOrderAdmin, Data: data},
		Message{To: "admin@example.com", Subject: "Order", Template: "missing", Data: data},
		Message{To: "admin@example.com", Subject: "Order", Template: TemplateOrderAdmin, Data: data},
	)

	require.Len(t, sender.sent, 2)
	require.Equal(t, 2, counter.ok)
	require.Equal(t, 3, counter.failed)
	require.Contains(t, sender.sent[0].HTML, "ABC1234567")
	require.Contains(t, sender.sent[0].HTML, "shipped")
}

func TestFanoutRendersAttachments(t *testing.T) {
	sender := &recordingSender{}
	f := newFanout(t, sender, nil)

	data := map[string]any{"Name": "Karim", "ExternalID": "ABC1234567", "Total": "160", "Paid": true}
	f.Send(context.Background(), Message{
		To:       "customer@example.com",
		Subject:  "Order",
		Template: TemplateOrderCustomer,
		Data:     data,
		Attachments: []Attachment{{
			Filename: "invoice-ABC1234567.html",
			Template: TemplateInvoice,
			Data:     data,
		}},
	})

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	require.Contains(t, mail.HTML, "invoice is attached")
	require.Len(t, mail.Attachments, 1)
	require.Equal(t, "text/html", mail.Attachments[0].ContentType)
	require.True(t, strings.Contains(string(mail.Attachments[0].Content), "Invoice ABC1234567"))
}

func TestRendererEscapesData(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)
	out, err := renderer.Render(TemplateAdminGeneric, map[string]any{"Kind": "order", "ExternalID": "X", "Summary": "<script>"})
	require.NoError(t, err)
	require.NotContains(t, out, "<script>")
}

func TestNewFanoutRequiresCollaborators(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)
	_, err = NewFanout(nil, &recordingSender{}, nil, nil)
	require.Error(t, err)
	_, err = NewFanout(renderer, nil, nil, nil)
	require.Error(t, err)
}

func TestLogSenderNeverFails(t *testing.T) {
	require.NoError(t, LogSender{}.Send(context.Background(), sendgrid.Mail{To: "a@b.c"}))
	require.NoError(t, LogSender{Logg: logger.Nop()}.Send(context.Background(), sendgrid.Mail{To: "a@b.c"}))
}
