package push

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// mailgunNotifier delivers to "email" tokens, where the token is the
// recipient address.
type mailgunNotifier struct {
	base
}

func (e *mailgunNotifier) Send(ctx context.Context, token string, n Notification) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.Client().Transport = e.transport

	// Create message with empty body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, n.Title, "", token)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(e.formatBody(n))

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}

func (e *mailgunNotifier) formatBody(n Notification) string {
	if url, ok := n.Data["postUrl"]; ok {
		return fmt.Sprintf(`%s<br><a href="%s">%s</a>`, n.Body, url, url)
	}
	return n.Body
}
