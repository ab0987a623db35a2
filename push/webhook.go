package push

import (
	"context"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
)

// webhookNotifier forwards the message to a push gateway which owns the
// actual browser-push delivery. The gateway answers 404/410 for tokens it
// has dropped; those map to ErrTokenInvalid so the dispatcher self-heals.
type webhookNotifier struct {
	base
}

type webhookPayload struct {
	Token        string `json:"token"`
	Notification `json:"notification"`
}

type webhookResponse struct {
	MessageID string `json:"message_id"`
}

func (w *webhookNotifier) Send(ctx context.Context, token string, n Notification) (string, error) {
	timeout := time.Duration(w.cfg.Push.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp webhookResponse
	err := requests.URL(w.cfg.Push.GatewayURL).
		Transport(w.transport).
		Header("X-API-Key", w.cfg.Push.APIKey).
		BodyJSON(&webhookPayload{Token: token, Notification: n}).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		if requests.HasStatusErr(err, http.StatusNotFound, http.StatusGone) {
			return "", ErrTokenInvalid
		}
		return "", err
	}
	return resp.MessageID, nil
}
