// Package push delivers notifications to a user's registered device tokens.
// Notifiers are keyed by platform; the push transport itself is an external
// gateway, reached over HTTP.
package push

import (
	"context"
	"errors"
	"net/http"

	"github.com/lofwen/reddalert/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrTokenInvalid marks a token the gateway no longer recognizes. The
// dispatcher removes such tokens from the user's set.
var ErrTokenInvalid = errors.New("token invalid")

type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, token string, n Notification) (string, error)
}

type Registry map[string]Notifier

func NewNotifierRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return map[string]Notifier{
		"push":  &webhookNotifier{base},
		"email": &mailgunNotifier{base},
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
