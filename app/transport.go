package app

import (
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Reddit rejects requests carrying Go's default User-Agent, so every
// outbound call goes through a transport that stamps ours.
const userAgent = "reddalert/1.0 (by /u/reddalert)"

func NewTransport(lc fx.Lifecycle, log *zap.Logger) http.RoundTripper {
	return &transport{base: http.DefaultTransport}
}

type transport struct {
	base http.RoundTripper
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return tpt.base.RoundTrip(req)
}
