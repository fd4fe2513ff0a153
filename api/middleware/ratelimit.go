package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/api/weberr"
	"github.com/rahmatfadhil/elearn/rate"
)

// RateLimit rejects requests that exceed the per-client budget of the
// passed limiter. Clients are keyed by remote IP.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !lim.Check(ip) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
