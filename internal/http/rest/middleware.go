package rest

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/lucsky/cuid"
	"github.com/pkg/errors"
	"github.com/planetcalm/petmap/util/tracing"
	"github.com/planetcalm/petmap/util/values"
)

// RequestTracing attaches a tracing context to every request. Webhook
// senders won't set our headers, so missing values get defaults instead
// of a rejection.
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = "api"
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// Rate limit tiers: generous reads, strict form submissions, a separate
// webhook tier for automation tools, and a tight tier for sensitive
// operations.
func apiRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(100, 15*time.Minute, httprate.WithKeyFuncs(httprate.KeyByRealIP))
}

func formRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(10, time.Hour, httprate.WithKeyFuncs(httprate.KeyByRealIP))
}

func strictRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(5, time.Hour, httprate.WithKeyFuncs(httprate.KeyByRealIP))
}

// webhookRateLimit allows trusted automation sources to bypass the limit
// entirely; everyone else gets the per-minute webhook tier.
func (api *API) webhookRateLimit() func(http.Handler) http.Handler {
	limiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByRealIP))

	trusted := make(map[string]bool, len(api.Config.TrustedWebhookIPs))
	for _, ip := range api.Config.TrustedWebhookIPs {
		if ip != "" {
			trusted[ip] = true
		}
	}

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trusted[remoteIP(r)] {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// VerifyWebhookSecret rejects webhook deliveries whose shared secret does
// not match. Disabled when no secret is configured. The secret may arrive
// as a header or a query parameter since some automation tools can only
// set one or the other.
func (api *API) VerifyWebhookSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := api.Config.WebhookSecret
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(values.HeaderWebhookSecret)
		if provided == "" {
			provided = r.URL.Query().Get("secret")
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			writeErrorResponse(w, errors.New("webhook secret mismatch"), values.NotAuthorised, "Invalid webhook secret")
			return
		}

		next.ServeHTTP(w, r)
	})
}
