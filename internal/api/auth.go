package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"skyfare/internal/config"
	"skyfare/internal/database"
	"skyfare/internal/models"

	"golang.org/x/time/rate"
)

type contextKey string

const identityContextKey contextKey = "identity"

// HTTPAuth resolves API keys to caller identities and enforces per-key
// rate limits. The resolved identity is attached to the request context
// once; handlers never touch credentials.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.resolve(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve maps the request's API key to an identity. With auth disabled
// the caller may impersonate any account through a plain header, which
// is only acceptable for local development.
func (a *HTTPAuth) resolve(r *http.Request) (models.Identity, error) {
	if !a.cfg.Auth.Enabled {
		accountID := int64(1)
		if raw := strings.TrimSpace(r.Header.Get("X-Account-ID")); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
				accountID = parsed
			}
		}
		return models.Identity{AccountID: accountID, Roles: []string{models.RoleManager}}, nil
	}

	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "X-API-Key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return models.Identity{}, fmt.Errorf("%w: missing api key header", database.ErrUnauthenticated)
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return models.Identity{}, fmt.Errorf("%w: invalid api key", database.ErrUnauthenticated)
	}

	return models.Identity{AccountID: client.AccountID, Roles: client.Roles}, nil
}

func identityFrom(r *http.Request) (models.Identity, bool) {
	identity, ok := r.Context().Value(identityContextKey).(models.Identity)
	return identity, ok
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "X-API-Key"
	}

	if apiKey := strings.TrimSpace(r.Header.Get(header)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
