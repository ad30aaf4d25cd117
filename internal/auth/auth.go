// Package auth maps inbound bearer credentials to tenants.
//
// Every failure (missing header, malformed scheme, unknown token) collapses
// into one undifferentiated Unauthorized so a probing client learns nothing
// about which part of the check failed.
package auth

import (
	"context"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/s950329/qmd-bridge/internal/errors"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

// cacheSize bounds the token-resolution cache. Tenant counts are small; this
// exists to keep hot-path lookups off the registry lock, not to hold a large
// working set.
const cacheSize = 128

// Authenticator resolves credentials through the tenant registry.
type Authenticator struct {
	registry *tenant.Registry
	cache    *lru.Cache[string, string] // token -> label
	logger   *slog.Logger
}

// New creates an Authenticator. The resolution cache is purged on every
// registry mutation, so a rotated token stops authenticating the moment
// RotateToken returns.
func New(registry *tenant.Registry, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, string](cacheSize)
	a := &Authenticator{registry: registry, cache: cache, logger: logger}
	registry.OnMutate(cache.Purge)
	return a
}

// Authenticate resolves an Authorization header value to a tenant.
func (a *Authenticator) Authenticate(credential string) (tenant.Tenant, error) {
	token, ok := bearerToken(credential)
	if !ok {
		return tenant.Tenant{}, errors.New(errors.CodeUnauthorized)
	}

	if label, hit := a.cache.Get(token); hit {
		if t, err := a.registry.Get(label); err == nil && t.Token == token {
			return t, nil
		}
		a.cache.Remove(token)
	}

	t, err := a.registry.GetByToken(token)
	if err != nil {
		a.logger.Debug("credential did not resolve")
		return tenant.Tenant{}, errors.New(errors.CodeUnauthorized)
	}
	a.cache.Add(token, t.Label)
	return t, nil
}

// bearerToken extracts the token from a `Bearer <token>` credential.
func bearerToken(credential string) (string, bool) {
	const scheme = "bearer "
	if len(credential) <= len(scheme) || !strings.EqualFold(credential[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(credential[len(scheme):])
	if token == "" {
		return "", false
	}
	return token, true
}

type ctxKey struct{}

// WithTenant attaches the authenticated tenant to the context for downstream
// use by the gateway and trigger endpoints.
func WithTenant(ctx context.Context, t tenant.Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the authenticated tenant, if any.
func FromContext(ctx context.Context) (tenant.Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(tenant.Tenant)
	return t, ok
}
