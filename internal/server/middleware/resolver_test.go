package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/server/middleware"
)

// mockDirectory implements middleware.TenantDirectory.
type mockDirectory struct {
	getServingFunc func(ctx context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error)
}

func (m *mockDirectory) GetServing(ctx context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error) {
	return m.getServingFunc(ctx, host)
}

func resolverConfig() middleware.ResolverConfig {
	return middleware.ResolverConfig{
		PlatformHost: "companion.app",
		DevHosts:     []string{"preview.companion.dev"},
	}
}

// capture records whether a handler ran and what request it saw.
type capture struct {
	called bool
	req    *http.Request
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		c.called = true
		c.req = r
	})
}

func servingDirectory(t *testing.T, wantHost string, tenant *domain.Tenant) *mockDirectory {
	t.Helper()
	return &mockDirectory{
		getServingFunc: func(_ context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error) {
			assert.Equal(t, wantHost, host)
			return &domain.CustomDomain{
				FullDomain: wantHost,
				TenantID:   tenant.ID,
				Status:     domain.DomainStatusVerified,
			}, tenant, nil
		},
	}
}

func coachTenant() *domain.Tenant {
	return &domain.Tenant{
		ID:       uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Slug:     "coach-a",
		Name:     "Coach A",
		IsActive: true,
	}
}

func TestResolveTenantPlatformHosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		host string
	}{
		{name: "apex", host: "companion.app"},
		{name: "platform subdomain", host: "dashboard.companion.app"},
		{name: "dev host", host: "preview.companion.dev"},
		{name: "localhost with port", host: "localhost:8080"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			directory := &mockDirectory{
				getServingFunc: func(context.Context, string) (*domain.CustomDomain, *domain.Tenant, error) {
					t.Fatal("directory must not be queried for platform hosts")
					return nil, nil, nil
				},
			}

			var next capture
			mw := middleware.ResolveTenant(directory, resolverConfig(), http.NotFoundHandler())

			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			req.Host = tc.host
			mw(next.handler()).ServeHTTP(httptest.NewRecorder(), req)

			require.True(t, next.called)
			assert.Empty(t, next.req.Header.Get(middleware.HeaderCustomDomain), "platform requests are not annotated")
			assert.Equal(t, "/dashboard", next.req.URL.Path)
		})
	}
}

func TestResolveTenantCustomDomain(t *testing.T) {
	t.Parallel()

	t.Run("root path is rewritten to the tenant landing page", func(t *testing.T) {
		t.Parallel()

		tenant := coachTenant()
		var next capture
		mw := middleware.ResolveTenant(servingDirectory(t, "coach-a.com", tenant), resolverConfig(), http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "coach-a.com"
		mw(next.handler()).ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, next.called)
		assert.Equal(t, "/c/coach-a", next.req.URL.Path)
		assert.Equal(t, "true", next.req.Header.Get(middleware.HeaderCustomDomain))
		assert.Equal(t, "coach-a", next.req.Header.Get(middleware.HeaderTenantSlug))
		assert.Equal(t, tenant.ID.String(), next.req.Header.Get(middleware.HeaderTenantID))

		tid, ok := middleware.TenantIDFromContext(next.req.Context())
		require.True(t, ok)
		assert.Equal(t, tenant.ID, tid)
	})

	t.Run("host port is stripped before lookup", func(t *testing.T) {
		t.Parallel()

		tenant := coachTenant()
		var next capture
		mw := middleware.ResolveTenant(servingDirectory(t, "coach-a.com", tenant), resolverConfig(), http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "coach-a.com:443"
		mw(next.handler()).ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, next.called)
		assert.Equal(t, "/c/coach-a", next.req.URL.Path)
	})

	t.Run("non-root paths pass through annotated", func(t *testing.T) {
		t.Parallel()

		tenant := coachTenant()
		var next capture
		mw := middleware.ResolveTenant(servingDirectory(t, "coach-a.com", tenant), resolverConfig(), http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
		req.Host = "coach-a.com"
		mw(next.handler()).ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, next.called)
		assert.Equal(t, "/auth/login", next.req.URL.Path, "shared flows keep their path")
		assert.Equal(t, "true", next.req.Header.Get(middleware.HeaderCustomDomain))
		assert.Equal(t, "coach-a", next.req.Header.Get(middleware.HeaderTenantSlug))
	})

	t.Run("unrecognized domain serves the not-configured page", func(t *testing.T) {
		t.Parallel()

		directory := &mockDirectory{
			getServingFunc: func(context.Context, string) (*domain.CustomDomain, *domain.Tenant, error) {
				return nil, nil, domain.ErrNotFound
			},
		}

		var next, notConfigured capture
		mw := middleware.ResolveTenant(directory, resolverConfig(), notConfigured.handler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "unknown.example.com"
		rec := httptest.NewRecorder()
		mw(next.handler()).ServeHTTP(rec, req)

		assert.True(t, notConfigured.called)
		assert.False(t, next.called)
		assert.NotEqual(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("directory failure fails open", func(t *testing.T) {
		t.Parallel()

		directory := &mockDirectory{
			getServingFunc: func(context.Context, string) (*domain.CustomDomain, *domain.Tenant, error) {
				return nil, nil, errors.New("connection refused")
			},
		}

		var next capture
		mw := middleware.ResolveTenant(directory, resolverConfig(), http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "coach-a.com"
		rec := httptest.NewRecorder()
		mw(next.handler()).ServeHTTP(rec, req)

		require.True(t, next.called, "resolver errors must not block traffic")
		assert.Equal(t, "/", next.req.URL.Path)
		assert.Empty(t, next.req.Header.Get(middleware.HeaderCustomDomain))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
