package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/metrics"
)

// TenantDirectory is the read side of the resolver: hostname to tenant,
// gated on domain verification and tenant activation.
// domain.CustomDomainRepository satisfies it.
type TenantDirectory interface {
	GetServing(ctx context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error)
}

// ResolverConfig tells the resolver which hosts belong to the platform
// itself and therefore skip tenant resolution entirely.
type ResolverConfig struct {
	// PlatformHost is the platform's own apex, e.g. "companion.app".
	// Subdomains of it are also treated as platform hosts.
	PlatformHost string
	// DevHosts are additional recognized development/preview hosts.
	DevHosts []string
}

// ResolveTenant classifies every inbound host as platform or custom
// domain, resolves custom domains against the directory, and annotates
// the request with tenant context before it reaches application logic.
//
// Resolution is best-effort and side-effect-free: an unknown custom
// domain gets the notConfigured page, and any directory error fails
// open to plain pass-through. Platform availability never depends on
// this subsystem being healthy.
func ResolveTenant(directory TenantDirectory, cfg ResolverConfig, notConfigured http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := hostOnly(r.Host)

			if isPlatformHost(host, cfg) {
				metrics.ResolverDecisions.WithLabelValues("platform").Inc()
				next.ServeHTTP(w, r)
				return
			}

			_, tenant, err := directory.GetServing(r.Context(), host)
			if errors.Is(err, domain.ErrNotFound) {
				metrics.ResolverDecisions.WithLabelValues("not_configured").Inc()
				notConfigured.ServeHTTP(w, r)
				return
			}
			if err != nil {
				metrics.ResolverDecisions.WithLabelValues("fail_open").Inc()
				log.Warn().Err(err).Str("host", host).Msg("tenant resolution failed, passing through")
				next.ServeHTTP(w, r)
				return
			}

			// Annotate on every match branch so downstream handlers can
			// recover the tenant without a second lookup.
			r.Header.Set(HeaderCustomDomain, "true")
			r.Header.Set(HeaderTenantSlug, tenant.Slug)
			r.Header.Set(HeaderTenantID, tenant.ID.String())
			ctx := context.WithValue(r.Context(), ContextKeyTenantID, tenant.ID)
			r = r.WithContext(ctx)

			// Only the root path is rewritten (server-side, the
			// visitor's URL stays the bare domain). Tenant-scoped
			// paths, shared cross-tenant flows (auth, account, API)
			// and everything else pass through annotated.
			if r.URL.Path == "/" || r.URL.Path == "" {
				metrics.ResolverDecisions.WithLabelValues("rewrite").Inc()
				r.URL.Path = "/c/" + tenant.Slug
			} else {
				metrics.ResolverDecisions.WithLabelValues("annotate").Inc()
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(h)
	}
	return strings.ToLower(hostport)
}

func isPlatformHost(host string, cfg ResolverConfig) bool {
	if host == "" || host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}
	if host == cfg.PlatformHost || strings.HasSuffix(host, "."+cfg.PlatformHost) {
		return true
	}
	for _, dev := range cfg.DevHosts {
		if host == dev {
			return true
		}
	}
	return false
}
