package server

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/store/postgres"
)

var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f8f7f4;color:#1a1a1a}
main{max-width:640px;margin:12vh auto;padding:0 24px}
h1{font-size:2.2rem;margin-bottom:.25rem}
p.slug{color:#777;margin-top:0}
</style>
</head>
<body>
<main>
<h1>{{.Name}}</h1>
<p class="slug">companion.app/{{.Slug}}</p>
<p>Welcome. Booking and programs are coming soon to this page.</p>
</main>
</body>
</html>
`))

var notConfiguredTmpl = template.Must(template.New("notconfigured").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Domain not configured</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f8f7f4;color:#1a1a1a}
main{max-width:640px;margin:12vh auto;padding:0 24px}
h1{font-size:1.8rem}
ul{line-height:1.7}
code{background:#eee;padding:2px 6px;border-radius:4px}
</style>
</head>
<body>
<main>
<h1>This domain is not configured</h1>
<p><code>{{.Host}}</code> points at Companion, but it is not connected to any coach site yet. Possible causes:</p>
<ul>
<li>DNS changes are still propagating (this can take up to 48 hours)</li>
<li>The DNS record points here but the domain was never added in the dashboard</li>
<li>The domain was added but has not been verified yet</li>
<li>The coach account that owns this domain is deactivated</li>
</ul>
<p>If you own this domain, open your Companion dashboard and check its status under Settings &rarr; Domains.</p>
</main>
</body>
</html>
`))

// notConfiguredHandler serves the explanatory page shown when a request
// arrives on a custom domain that no verified, active tenant owns.
func notConfiguredHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if err := notConfiguredTmpl.Execute(w, struct{ Host string }{Host: r.Host}); err != nil {
			log.Warn().Err(err).Msg("rendering not-configured page")
		}
	})
}

// landingHandler serves the public tenant landing page at /c/{slug}.
// Custom-domain root requests land here after the resolver rewrite.
func landingHandler(store *postgres.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		tenant, err := store.Tenants().GetBySlug(r.Context(), slug)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !tenant.IsActive {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := landingTmpl.Execute(w, tenant); err != nil {
			log.Warn().Err(err).Str("slug", slug).Msg("rendering landing page")
		}
	}
}
