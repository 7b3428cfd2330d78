// Package metrics defines Prometheus collectors in a standalone package
// to avoid import cycles between the resolver middleware and the domain
// lifecycle service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResolverDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_resolver_decisions_total",
		Help: "Request tenant resolver outcomes by decision",
	}, []string{"decision"}) // platform, rewrite, annotate, not_configured, fail_open

	VerifyAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_domain_verify_attempts_total",
		Help: "Domain verification attempts by outcome",
	}, []string{"outcome"}) // verified, challenge, unverified, failed, error

	RegistrarErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "companion_registrar_errors_total",
		Help: "Registrar API calls that returned an error",
	})
)

// Register adds all collectors to reg, or the default registerer when
// reg is nil. Double registration is tolerated so tests can re-register.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ResolverDecisions, VerifyAttempts, RegistrarErrors} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
