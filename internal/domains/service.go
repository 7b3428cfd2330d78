// Package domains drives a custom domain through its lifecycle:
// unregistered -> pending -> verifying -> verified/failed, with disable
// reachable from anywhere. All registrar access goes through the
// registrar.Client adapter; all persistence through the repositories.
package domains

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/metrics"
	"github.com/companionlabs/companion/internal/notify"
	"github.com/companionlabs/companion/internal/registrar"
)

// Locker serializes verification attempts per domain. *redis.LockStore
// satisfies this interface.
type Locker interface {
	AcquireVerifyLock(ctx context.Context, domainID uuid.UUID, ttl time.Duration) (bool, error)
	ReleaseVerifyLock(ctx context.Context, domainID uuid.UUID) error
}

// Config carries the policy knobs for the orchestrator. It is built
// once at startup; there is no ambient global state.
type Config struct {
	// EdgeIP is the A-record value apex domains must point at.
	EdgeIP string
	// CNAMETarget is the record value subdomains must point at.
	CNAMETarget string
	// RecordTTL is the suggested TTL for published records, in seconds.
	RecordTTL int
	// MaxVerifyAttempts moves a domain to failed once exceeded.
	// Zero means unverified domains stay pending indefinitely.
	MaxVerifyAttempts int
	// LockTTL bounds how long a crashed verify attempt holds the
	// per-domain lock.
	LockTTL time.Duration
}

// Service is the domain lifecycle orchestrator.
type Service struct {
	domains   domain.CustomDomainRepository
	tenants   domain.TenantRepository
	registrar registrar.Client
	locks     Locker
	notifier  notify.Notifier
	probe     HTTPSProber
	cfg       Config
}

func NewService(
	domainRepo domain.CustomDomainRepository,
	tenantRepo domain.TenantRepository,
	reg registrar.Client,
	locks Locker,
	notifier notify.Notifier,
	cfg Config,
) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = 3600
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		domains:   domainRepo,
		tenants:   tenantRepo,
		registrar: reg,
		locks:     locks,
		notifier:  notifier,
		probe:     ProbeHTTPS,
		cfg:       cfg,
	}
}

// SetProber overrides the HTTPS probe, used by tests.
func (s *Service) SetProber(p HTTPSProber) { s.probe = p }

// AddResult is what a coach needs after adding a domain: the stored row
// plus the DNS record to publish.
type AddResult struct {
	Domain       *domain.CustomDomain
	Instructions domain.DNSInstruction
}

// VerifyResult reports a verification attempt's outcome to the coach.
type VerifyResult struct {
	Verified  bool
	Message   string
	SSLStatus domain.SSLStatus
	// ChallengeNeeded is set when the registrar demands an ownership
	// record the coach must publish before verification can proceed.
	ChallengeNeeded *domain.DNSChallenge
}

// bestEffort captures the outcome of a side call that must never block
// the main flow. Callers invoke log and move on; control flow does not
// depend on the result.
type bestEffort struct {
	err error
}

func (b bestEffort) log(event, fullDomain string) {
	if b.err != nil {
		log.Warn().Err(b.err).Str("domain", fullDomain).Msg(event + " failed, continuing")
	}
}

// AddDomain validates and claims a hostname for a tenant. Registrar
// registration is attempted but non-blocking: the local row is created
// either way so the coach always gets actionable DNS instructions.
func (s *Service) AddDomain(ctx context.Context, tenantID uuid.UUID, rawDomain string) (*AddResult, error) {
	host := domain.NormalizeHostname(rawDomain)
	if err := domain.ValidateHostname(host); err != nil {
		return nil, fmt.Errorf("domains.AddDomain: %s: %w", err, domain.ErrInvalidDomain)
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("domains.AddDomain: %w", err)
	}

	// Uniqueness across ALL tenants. A domain claimed elsewhere is a
	// hard conflict, never a silent takeover.
	existing, err := s.domains.GetByFullDomain(ctx, host)
	switch {
	case err == nil && existing.TenantID == tenantID:
		return nil, fmt.Errorf("domains.AddDomain: %s: %w", host, domain.ErrAlreadyAdded)
	case err == nil:
		return nil, fmt.Errorf("domains.AddDomain: %s: %w", host, domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("domains.AddDomain: %w", err)
	}

	root, sub := domain.SplitHostname(host)
	instructions := s.instructionsFor(sub)

	now := time.Now()
	d := &domain.CustomDomain{
		ID:                 uuid.New(),
		TenantID:           tenant.ID,
		RootDomain:         root,
		Subdomain:          sub,
		FullDomain:         host,
		VerificationMethod: domain.VerificationMethodDNS,
		ExpectedValue:      instructions.Value,
		Status:             domain.DomainStatusPending,
		SSLStatus:          domain.SSLStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// Registrar provisioning is best-effort here: a registrar outage
	// must not stop the coach from seeing their DNS instructions.
	reg, regErr := s.registrar.Register(ctx, host)
	if regErr != nil {
		metrics.RegistrarErrors.Inc()
		bestEffort{err: regErr}.log("registrar registration", host)
	} else {
		d.Provisioned = true
		d.RegistrarRef = reg.RegistrarRef
		if len(reg.Challenges) > 0 {
			ch := reg.Challenges[0]
			d.Challenge = &ch
			d.VerificationMethod = domain.VerificationMethodTXT
		}
	}

	if err := s.domains.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("domains.AddDomain: %w", err)
	}

	log.Info().Str("domain", host).Str("tenant", tenant.Slug).Bool("provisioned", d.Provisioned).Msg("custom domain added")

	return &AddResult{Domain: d, Instructions: instructions}, nil
}

func (s *Service) instructionsFor(sub string) domain.DNSInstruction {
	if sub == "" {
		return domain.DNSInstruction{Type: "A", Name: "@", Value: s.cfg.EdgeIP, TTL: s.cfg.RecordTTL}
	}
	return domain.DNSInstruction{Type: "CNAME", Name: sub, Value: s.cfg.CNAMETarget, TTL: s.cfg.RecordTTL}
}

// Verify runs one verification attempt for a domain the tenant owns.
// Registrar failures surface as "not yet verified", never as a hard
// failure; the coach's corrective action is the same either way.
func (s *Service) Verify(ctx context.Context, tenantID, domainID uuid.UUID) (*VerifyResult, error) {
	d, err := s.ownedDomain(ctx, tenantID, domainID)
	if err != nil {
		return nil, fmt.Errorf("domains.Verify: %w", err)
	}

	if d.Status == domain.DomainStatusVerified {
		return &VerifyResult{Verified: true, Message: "domain is already verified", SSLStatus: d.SSLStatus}, nil
	}
	if d.Status == domain.DomainStatusDisabled {
		return nil, fmt.Errorf("domains.Verify: domain is disabled: %w", domain.ErrConflict)
	}

	acquired, err := s.locks.AcquireVerifyLock(ctx, d.ID, s.cfg.LockTTL)
	if err != nil {
		// Lock store down: proceed unlocked rather than blocking all
		// verification on Redis health.
		bestEffort{err: err}.log("verify lock acquire", d.FullDomain)
	} else if !acquired {
		return nil, fmt.Errorf("domains.Verify: %s: %w", d.FullDomain, domain.ErrVerifyInProgress)
	} else {
		defer func() {
			bestEffort{err: s.locks.ReleaseVerifyLock(context.WithoutCancel(ctx), d.ID)}.log("verify lock release", d.FullDomain)
		}()
	}

	// Mark the attempt before touching the registrar so operators can
	// see stuck attempts.
	now := time.Now()
	d.AttemptCount++
	d.LastAttemptAt = &now
	if err := d.Transition(domain.DomainStatusVerifying); err != nil {
		return nil, fmt.Errorf("domains.Verify: %w", err)
	}
	if err := s.domains.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("domains.Verify: %w", err)
	}

	if !d.Provisioned {
		reg, regErr := s.registrar.Register(ctx, d.FullDomain)
		if regErr != nil {
			metrics.RegistrarErrors.Inc()
			metrics.VerifyAttempts.WithLabelValues("error").Inc()
			return s.deferAttempt(ctx, d, "registrar unreachable; try again shortly")
		}
		d.Provisioned = true
		d.RegistrarRef = reg.RegistrarRef
		if len(reg.Challenges) > 0 {
			return s.challengeRequired(ctx, d, reg.Challenges[0])
		}
	}

	outcome, err := s.registrar.RequestVerification(ctx, d.FullDomain)
	if err != nil {
		metrics.RegistrarErrors.Inc()
		metrics.VerifyAttempts.WithLabelValues("error").Inc()
		return s.deferAttempt(ctx, d, "registrar unreachable; try again shortly")
	}

	switch o := outcome.(type) {
	case registrar.Verified:
		return s.markVerified(ctx, d, o.Certificates)
	case registrar.ChallengeRequired:
		metrics.VerifyAttempts.WithLabelValues("challenge").Inc()
		return s.challengeRequired(ctx, d, o.Challenge)
	case registrar.Unverified:
		return s.markUnverified(ctx, d, o.Reason)
	default:
		return nil, fmt.Errorf("domains.Verify: unexpected outcome %T", outcome)
	}
}

// deferAttempt returns a domain to pending after a transient registrar
// failure. The reason is recorded for operator visibility but the
// attempt is not treated as a verification failure.
func (s *Service) deferAttempt(ctx context.Context, d *domain.CustomDomain, reason string) (*VerifyResult, error) {
	d.FailedReason = reason
	if err := d.Transition(domain.DomainStatusPending); err != nil {
		return nil, err
	}
	if err := s.domains.Update(ctx, d); err != nil {
		return nil, err
	}
	return &VerifyResult{Verified: false, Message: reason, SSLStatus: d.SSLStatus}, nil
}

// challengeRequired persists an outstanding ownership challenge. Status
// goes back to pending: verification must not look like it is
// progressing while the coach still owes a DNS record.
func (s *Service) challengeRequired(ctx context.Context, d *domain.CustomDomain, ch domain.DNSChallenge) (*VerifyResult, error) {
	d.Challenge = &ch
	d.VerificationMethod = domain.VerificationMethodTXT
	d.FailedReason = ""
	if err := d.Transition(domain.DomainStatusPending); err != nil {
		return nil, err
	}
	if err := s.domains.Update(ctx, d); err != nil {
		return nil, err
	}

	log.Info().Str("domain", d.FullDomain).Str("record", ch.Name).Msg("ownership challenge outstanding")

	return &VerifyResult{
		Verified:        false,
		Message:         fmt.Sprintf("publish a %s record at %s to prove ownership", ch.Type, ch.Name),
		SSLStatus:       d.SSLStatus,
		ChallengeNeeded: &ch,
	}, nil
}

func (s *Service) markVerified(ctx context.Context, d *domain.CustomDomain, certs []registrar.Certificate) (*VerifyResult, error) {
	now := time.Now()
	d.Challenge = nil
	d.FailedReason = ""
	d.VerifiedAt = &now
	if err := d.Transition(domain.DomainStatusVerified); err != nil {
		return nil, err
	}

	// Opportunistic SSL status from any certificate info returned; the
	// dedicated check can refresh it later.
	for _, cert := range certs {
		if cert.Status == "issued" {
			d.SSLStatus = domain.SSLStatusActive
			break
		}
	}

	if err := s.domains.Update(ctx, d); err != nil {
		return nil, err
	}

	if err := s.tenants.SetPrimaryDomain(ctx, d.TenantID, &d.FullDomain); err != nil {
		return nil, fmt.Errorf("set primary domain: %w", err)
	}

	metrics.VerifyAttempts.WithLabelValues("verified").Inc()
	bestEffort{err: s.notifier.Notify(ctx, fmt.Sprintf("domain %s verified after %d attempt(s)", d.FullDomain, d.AttemptCount))}.log("notify", d.FullDomain)
	log.Info().Str("domain", d.FullDomain).Msg("domain verified")

	return &VerifyResult{Verified: true, Message: "domain verified", SSLStatus: d.SSLStatus}, nil
}

func (s *Service) markUnverified(ctx context.Context, d *domain.CustomDomain, reason string) (*VerifyResult, error) {
	d.FailedReason = reason

	target := domain.DomainStatusPending
	if s.cfg.MaxVerifyAttempts > 0 && d.AttemptCount >= s.cfg.MaxVerifyAttempts {
		target = domain.DomainStatusFailed
	}
	if err := d.Transition(target); err != nil {
		return nil, err
	}
	if err := s.domains.Update(ctx, d); err != nil {
		return nil, err
	}

	if target == domain.DomainStatusFailed {
		metrics.VerifyAttempts.WithLabelValues("failed").Inc()
		bestEffort{err: s.notifier.Notify(ctx, fmt.Sprintf("domain %s failed verification after %d attempts: %s", d.FullDomain, d.AttemptCount, reason))}.log("notify", d.FullDomain)
	} else {
		metrics.VerifyAttempts.WithLabelValues("unverified").Inc()
	}

	return &VerifyResult{Verified: false, Message: reason, SSLStatus: d.SSLStatus}, nil
}

// CheckSSL refreshes a domain's certificate status. The registrar's
// self-reported config has been observed to lag reality, so an actual
// HTTPS probe corroborates it before the status flips to active. The
// returned bool reports whether a change was persisted.
func (s *Service) CheckSSL(ctx context.Context, tenantID, domainID uuid.UUID) (domain.SSLStatus, bool, error) {
	d, err := s.ownedDomain(ctx, tenantID, domainID)
	if err != nil {
		return "", false, fmt.Errorf("domains.CheckSSL: %w", err)
	}

	cfg, err := s.registrar.Config(ctx, d.FullDomain)
	if err != nil {
		metrics.RegistrarErrors.Inc()
		bestEffort{err: err}.log("registrar config check", d.FullDomain)
		return d.SSLStatus, false, nil
	}

	derived := domain.SSLStatusPending
	if !cfg.Misconfigured && s.probe(ctx, d.FullDomain) {
		derived = domain.SSLStatusActive
	}

	if derived == d.SSLStatus {
		return d.SSLStatus, false, nil
	}

	d.SSLStatus = derived
	if err := s.domains.Update(ctx, d); err != nil {
		return "", false, fmt.Errorf("domains.CheckSSL: %w", err)
	}

	log.Info().Str("domain", d.FullDomain).Str("ssl_status", string(derived)).Msg("ssl status updated")

	return derived, true, nil
}

// Remove deletes a domain the tenant owns. Registrar deregistration is
// best-effort and never blocks local cleanup. Removing the tenant's
// primary domain clears the pointer, which disables custom-domain
// serving for that tenant.
func (s *Service) Remove(ctx context.Context, tenantID, domainID uuid.UUID) error {
	d, err := s.ownedDomain(ctx, tenantID, domainID)
	if err != nil {
		return fmt.Errorf("domains.Remove: %w", err)
	}

	if d.Provisioned {
		be := bestEffort{err: s.registrar.Deregister(ctx, d.FullDomain)}
		if be.err != nil {
			metrics.RegistrarErrors.Inc()
		}
		be.log("registrar deregistration", d.FullDomain)
	}

	if err := s.domains.Delete(ctx, d.ID); err != nil {
		return fmt.Errorf("domains.Remove: %w", err)
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("domains.Remove: %w", err)
	}
	if tenant.PrimaryDomain != nil && *tenant.PrimaryDomain == d.FullDomain {
		if err := s.tenants.SetPrimaryDomain(ctx, tenantID, nil); err != nil {
			return fmt.Errorf("domains.Remove: clear primary domain: %w", err)
		}
	}

	log.Info().Str("domain", d.FullDomain).Str("tenant_id", tenantID.String()).Msg("custom domain removed")

	return nil
}

// List returns the tenant's domains for the dashboard.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error) {
	ds, err := s.domains.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("domains.List: %w", err)
	}
	return ds, nil
}

// ownedDomain loads a domain and checks the requester's tenant owns it.
// Ownership failure is ErrForbidden, distinct from ErrNotFound.
func (s *Service) ownedDomain(ctx context.Context, tenantID, domainID uuid.UUID) (*domain.CustomDomain, error) {
	d, err := s.domains.GetByID(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.TenantID != tenantID {
		return nil, fmt.Errorf("domain %s not owned by tenant: %w", d.FullDomain, domain.ErrForbidden)
	}
	return d, nil
}
