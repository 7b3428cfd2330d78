package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainStatus tracks a custom domain's progress through verification.
type DomainStatus string

const (
	// DomainStatusPending means the row exists but ownership is not yet
	// confirmed, including when a TXT challenge is outstanding.
	DomainStatusPending DomainStatus = "pending"
	// DomainStatusVerifying means a verification attempt has been
	// dispatched and no ownership challenge is outstanding.
	DomainStatusVerifying DomainStatus = "verifying"
	// DomainStatusVerified means the registrar confirmed ownership.
	DomainStatusVerified DomainStatus = "verified"
	// DomainStatusFailed means verification errored or was rejected.
	DomainStatusFailed DomainStatus = "failed"
	// DomainStatusDisabled is terminal until re-enabled; reachable from
	// any state on tenant deactivation or manual disable.
	DomainStatusDisabled DomainStatus = "disabled"
)

// SSLStatus tracks certificate issuance separately from domain
// verification, because cert provisioning lags DNS verification.
type SSLStatus string

const (
	SSLStatusPending SSLStatus = "pending"
	SSLStatusActive  SSLStatus = "active"
)

// VerificationMethod is how domain ownership is proven.
type VerificationMethod string

const (
	VerificationMethodDNS VerificationMethod = "dns"
	VerificationMethodTXT VerificationMethod = "txt"
)

// domainTransitions is the single source of truth for legal status moves.
// Disabled is reachable from everywhere; re-enable goes back to pending.
var domainTransitions = map[DomainStatus][]DomainStatus{
	DomainStatusPending:   {DomainStatusVerifying, DomainStatusFailed, DomainStatusDisabled},
	DomainStatusVerifying: {DomainStatusVerified, DomainStatusPending, DomainStatusFailed, DomainStatusDisabled},
	DomainStatusVerified:  {DomainStatusDisabled},
	DomainStatusFailed:    {DomainStatusVerifying, DomainStatusDisabled},
	DomainStatusDisabled:  {DomainStatusPending},
}

// CanTransition reports whether moving from s to target is a legal
// state-machine step. Same-state moves are always allowed.
func (s DomainStatus) CanTransition(target DomainStatus) bool {
	if s == target {
		return true
	}
	for _, allowed := range domainTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// DNSChallenge is an ownership challenge the registrar requires before
// trusting a domain claim, published by the coach as a DNS record.
type DNSChallenge struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DNSInstruction is the record a coach must publish to point their
// domain at the platform.
type DNSInstruction struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	TTL   int    `json:"ttl"`
}

// CustomDomain maps a coach-owned hostname to their tenant. FullDomain is
// unique across all tenants.
type CustomDomain struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	RootDomain         string
	Subdomain          string // empty for apex domains
	FullDomain         string
	VerificationMethod VerificationMethod
	ExpectedValue      string // DNS record value the coach must publish
	Challenge          *DNSChallenge
	RegistrarRef       string // opaque id assigned by the registrar
	Provisioned        bool   // registrar-side registration succeeded
	Status             DomainStatus
	SSLStatus          SSLStatus
	AttemptCount       int
	LastAttemptAt      *time.Time
	VerifiedAt         *time.Time
	FailedReason       string // cleared on success
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Transition moves the domain to target, rejecting illegal moves so
// callers cannot scatter inconsistent status writes.
func (d *CustomDomain) Transition(target DomainStatus) error {
	if !d.Status.CanTransition(target) {
		return fmt.Errorf("domain %s: illegal transition %s -> %s: %w",
			d.FullDomain, d.Status, target, ErrConflict)
	}
	d.Status = target
	return nil
}

type CustomDomainRepository interface {
	Create(ctx context.Context, d *CustomDomain) error
	GetByID(ctx context.Context, id uuid.UUID) (*CustomDomain, error)
	GetByFullDomain(ctx context.Context, fullDomain string) (*CustomDomain, error)
	// GetServing resolves a hostname for request routing. It returns a
	// row only when the domain is verified AND the owning tenant is
	// active; both gates are enforced in one query.
	GetServing(ctx context.Context, host string) (*CustomDomain, *Tenant, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*CustomDomain, error)
	Update(ctx context.Context, d *CustomDomain) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DisableByTenant moves all of a tenant's domains to disabled.
	DisableByTenant(ctx context.Context, tenantID uuid.UUID) error
}
