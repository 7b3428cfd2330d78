// Package registrar isolates all calls to the external domain
// provisioning API behind a narrow client interface.
package registrar

import (
	"context"

	"github.com/companionlabs/companion/internal/domain"
)

// Certificate is TLS certificate info the registrar reports for a domain.
type Certificate struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // "pending" or "issued"
	ExpiresAt int64  `json:"expiresAt"`
}

// RegisterResult is the outcome of registering a domain with the registrar.
type RegisterResult struct {
	RegistrarRef string
	// AlreadyExists is set when the registrar reports the domain is
	// already attached, possibly to another project. Non-fatal: the
	// domain may already be correctly configured.
	AlreadyExists bool
	Challenges    []domain.DNSChallenge
}

// DomainConfig is the registrar's read-only health view of a domain.
type DomainConfig struct {
	Misconfigured bool
}

// VerificationOutcome is a discriminated result of a verification
// attempt: Verified, ChallengeRequired or Unverified. Callers switch on
// the concrete type instead of inspecting optional fields.
type VerificationOutcome interface {
	verificationOutcome()
}

// Verified means the registrar confirmed domain ownership.
type Verified struct {
	Certificates []Certificate
}

// ChallengeRequired means an ownership challenge (typically a TXT
// record) must be satisfied before verification can proceed.
type ChallengeRequired struct {
	Challenge domain.DNSChallenge
}

// Unverified means the registrar could not confirm ownership and issued
// no challenge, usually because DNS has not propagated yet.
type Unverified struct {
	Reason string
}

func (Verified) verificationOutcome()          {}
func (ChallengeRequired) verificationOutcome() {}
func (Unverified) verificationOutcome()        {}

// Client is the registrar adapter. Errors returned from any call mean
// "registrar unreachable or refused, outcome unknown"; they must never
// be interpreted as a failed verification.
type Client interface {
	Register(ctx context.Context, fullDomain string) (*RegisterResult, error)
	RequestVerification(ctx context.Context, fullDomain string) (VerificationOutcome, error)
	Config(ctx context.Context, fullDomain string) (*DomainConfig, error)
	Deregister(ctx context.Context, fullDomain string) error
}
