package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/domains"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Tenants() domain.TenantRepository
	Users() domain.UserRepository
	Domains() domain.CustomDomainRepository
}

// DomainLifecycle abstracts the domain orchestrator for handler testing.
// *domains.Service satisfies this interface.
type DomainLifecycle interface {
	AddDomain(ctx context.Context, tenantID uuid.UUID, rawDomain string) (*domains.AddResult, error)
	Verify(ctx context.Context, tenantID, domainID uuid.UUID) (*domains.VerifyResult, error)
	CheckSSL(ctx context.Context, tenantID, domainID uuid.UUID) (domain.SSLStatus, bool, error)
	Remove(ctx context.Context, tenantID, domainID uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error)
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, name, slug, email, password string) (*domain.Tenant, *domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}
