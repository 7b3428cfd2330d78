package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is a coach's isolated instance of the platform. Tenants are never
// hard-deleted while subscriptions exist; deactivation flips IsActive, which
// gates all slug- and domain-based serving.
type Tenant struct {
	ID            uuid.UUID
	Name          string
	Slug          string
	IsActive      bool
	PrimaryDomain *string // canonical custom domain, mirrors a CustomDomain row
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	// SetPrimaryDomain points the tenant at a custom domain, or clears the
	// pointer when domain is nil.
	SetPrimaryDomain(ctx context.Context, id uuid.UUID, domain *string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
