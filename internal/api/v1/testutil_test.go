package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/domains"
	"github.com/companionlabs/companion/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject tenant/user into context for DoCtx
// ---------------------------------------------------------------------------

func tenantCtx(tenantID uuid.UUID) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyTenantID, tenantID)
	return ctx
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	tenants domain.TenantRepository
	users   domain.UserRepository
	domains domain.CustomDomainRepository
}

func (m *mockDataStore) Tenants() domain.TenantRepository       { return m.tenants }
func (m *mockDataStore) Users() domain.UserRepository           { return m.users }
func (m *mockDataStore) Domains() domain.CustomDomainRepository { return m.domains }

// ---------------------------------------------------------------------------
// Mock TenantRepository
// ---------------------------------------------------------------------------

type mockTenantRepo struct {
	createFunc           func(ctx context.Context, t *domain.Tenant) error
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	getBySlugFunc        func(ctx context.Context, slug string) (*domain.Tenant, error)
	updateFunc           func(ctx context.Context, t *domain.Tenant) error
	setPrimaryDomainFunc func(ctx context.Context, id uuid.UUID, d *string) error
	setActiveFunc        func(ctx context.Context, id uuid.UUID, active bool) error
}

func (m *mockTenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	return m.createFunc(ctx, t)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return m.getBySlugFunc(ctx, slug)
}

func (m *mockTenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTenantRepo) SetPrimaryDomain(ctx context.Context, id uuid.UUID, d *string) error {
	return m.setPrimaryDomainFunc(ctx, id, d)
}

func (m *mockTenantRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.setActiveFunc(ctx, id, active)
}

// ---------------------------------------------------------------------------
// Mock CustomDomainRepository
// ---------------------------------------------------------------------------

type mockCustomDomainRepo struct {
	createFunc          func(ctx context.Context, d *domain.CustomDomain) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error)
	getByFullDomainFunc func(ctx context.Context, fullDomain string) (*domain.CustomDomain, error)
	getServingFunc      func(ctx context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error)
	listByTenantFunc    func(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error)
	updateFunc          func(ctx context.Context, d *domain.CustomDomain) error
	deleteFunc          func(ctx context.Context, id uuid.UUID) error
	disableByTenantFunc func(ctx context.Context, tenantID uuid.UUID) error
}

func (m *mockCustomDomainRepo) Create(ctx context.Context, d *domain.CustomDomain) error {
	return m.createFunc(ctx, d)
}

func (m *mockCustomDomainRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCustomDomainRepo) GetByFullDomain(ctx context.Context, fullDomain string) (*domain.CustomDomain, error) {
	return m.getByFullDomainFunc(ctx, fullDomain)
}

func (m *mockCustomDomainRepo) GetServing(ctx context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error) {
	return m.getServingFunc(ctx, host)
}

func (m *mockCustomDomainRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error) {
	return m.listByTenantFunc(ctx, tenantID)
}

func (m *mockCustomDomainRepo) Update(ctx context.Context, d *domain.CustomDomain) error {
	return m.updateFunc(ctx, d)
}

func (m *mockCustomDomainRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockCustomDomainRepo) DisableByTenant(ctx context.Context, tenantID uuid.UUID) error {
	return m.disableByTenantFunc(ctx, tenantID)
}

// ---------------------------------------------------------------------------
// Mock DomainLifecycle
// ---------------------------------------------------------------------------

type mockLifecycle struct {
	addDomainFunc func(ctx context.Context, tenantID uuid.UUID, rawDomain string) (*domains.AddResult, error)
	verifyFunc    func(ctx context.Context, tenantID, domainID uuid.UUID) (*domains.VerifyResult, error)
	checkSSLFunc  func(ctx context.Context, tenantID, domainID uuid.UUID) (domain.SSLStatus, bool, error)
	removeFunc    func(ctx context.Context, tenantID, domainID uuid.UUID) error
	listFunc      func(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error)
}

func (m *mockLifecycle) AddDomain(ctx context.Context, tenantID uuid.UUID, rawDomain string) (*domains.AddResult, error) {
	return m.addDomainFunc(ctx, tenantID, rawDomain)
}

func (m *mockLifecycle) Verify(ctx context.Context, tenantID, domainID uuid.UUID) (*domains.VerifyResult, error) {
	return m.verifyFunc(ctx, tenantID, domainID)
}

func (m *mockLifecycle) CheckSSL(ctx context.Context, tenantID, domainID uuid.UUID) (domain.SSLStatus, bool, error) {
	return m.checkSSLFunc(ctx, tenantID, domainID)
}

func (m *mockLifecycle) Remove(ctx context.Context, tenantID, domainID uuid.UUID) error {
	return m.removeFunc(ctx, tenantID, domainID)
}

func (m *mockLifecycle) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error) {
	return m.listFunc(ctx, tenantID)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, name, slug, email, password string) (*domain.Tenant, *domain.User, error)
	loginFunc        func(ctx context.Context, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, name, slug, email, password string) (*domain.Tenant, *domain.User, error) {
	return m.registerFunc(ctx, name, slug, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Deterministic UUIDs for stable tests
// ---------------------------------------------------------------------------

func fixedTenantID() uuid.UUID {
	return uuid.MustParse("00000000-0000-0000-0000-000000000001")
}

func fixedDomainID() uuid.UUID {
	return uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
}
