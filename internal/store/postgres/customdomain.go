package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/companionlabs/companion/internal/domain"
)

type CustomDomainRepo struct {
	pool *pgxpool.Pool
}

func NewCustomDomainRepo(pool *pgxpool.Pool) *CustomDomainRepo {
	return &CustomDomainRepo{pool: pool}
}

const customDomainColumns = `id, tenant_id, root_domain, subdomain, full_domain,
	verification_method, expected_value, challenge_type, challenge_name, challenge_value,
	registrar_ref, provisioned, status, ssl_status, attempt_count,
	last_attempt_at, verified_at, failed_reason, created_at, updated_at`

func scanCustomDomain(row pgx.Row) (*domain.CustomDomain, error) {
	var (
		d                                         domain.CustomDomain
		challengeType, challengeName, challengeVal *string
	)

	err := row.Scan(
		&d.ID, &d.TenantID, &d.RootDomain, &d.Subdomain, &d.FullDomain,
		&d.VerificationMethod, &d.ExpectedValue, &challengeType, &challengeName, &challengeVal,
		&d.RegistrarRef, &d.Provisioned, &d.Status, &d.SSLStatus, &d.AttemptCount,
		&d.LastAttemptAt, &d.VerifiedAt, &d.FailedReason, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if challengeType != nil {
		d.Challenge = &domain.DNSChallenge{
			Type:  *challengeType,
			Name:  derefString(challengeName),
			Value: derefString(challengeVal),
		}
	}

	return &d, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func challengeFields(d *domain.CustomDomain) (typ, name, value *string) {
	if d.Challenge == nil {
		return nil, nil, nil
	}
	return &d.Challenge.Type, &d.Challenge.Name, &d.Challenge.Value
}

func (r *CustomDomainRepo) Create(ctx context.Context, d *domain.CustomDomain) error {
	chType, chName, chValue := challengeFields(d)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO custom_domains (`+customDomainColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		d.ID, d.TenantID, d.RootDomain, d.Subdomain, d.FullDomain,
		d.VerificationMethod, d.ExpectedValue, chType, chName, chValue,
		d.RegistrarRef, d.Provisioned, d.Status, d.SSLStatus, d.AttemptCount,
		d.LastAttemptAt, d.VerifiedAt, d.FailedReason, d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("customDomainRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("customDomainRepo.Create: %w", err)
	}

	return nil
}

func (r *CustomDomainRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomDomain, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+customDomainColumns+` FROM custom_domains WHERE id = $1`,
		id,
	)

	d, err := scanCustomDomain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customDomainRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("customDomainRepo.GetByID: %w", err)
	}

	return d, nil
}

func (r *CustomDomainRepo) GetByFullDomain(ctx context.Context, fullDomain string) (*domain.CustomDomain, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+customDomainColumns+` FROM custom_domains WHERE full_domain = $1`,
		fullDomain,
	)

	d, err := scanCustomDomain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customDomainRepo.GetByFullDomain: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("customDomainRepo.GetByFullDomain: %w", err)
	}

	return d, nil
}

// GetServing enforces both serving gates in one query: the domain row
// must be verified and the owning tenant must be active.
func (r *CustomDomainRepo) GetServing(ctx context.Context, host string) (*domain.CustomDomain, *domain.Tenant, error) {
	var (
		d domain.CustomDomain
		t domain.Tenant
	)

	err := r.pool.QueryRow(ctx,
		`SELECT d.id, d.tenant_id, d.full_domain, d.status, d.ssl_status,
		        t.id, t.name, t.slug, t.is_active, t.primary_domain
		 FROM custom_domains d
		 JOIN tenants t ON t.id = d.tenant_id
		 WHERE d.full_domain = $1 AND d.status = $2 AND t.is_active`,
		host, domain.DomainStatusVerified,
	).Scan(
		&d.ID, &d.TenantID, &d.FullDomain, &d.Status, &d.SSLStatus,
		&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.PrimaryDomain,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("customDomainRepo.GetServing: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("customDomainRepo.GetServing: %w", err)
	}

	return &d, &t, nil
}

func (r *CustomDomainRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.CustomDomain, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customDomainColumns+` FROM custom_domains
		 WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("customDomainRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var domains []*domain.CustomDomain
	for rows.Next() {
		d, scanErr := scanCustomDomain(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("customDomainRepo.ListByTenant: scan: %w", scanErr)
		}
		domains = append(domains, d)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("customDomainRepo.ListByTenant: rows: %w", err)
	}

	return domains, nil
}

func (r *CustomDomainRepo) Update(ctx context.Context, d *domain.CustomDomain) error {
	chType, chName, chValue := challengeFields(d)

	tag, err := r.pool.Exec(ctx,
		`UPDATE custom_domains SET
		   verification_method = $1, expected_value = $2,
		   challenge_type = $3, challenge_name = $4, challenge_value = $5,
		   registrar_ref = $6, provisioned = $7, status = $8, ssl_status = $9,
		   attempt_count = $10, last_attempt_at = $11, verified_at = $12,
		   failed_reason = $13, updated_at = now()
		 WHERE id = $14`,
		d.VerificationMethod, d.ExpectedValue,
		chType, chName, chValue,
		d.RegistrarRef, d.Provisioned, d.Status, d.SSLStatus,
		d.AttemptCount, d.LastAttemptAt, d.VerifiedAt,
		d.FailedReason, d.ID,
	)
	if err != nil {
		return fmt.Errorf("customDomainRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customDomainRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CustomDomainRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM custom_domains WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("customDomainRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customDomainRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CustomDomainRepo) DisableByTenant(ctx context.Context, tenantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE custom_domains SET status = $1, updated_at = now()
		 WHERE tenant_id = $2 AND status <> $1`,
		domain.DomainStatusDisabled, tenantID,
	)
	if err != nil {
		return fmt.Errorf("customDomainRepo.DisableByTenant: %w", err)
	}

	return nil
}
