package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/server/middleware"
)

// domainView is the wire shape of a custom domain in API responses.
type domainView struct {
	ID            uuid.UUID            `json:"id"`
	FullDomain    string               `json:"full_domain"`
	RootDomain    string               `json:"root_domain"`
	Subdomain     string               `json:"subdomain,omitempty"`
	Status        domain.DomainStatus  `json:"status"`
	SSLStatus     domain.SSLStatus     `json:"ssl_status"`
	Provisioned   bool                 `json:"provisioned"`
	AttemptCount  int                  `json:"attempt_count"`
	LastAttemptAt *time.Time           `json:"last_attempt_at,omitempty"`
	VerifiedAt    *time.Time           `json:"verified_at,omitempty"`
	FailedReason  string               `json:"failed_reason,omitempty"`
	Challenge     *domain.DNSChallenge `json:"verification_needed,omitempty"`
}

func viewOf(d *domain.CustomDomain) domainView {
	return domainView{
		ID:            d.ID,
		FullDomain:    d.FullDomain,
		RootDomain:    d.RootDomain,
		Subdomain:     d.Subdomain,
		Status:        d.Status,
		SSLStatus:     d.SSLStatus,
		Provisioned:   d.Provisioned,
		AttemptCount:  d.AttemptCount,
		LastAttemptAt: d.LastAttemptAt,
		VerifiedAt:    d.VerifiedAt,
		FailedReason:  d.FailedReason,
		Challenge:     d.Challenge,
	}
}

type AddDomainInput struct {
	Body struct {
		Domain string `json:"domain" minLength:"3" maxLength:"253" doc:"Fully-qualified domain name to attach"`
	}
}

type AddDomainOutput struct {
	Body struct {
		Success      bool                  `json:"success"`
		Domain       domainView            `json:"domain"`
		Instructions domain.DNSInstruction `json:"instructions"`
	}
}

type domainIDInput struct {
	Body struct {
		DomainID uuid.UUID `json:"domain_id" doc:"Custom domain ID"`
	}
}

type VerifyDomainOutput struct {
	Body struct {
		Success            bool                 `json:"success"`
		Verified           bool                 `json:"verified"`
		Message            string               `json:"message"`
		SSLStatus          domain.SSLStatus     `json:"ssl_status,omitempty"`
		VerificationNeeded *domain.DNSChallenge `json:"verification_needed,omitempty"`
	}
}

type CheckSSLOutput struct {
	Body struct {
		Success   bool             `json:"success"`
		SSLStatus domain.SSLStatus `json:"ssl_status"`
		Updated   bool             `json:"updated"`
	}
}

type RemoveDomainOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

type ListDomainsOutput struct {
	Body struct {
		Domains []domainView `json:"domains"`
	}
}

func RegisterDomainRoutes(api huma.API, lifecycle DomainLifecycle) {
	huma.Register(api, huma.Operation{
		OperationID: "add-domain",
		Method:      http.MethodPost,
		Path:        "/domains/add",
		Summary:     "Attach a custom domain to the tenant",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *AddDomainInput) (*AddDomainOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		res, err := lifecycle.AddDomain(ctx, tenantID, input.Body.Domain)
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := &AddDomainOutput{}
		out.Body.Success = true
		out.Body.Domain = viewOf(res.Domain)
		out.Body.Instructions = res.Instructions
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-domain",
		Method:      http.MethodPost,
		Path:        "/domains/verify",
		Summary:     "Run a verification attempt for a custom domain",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *domainIDInput) (*VerifyDomainOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		res, err := lifecycle.Verify(ctx, tenantID, input.Body.DomainID)
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := &VerifyDomainOutput{}
		out.Body.Success = res.Verified
		out.Body.Verified = res.Verified
		out.Body.Message = res.Message
		out.Body.SSLStatus = res.SSLStatus
		out.Body.VerificationNeeded = res.ChallengeNeeded
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-domain-ssl",
		Method:      http.MethodPost,
		Path:        "/domains/check-ssl",
		Summary:     "Refresh a custom domain's certificate status",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *domainIDInput) (*CheckSSLOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		status, updated, err := lifecycle.CheckSSL(ctx, tenantID, input.Body.DomainID)
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := &CheckSSLOutput{}
		out.Body.Success = true
		out.Body.SSLStatus = status
		out.Body.Updated = updated
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-domain",
		Method:      http.MethodPost,
		Path:        "/domains/remove",
		Summary:     "Detach a custom domain from the tenant",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *domainIDInput) (*RemoveDomainOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		if err := lifecycle.Remove(ctx, tenantID, input.Body.DomainID); err != nil {
			return nil, mapDomainError(err)
		}

		out := &RemoveDomainOutput{}
		out.Body.Success = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-domains",
		Method:      http.MethodGet,
		Path:        "/domains",
		Summary:     "List the tenant's custom domains",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, _ *struct{}) (*ListDomainsOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		ds, err := lifecycle.List(ctx, tenantID)
		if err != nil {
			return nil, mapDomainError(err)
		}

		out := &ListDomainsOutput{}
		out.Body.Domains = make([]domainView, 0, len(ds))
		for _, d := range ds {
			out.Body.Domains = append(out.Body.Domains, viewOf(d))
		}
		return out, nil
	})
}

// mapDomainError converts domain sentinel errors into the HTTP statuses
// the dashboard expects. Unknown errors become an opaque 500.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidDomain):
		return huma.Error400BadRequest("invalid domain name; expected a hostname like coach.example.com", err)
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("domain belongs to another tenant")
	case errors.Is(err, domain.ErrAlreadyAdded):
		return huma.Error409Conflict("you have already added this domain")
	case errors.Is(err, domain.ErrVerifyInProgress):
		return huma.Error409Conflict("a verification attempt is already running for this domain")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("domain is already claimed by another tenant")
	default:
		return huma.Error500InternalServerError("domain operation failed", err)
	}
}
