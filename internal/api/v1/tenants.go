package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/companionlabs/companion/internal/domain"
	"github.com/companionlabs/companion/internal/server/middleware"
)

type tenantView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	IsActive      bool      `json:"is_active"`
	PrimaryDomain *string   `json:"primary_domain,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func tenantViewOf(t *domain.Tenant) tenantView {
	return tenantView{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		IsActive:      t.IsActive,
		PrimaryDomain: t.PrimaryDomain,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

type GetTenantOutput struct {
	Body struct {
		Tenant tenantView `json:"tenant"`
	}
}

type UpdateTenantInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"200" doc:"Display name shown on the tenant's pages"`
	}
}

type DeactivateTenantOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

func RegisterTenantRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-current-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/me",
		Summary:     "Get the authenticated tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, _ *struct{}) (*GetTenantOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		t, err := store.Tenants().GetByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tenant not found")
			}
			return nil, huma.Error500InternalServerError("failed to load tenant", err)
		}

		out := &GetTenantOutput{}
		out.Body.Tenant = tenantViewOf(t)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-current-tenant",
		Method:      http.MethodPatch,
		Path:        "/tenants/me",
		Summary:     "Update the authenticated tenant's profile",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *UpdateTenantInput) (*GetTenantOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		t, err := store.Tenants().GetByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tenant not found")
			}
			return nil, huma.Error500InternalServerError("failed to load tenant", err)
		}

		t.Name = input.Body.Name
		if err := store.Tenants().Update(ctx, t); err != nil {
			return nil, huma.Error500InternalServerError("failed to update tenant", err)
		}

		out := &GetTenantOutput{}
		out.Body.Tenant = tenantViewOf(t)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-current-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/me/deactivate",
		Summary:     "Deactivate the authenticated tenant and stop serving its domains",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, _ *struct{}) (*DeactivateTenantOutput, error) {
		tenantID, ok := middleware.TenantIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		if err := store.Tenants().SetActive(ctx, tenantID, false); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tenant not found")
			}
			return nil, huma.Error500InternalServerError("failed to deactivate tenant", err)
		}

		// Deactivation alone already stops resolution through the serving
		// gate; flipping the domains to disabled keeps their records honest.
		if err := store.Domains().DisableByTenant(ctx, tenantID); err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to disable tenant domains")
		}

		out := &DeactivateTenantOutput{}
		out.Body.Success = true
		return out, nil
	})
}
