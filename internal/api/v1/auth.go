package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/companionlabs/companion/internal/auth"
	"github.com/companionlabs/companion/internal/domain"
)

type RegisterInput struct {
	Body struct {
		Name     string `json:"name" minLength:"1" maxLength:"200" doc:"Tenant display name"`
		Slug     string `json:"slug" minLength:"2" maxLength:"63" pattern:"^[a-z0-9][a-z0-9-]*$" doc:"URL-safe tenant identifier"`
		Email    string `json:"email" format:"email"`
		Password string `json:"password" minLength:"8" maxLength:"128"`
	}
}

type RegisterOutput struct {
	Body struct {
		TenantID uuid.UUID `json:"tenant_id"`
		UserID   uuid.UUID `json:"user_id"`
		Slug     string    `json:"slug"`
	}
}

type LoginInput struct {
	Body struct {
		Email    string `json:"email" format:"email"`
		Password string `json:"password" minLength:"1"`
	}
}

type LoginOutput struct {
	Body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1"`
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"`
	}
}

func RegisterAuthRoutes(api huma.API, svc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Summary:     "Create a tenant and its owner account",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
		tenant, user, err := svc.Register(ctx, input.Body.Name, input.Body.Slug, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrUserAlreadyExists) || errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("slug or email already in use")
			}
			return nil, huma.Error500InternalServerError("registration failed", err)
		}

		out := &RegisterOutput{}
		out.Body.TenantID = tenant.ID
		out.Body.UserID = user.ID
		out.Body.Slug = tenant.Slug
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for a token pair",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		access, refresh, err := svc.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		out := &LoginOutput{}
		out.Body.AccessToken = access
		out.Body.RefreshToken = refresh
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Exchange a refresh token for a new access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		access, err := svc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = access
		return out, nil
	})
}
