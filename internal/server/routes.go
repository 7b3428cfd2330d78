package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/companionlabs/companion/internal/api/v1"
	"github.com/companionlabs/companion/internal/auth"
	"github.com/companionlabs/companion/internal/domains"
	"github.com/companionlabs/companion/internal/store/postgres"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, lifecycle *domains.Service) {
	v1.RegisterTenantRoutes(api, store)
	v1.RegisterDomainRoutes(api, lifecycle)
}
