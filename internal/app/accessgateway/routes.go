// Package accessgateway собирает HTTP-шлюз контроля доступа к Pro-функциям.
package accessgateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/pro-access/internal/http/handlers/access/procheck"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/access/role"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/organization/accountantpro"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/organization/memberfeature"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/organization/memberrole"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/organization/plan"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/organization/trial"
	"github.com/magabrotheeeer/pro-access/internal/http/handlers/reports/advanced"
	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
)

// Store чтение пользователей, организаций и членств для middleware и обработчиков.
type Store interface {
	middlewarectx.UserProvider
	middlewarectx.OrganizationProvider
	CountMembers(ctx context.Context, organizationID string) (int, error)
}

// Entitlements операции изменения прав.
type Entitlements interface {
	ChangePlan(ctx context.Context, organizationID string, plan models.Plan) error
	SetAccountantPro(ctx context.Context, organizationID, userUID string, enabled bool) error
	ChangeRole(ctx context.Context, organizationID, userUID string, role models.Role) error
	GrantTrial(ctx context.Context, userUID string, until time.Time) error
	SetUserPro(ctx context.Context, userUID string, enabled bool) error
	GrantFeature(ctx context.Context, userUID string, feature models.Feature) error
	RevokeFeature(ctx context.Context, userUID string, feature models.Feature) error
}

// Deps зависимости маршрутов.
type Deps struct {
	Tokens        middlewarectx.TokenParser
	Store         Store
	Gate          middlewarectx.Checker
	Pro           procheck.ProChecker
	Roles         role.RoleSource
	Entitlements  Entitlements
	HealthChecks  map[string]health.Check
	Metrics       http.Handler
	WebhookSecret string
	RateLimit     float64
	RateBurst     int
}

// Политики защищённых операций.
var (
	policyRole     = access.Policy{}
	policyReports  = access.Policy{RequirePro: true, AllowAccountantAlways: true}
	policyOwner    = access.Policy{RequiredRoles: []models.Role{models.RoleOwner}}
	policyManagers = access.Policy{RequiredRoles: []models.Role{models.RoleOwner, models.RoleAdmin}}
	policyTrial    = access.Policy{RequiredRoles: []models.Role{models.RoleOwner, models.RoleAdmin}, SponsorOnly: true}
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	gate := func(p access.Policy) func(http.Handler) http.Handler {
		return middlewarectx.RequireAccess(logger, d.Gate, p)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))
			r.Use(middlewarectx.UserMiddleware(logger, d.Store))
			r.Use(middlewarectx.OrganizationMiddleware(logger, d.Store))
			r.Use(middlewarectx.RateLimitMiddleware(logger, d.RateLimit, d.RateBurst))

			r.Get("/access/pro", procheck.New(logger, d.Pro).ServeHTTP)
			r.With(gate(policyRole)).Get("/access/role", role.New(logger, d.Roles).ServeHTTP)
			r.With(gate(policyReports)).Get("/reports/advanced", advanced.New(logger, d.Store).ServeHTTP)

			r.Route("/organization", func(r chi.Router) {
				r.With(gate(policyOwner)).Put("/plan", plan.New(logger, d.Entitlements).ServeHTTP)
				r.With(gate(policyManagers)).Put("/members/{userID}/accountant-pro", accountantpro.New(logger, d.Entitlements).ServeHTTP)
				r.With(gate(policyOwner)).Put("/members/{userID}/role", memberrole.New(logger, d.Entitlements).ServeHTTP)
				r.With(gate(policyTrial)).Post("/members/{userID}/trial", trial.New(logger, d.Entitlements, d.Store).ServeHTTP)

				features := memberfeature.New(logger, d.Entitlements, d.Store)
				r.With(gate(policyManagers)).Put("/members/{userID}/features/{feature}", features.ServeHTTP)
				r.With(gate(policyManagers)).Delete("/members/{userID}/features/{feature}", features.ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/billing/webhook", webhook.New(logger, d.Entitlements, d.WebhookSecret).ServeHTTP)
	})

	r.Get("/health", health.New(logger, d.HealthChecks).ServeHTTP)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
