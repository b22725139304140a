package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// OrganizationProvider читает организации и членства.
type OrganizationProvider interface {
	GetOrganization(ctx context.Context, organizationID string) (*models.Organization, error)
	GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error)
	ListUserOrganizations(ctx context.Context, userUID string) ([]models.OrganizationRef, error)
}

// OrganizationMiddleware определяет текущую организацию запроса.
//
// Если задан заголовок X-Organization-ID, организация должна существовать (иначе 404),
// а пользователь должен в ней состоять (иначе 403). Без заголовка организация
// выбирается автоматически, только если пользователь состоит ровно в одной.
// В остальных случаях организация в контексте не появляется и решение принимает шлюз.
func OrganizationMiddleware(log *slog.Logger, orgs OrganizationProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.OrganizationMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			ctx := r.Context()

			u, ok := UserFromContext(ctx)
			if !ok {
				log.Error("user missing in context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			header := r.Header.Get(HeaderOrganizationID)
			if header == "" {
				refs, err := orgs.ListUserOrganizations(ctx, u.UUID)
				if err != nil {
					log.Error("failed to list organizations", sl.Subject(u.UUID, ""), sl.Err(err))
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal service error"))
					return
				}
				if len(refs) != 1 {
					next.ServeHTTP(w, r)
					return
				}
				header = refs[0].ID
			}

			id, err := uuid.Parse(header)
			if err != nil {
				log.Warn("invalid organization id", slog.String("value", header))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid organization id"))
				return
			}

			org, err := orgs.GetOrganization(ctx, id.String())
			if errors.Is(err, storage.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("organization not found"))
				return
			}
			if err != nil {
				log.Error("failed to load organization", sl.Subject(u.UUID, id.String()), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if _, err := orgs.GetMembership(ctx, u.UUID, org.ID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					log.Warn("user is not a member of organization", sl.Subject(u.UUID, org.ID))
					render.Status(r, http.StatusForbidden)
					render.JSON(w, r, response.Error("not a member of organization"))
					return
				}
				log.Error("failed to load membership", sl.Subject(u.UUID, org.ID), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOrganization(ctx, org)))
		})
	}
}
