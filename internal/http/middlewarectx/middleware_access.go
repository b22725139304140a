package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/services/access"
)

// Checker проверяет запрос против политики доступа.
type Checker interface {
	Check(ctx context.Context, req access.Request, p access.Policy) (access.Decision, error)
}

// RequireAccess пропускает запрос дальше только при разрешающем решении шлюза.
// Отказ отдаётся как 403 с причиной, просьба выбрать организацию как 400
// со списком организаций, сбой хранилища как 500.
func RequireAccess(log *slog.Logger, gate Checker, policy access.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireAccess"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			u, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user missing in context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			org := OrganizationFromContext(r.Context())
			d, err := gate.Check(r.Context(), access.Request{User: u, Organization: org}, policy)
			if err != nil {
				orgID := ""
				if org != nil {
					orgID = org.ID
				}
				log.Error("access check failed", sl.Subject(u.UUID, orgID), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("access check unavailable"))
				return
			}

			switch d.Outcome {
			case access.OutcomeAllow:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), Decision, d)))
			case access.OutcomeNeedsOrganization:
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.OrganizationRequired(d.Candidates))
			default:
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.AccessDenied(string(d.Reason), d.Reason.Message()))
			}
		})
	}
}
