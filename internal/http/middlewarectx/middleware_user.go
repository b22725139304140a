package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// UserProvider загружает пользователя по UID.
type UserProvider interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// UserMiddleware загружает запись пользователя, UID которого положил JWTMiddleware.
// Пользователь читается на каждый запрос, чтобы Pro-статус и пробный период были актуальны.
func UserMiddleware(log *slog.Logger, users UserProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UserMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userUID, ok := UserUIDFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			u, err := users.GetUser(r.Context(), userUID)
			if errors.Is(err, storage.ErrNotFound) {
				log.Warn("user from token not found", sl.Subject(userUID, ""))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user not found"))
				return
			}
			if err != nil {
				log.Error("failed to load user", sl.Subject(userUID, ""), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
