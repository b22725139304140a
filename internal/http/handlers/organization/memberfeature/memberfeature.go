// Package memberfeature реализует выдачу и отзыв отдельной Pro-функции участнику
// текущей организации: PUT выдаёт функцию, DELETE отзывает.
package memberfeature

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/pro-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/services/entitlement"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

// Service меняет личный список функций пользователя.
type Service interface {
	GrantFeature(ctx context.Context, userUID string, feature models.Feature) error
	RevokeFeature(ctx context.Context, userUID string, feature models.Feature) error
}

// Members проверяет, что получатель состоит в организации.
type Members interface {
	GetMembership(ctx context.Context, userUID, organizationID string) (*models.Membership, error)
}

// Handler обработчик выдачи и отзыва функции.
type Handler struct {
	log      *slog.Logger
	service  Service
	members  Members
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service, members Members) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		members:  members,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдача или отзыв Pro-функции участнику
// @Tags organization
// @Produce json
// @Param userID path string true "UID участника"
// @Param feature path string true "Функция"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.AccessDeniedResponse
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /organization/members/{userID}/features/{feature} [put]
// @Router /organization/members/{userID}/features/{feature} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.organization.memberfeature"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	if err := h.validate.Var(userID, "required,uuid"); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}
	feature := chi.URLParam(r, "feature")
	if err := h.validate.Var(feature, "required,max=64"); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid feature"))
		return
	}

	org := middlewarectx.OrganizationFromContext(r.Context())
	if org == nil {
		log.Error("organization missing in context")
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	if _, err := h.members.GetMembership(r.Context(), userID, org.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership not found"))
			return
		}
		log.Error("failed to load membership", sl.Subject(userID, org.ID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	granted := r.Method != http.MethodDelete
	var err error
	if granted {
		err = h.service.GrantFeature(r.Context(), userID, models.Feature(feature))
	} else {
		err = h.service.RevokeFeature(r.Context(), userID, models.Feature(feature))
	}
	if err != nil {
		switch {
		case errors.Is(err, entitlement.ErrInvalidArgument):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid feature"))
		case errors.Is(err, storage.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to change user feature", sl.Subject(userID, org.ID), slog.String("feature", feature), sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not change feature"))
		}
		return
	}

	log.Info("user feature changed", sl.Subject(userID, org.ID), slog.String("feature", feature), slog.Bool("granted", granted))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_uid": userID,
		"feature":  feature,
		"granted":  granted,
	}))
}
