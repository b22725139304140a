// Package webhook принимает события биллинга об активации и отмене подписки
// организации или пользователя и переводит их в изменения прав доступа.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/pro-access/internal/http/response"
	"github.com/magabrotheeeer/pro-access/internal/lib/sl"
	"github.com/magabrotheeeer/pro-access/internal/models"
	"github.com/magabrotheeeer/pro-access/internal/storage"
)

const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCanceled  = "subscription.canceled"

	// HeaderSignature base64(HMAC-SHA256(secret, body)).
	HeaderSignature = "X-Api-Signature"

	maxBodySize = 1 << 20
)

// Payload тело события. Указывается ровно одно из OrganizationID и UserUID.
type Payload struct {
	Event          string `json:"event" validate:"required,oneof=subscription.activated subscription.canceled"`
	OrganizationID string `json:"organization_id" validate:"omitempty,uuid"`
	UserUID        string `json:"user_uid" validate:"omitempty,uuid"`
}

// Service применяет изменения прав.
type Service interface {
	ChangePlan(ctx context.Context, organizationID string, plan models.Plan) error
	SetUserPro(ctx context.Context, userUID string, enabled bool) error
}

// Handler принимает подписанные события биллинга.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
	validate      *validator.Validate
}

// New создает Handler. При пустом secret все вызовы отклоняются.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
		validate:      validator.New(),
	}
}

// Sign вычисляет подпись тела.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(h.webhookSecret, body)), []byte(signature))
}

// ServeHTTP godoc
// @Summary Вебхук биллинга
// @Tags billing
// @Accept json
// @Produce json
// @Param X-Api-Signature header string true "HMAC-SHA256 тела в base64"
// @Param request body Payload true "Событие"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}

	if !h.verifySignature(body, r.Header.Get(HeaderSignature)) {
		log.Warn("invalid or missing webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if err := h.validate.Struct(p); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if (p.OrganizationID == "") == (p.UserUID == "") {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("exactly one of organization_id and user_uid is required"))
		return
	}

	active := p.Event == EventSubscriptionActivated
	if p.OrganizationID != "" {
		plan := models.PlanFree
		if active {
			plan = models.PlanPro
		}
		err = h.service.ChangePlan(r.Context(), p.OrganizationID, plan)
	} else {
		err = h.service.SetUserPro(r.Context(), p.UserUID, active)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("subject not found"))
			return
		}
		log.Error("failed to apply billing event", slog.String("event", p.Event), sl.Subject(p.UserUID, p.OrganizationID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not apply event"))
		return
	}

	log.Info("billing event applied", slog.String("event", p.Event), sl.Subject(p.UserUID, p.OrganizationID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"event": p.Event}))
}
