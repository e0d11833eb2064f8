// Package profile реализует HTTP-обработчики профиля учётной записи.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/gymly/gymly/internal/http/response"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/services/users"
	"github.com/gymly/gymly/internal/storage"
)

// UpdateRequest — изменяемые поля профиля. Отсутствующее поле не меняется.
type UpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// Service описывает операции с профилем.
type Service interface {
	Profile(ctx context.Context, id int64) (*models.AccountView, error)
	UpdateProfile(ctx context.Context, current *models.Principal, upd users.ProfileUpdate) (*models.AccountView, error)
}

// Handler обрабатывает запросы профиля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Get godoc
// @Summary Профиль текущей учётной записи
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.AccountView}
// @Failure 401 {object} response.ErrorResponse
// @Router /users/profile [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, p *models.Principal) {
	render.JSON(w, r, response.OKWithData(p.View()))
}

// Update godoc
// @Summary Изменение профиля текущей учётной записи
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateRequest true "Новые имя и/или email"
// @Success 200 {object} response.Response{data=models.AccountView}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse
// @Router /users/profile [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, p *models.Principal) {
	log := h.logger(r, "handlers.users.profile.update")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	view, err := h.service.UpdateProfile(r.Context(), p, users.ProfileUpdate{Name: req.Name, Email: req.Email})
	switch {
	case errors.Is(err, users.ErrEmptyUpdate):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("nothing to update"))
		return
	case errors.Is(err, storage.ErrEmailTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("email already in use"))
		return
	case err != nil:
		log.Error("failed to update profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("profile updated", slog.Int64("user_id", p.ID))
	render.JSON(w, r, response.OKWithData(view))
}

// ByID godoc
// @Summary Профиль учётной записи по ID
// @Description Доступно владельцам залов.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID учётной записи"
// @Success 200 {object} response.Response{data=models.AccountView}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/profile [get]
func (h *Handler) ByID(w http.ResponseWriter, r *http.Request, _ *models.Principal) {
	log := h.logger(r, "handlers.users.profile.by_id")

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	view, err := h.service.Profile(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to get profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	render.JSON(w, r, response.OKWithData(view))
}
