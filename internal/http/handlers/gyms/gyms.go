// Package gyms реализует HTTP-обработчики залов.
package gyms

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/gymly/gymly/internal/http/response"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
)

type CreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Location string `json:"location" validate:"required,max=200"`
}

// Service описывает операции с залами.
type Service interface {
	Create(ctx context.Context, owner *models.Principal, name, location string) (*models.Gym, error)
	ListOwned(ctx context.Context, owner *models.Principal, limit, offset int) ([]models.Gym, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Gym, error)
}

// Handler обрабатывает запросы к залам.
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

func page(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

// Create godoc
// @Summary Создание зала
// @Description Доступно владельцу зала с активной подпиской или пробным периодом.
// @Tags Gyms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Данные зала"
// @Success 201 {object} response.Response{data=models.Gym}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Подписка неактивна"
// @Failure 422 {object} response.ErrorResponse
// @Router /gyms [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, owner *models.Principal) {
	log := h.logger(r, "handlers.gyms.create")

	var req CreateRequest
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

	g, err := h.service.Create(r.Context(), owner, req.Name, req.Location)
	if err != nil {
		log.Error("failed to create gym", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(g))
}

// ListOwned godoc
// @Summary Залы текущего владельца
// @Tags Gyms
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.Gym}
// @Failure 403 {object} response.ErrorResponse "Подписка неактивна"
// @Router /gyms [get]
func (h *Handler) ListOwned(w http.ResponseWriter, r *http.Request, owner *models.Principal) {
	log := h.logger(r, "handlers.gyms.list_owned")

	limit, offset := page(r)
	list, err := h.service.ListOwned(r.Context(), owner, limit, offset)
	if err != nil {
		log.Error("failed to list gyms", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// ServeHTTP godoc
// @Summary Все залы
// @Tags Gyms
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.Gym}
// @Router /gyms/all [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.gyms.list_all")

	limit, offset := page(r)
	list, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list gyms", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}
