// Package admin реализует HTTP-обработчики администрирования учётных записей.
package admin

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

	"github.com/gymly/gymly/internal/http/response"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/storage"
)

type StatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// Service описывает операции администратора.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]models.AccountView, error)
	SetStatus(ctx context.Context, id int64, active bool) error
	Remove(ctx context.Context, id int64) error
}

// Handler обрабатывает запросы администратора.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List godoc
// @Summary Список учётных записей
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.AccountView}
// @Failure 403 {object} response.ErrorResponse
// @Router /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ *models.Principal) {
	log := h.logger(r, "handlers.users.admin.list")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// SetStatus godoc
// @Summary Блокировка или разблокировка учётной записи
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID учётной записи"
// @Param request body StatusRequest true "Новое состояние"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/status [post]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request, admin *models.Principal) {
	log := h.logger(r, "handlers.users.admin.set_status")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("field is_active is a required field"))
		return
	}

	if err := h.service.SetStatus(r.Context(), id, *req.IsActive); err != nil {
		h.writeError(w, r, log, err)
		return
	}
	log.Info("status changed", slog.Int64("admin_id", admin.ID), slog.Int64("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"id": id, "is_active": *req.IsActive}))
}

// Remove godoc
// @Summary Удаление учётной записи
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID учётной записи"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request, admin *models.Principal) {
	log := h.logger(r, "handlers.users.admin.remove")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.writeError(w, r, log, err)
		return
	}
	log.Info("user removed", slog.Int64("admin_id", admin.ID), slog.Int64("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"deleted_id": id}))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	log.Error("admin operation failed", sl.Err(err))
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.Error("internal service error"))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return 0, false
	}
	return id, true
}
