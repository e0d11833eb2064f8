// Package signup реализует HTTP-обработчики регистрации посетителя и владельца зала.
package signup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/gymly/gymly/internal/http/response"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/services/auth"
	"github.com/gymly/gymly/internal/storage"
)

type Request struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Service описывает регистрацию учётных записей.
type Service interface {
	Signup(ctx context.Context, in auth.SignupInput) (*models.Principal, error)
	SignupGymOwner(ctx context.Context, in auth.SignupInput) (*models.Principal, error)
}

type signupFunc func(ctx context.Context, in auth.SignupInput) (*models.Principal, error)

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log      *slog.Logger
	op       string
	signup   signupFunc
	validate *validator.Validate
}

// New создаёт обработчик регистрации посетителя.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		op:       "handlers.auth.signup",
		signup:   svc.Signup,
		validate: validator.New(),
	}
}

// NewGymOwner создаёт обработчик регистрации владельца зала.
func NewGymOwner(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		op:       "handlers.auth.signup_gym_owner",
		signup:   svc.SignupGymOwner,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация
// @Description Создаёт учётную запись. /auth/signup — посетитель без пробного периода,
// @Description /auth/signup/gym-owner — владелец зала с пробным периодом.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные учётной записи"
// @Success 201 {object} response.Response{data=models.AccountView}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/signup [post]
// @Router /auth/signup/gym-owner [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		slog.String("op", h.op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Info("validation failed", sl.Err(err))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		log.Error("validator failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	p, err := h.signup(r.Context(), auth.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			log.Info("email already exists")
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("email already exists"))
			return
		}
		log.Error("failed to register account", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("account registered", slog.Int64("user_id", p.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(p.View()))
}
