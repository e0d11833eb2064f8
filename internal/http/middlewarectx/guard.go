// Package middlewarectx содержит HTTP middleware сервиса: проверку доступа
// к защищённым операциям и ограничение частоты запросов.
//
// Guard выполняет цепочку проверок access.Pipeline и передаёт учётную
// запись обработчику явным параметром. В контекст запроса она не кладётся.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/gymly/gymly/internal/access"
	"github.com/gymly/gymly/internal/http/response"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
)

// Evaluator выносит решение о доступе по заголовку Authorization.
type Evaluator interface {
	Evaluate(ctx context.Context, authorizationHeader string) access.Decision
	Policy() access.Policy
}

// PrincipalHandler получает учётную запись, прошедшую проверку.
type PrincipalHandler func(w http.ResponseWriter, r *http.Request, p *models.Principal)

// Guard возвращает http.Handler, который вызывает next только при разрешающем решении.
// Отказ превращается в HTTP-статус и публичное сообщение вида отказа.
func Guard(log *slog.Logger, pipeline Evaluator, next PrincipalHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewarectx.Guard"

		d := pipeline.Evaluate(r.Context(), r.Header.Get("Authorization"))
		if d.Allowed {
			next(w, r, d.Principal)
			return
		}

		// единственная запись об отказе
		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("policy", pipeline.Policy().Name),
			slog.String("failure", d.Failure.String()),
		)
		if d.Principal != nil {
			log = log.With(slog.Int64("user_id", d.Principal.ID))
		}
		if d.Failure == access.Internal {
			log.Error("access check failed", sl.Err(d.Err))
		} else {
			log.Info("access denied", sl.Err(d.Err))
		}

		render.Status(r, d.Failure.HTTPStatus())
		render.JSON(w, r, response.Error(d.Failure.PublicMessage()))
	})
}
