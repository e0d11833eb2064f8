package gymly

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/gymly/gymly/internal/access"
	"github.com/gymly/gymly/internal/http/handlers/auth/login"
	"github.com/gymly/gymly/internal/http/handlers/auth/signup"
	"github.com/gymly/gymly/internal/http/handlers/gyms"
	"github.com/gymly/gymly/internal/http/handlers/health"
	"github.com/gymly/gymly/internal/http/handlers/users/admin"
	"github.com/gymly/gymly/internal/http/handlers/users/profile"
	"github.com/gymly/gymly/internal/http/middlewarectx"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/services/auth"
	gymservice "github.com/gymly/gymly/internal/services/gym"
	"github.com/gymly/gymly/internal/services/users"
)

// Services содержит зависимости обработчиков маршрутов.
type Services struct {
	Auth         *auth.Service
	Users        *users.Service
	Gyms         *gymservice.Service
	Authorizer   *access.Authorizer
	DB           health.Pinger
	LoginLimiter *rate.Limiter
	Metrics      http.Handler
}

// Политики защищённых операций.
var (
	policyAuthenticated = access.Policy{Name: "authenticated"}
	policyGymOwner      = access.Policy{Name: "gym_owner", Role: models.RoleGymOwner}
	policyAdmin         = access.Policy{Name: "admin", Role: models.RoleAdmin}
	policySubscribed    = access.Policy{Name: "gym_owner_subscribed", Role: models.RoleGymOwner, RequireSubscription: true}
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	guard := func(p access.Policy, h middlewarectx.PrincipalHandler) http.Handler {
		return middlewarectx.Guard(logger, s.Authorizer.Pipeline(p), h)
	}

	profileHandler := profile.New(logger, s.Users)
	adminHandler := admin.New(logger, s.Users)
	gymHandler := gyms.New(logger, s.Gyms)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/signup", signup.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/signup/gym-owner", signup.NewGymOwner(logger, s.Auth).ServeHTTP)
		r.With(middlewarectx.RateLimit(logger, s.LoginLimiter)).
			Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/gyms/all", gymHandler.ServeHTTP)
		r.Get("/health", health.New(logger, s.DB).ServeHTTP)

		r.Method(http.MethodGet, "/users/profile", guard(policyAuthenticated, profileHandler.Get))
		r.Method(http.MethodPut, "/users/profile", guard(policyAuthenticated, profileHandler.Update))
		r.Method(http.MethodGet, "/users/{id}/profile", guard(policyGymOwner, profileHandler.ByID))

		r.Method(http.MethodGet, "/users", guard(policyAdmin, adminHandler.List))
		r.Method(http.MethodPost, "/users/{id}/status", guard(policyAdmin, adminHandler.SetStatus))
		r.Method(http.MethodDelete, "/users/{id}", guard(policyAdmin, adminHandler.Remove))

		r.Method(http.MethodPost, "/gyms", guard(policySubscribed, gymHandler.Create))
		r.Method(http.MethodGet, "/gyms", guard(policySubscribed, gymHandler.ListOwned))
	})

	r.Handle("/metrics", s.Metrics)
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
