// Package gymly собирает HTTP-приложение: хранилище, кэш, события,
// ядро контроля доступа, сервисы и маршруты.
package gymly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/gymly/gymly/internal/access"
	"github.com/gymly/gymly/internal/cache"
	"github.com/gymly/gymly/internal/config"
	"github.com/gymly/gymly/internal/events"
	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/lib/password"
	"github.com/gymly/gymly/internal/lib/rabbitmq"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/migrations"
	"github.com/gymly/gymly/internal/services/auth"
	gymservice "github.com/gymly/gymly/internal/services/gym"
	"github.com/gymly/gymly/internal/services/users"
	"github.com/gymly/gymly/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App владеет HTTP-сервером и ресурсами, которые закрываются при остановке.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []io.Closer
}

// New подключает зависимости и собирает HTTP-сервер.
// Пустые адреса redis и RabbitMQ отключают кэш и публикацию событий.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "gymly.New"
	a := &App{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.closers = append(a.closers, db)
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var accounts cache.AccountRepository = db
	if cfg.Redis.AddressRedis != "" {
		redisCache, err := cache.InitServer(ctx, cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, redisCache)
		accounts = cache.NewAccounts(logger, db, redisCache, cfg.Redis.TTL)
		logger.Info("principal cache enabled", slog.String("address", cfg.Redis.AddressRedis))
	}

	var publisher *events.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, conn)
		ch, err := rabbitmq.SetupExchange(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = events.NewPublisher(ch, cfg.RabbitMQ.Exchange)
		go watchConnection(logger, conn)
		logger.Info("account events enabled", slog.String("exchange", cfg.RabbitMQ.Exchange))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services := buildServices(logger, cfg, accounts, db, publisher, access.NewMetrics(reg), time.Now)
	services.DB = db.DB
	services.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// buildServices собирает ядро контроля доступа и сервисы поверх хранилищ.
func buildServices(
	logger *slog.Logger,
	cfg *config.Config,
	accounts cache.AccountRepository,
	gyms gymservice.Repository,
	publisher *events.Publisher,
	metrics *access.Metrics,
	now func() time.Time,
) Services {
	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	var trialEvents access.EventPublisher
	authOpts := []auth.Option{auth.WithClock(now)}
	if publisher != nil {
		trialEvents = publisher
		authOpts = append(authOpts, auth.WithEvents(publisher))
	}

	resolver := access.NewResolver(logger, maker, accounts)
	subscriptions := access.NewSubscriptionGate(logger, accounts, trialEvents, now)

	return Services{
		Auth:         auth.New(logger, accounts, password.NewHasher(cfg.PasswordCost), maker, cfg.Subscription.TrialPeriod, authOpts...),
		Users:        users.New(logger, accounts),
		Gyms:         gymservice.New(logger, gyms),
		Authorizer:   access.NewAuthorizer(resolver, subscriptions, metrics),
		LoginLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.LoginRPS), cfg.RateLimit.LoginBurst),
	}
}

func watchConnection(logger *slog.Logger, conn *amqp.Connection) {
	if err := <-conn.NotifyClose(make(chan *amqp.Error, 1)); err != nil {
		logger.Error("rabbitmq connection closed", sl.Err(err))
	}
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
