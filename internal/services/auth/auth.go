// Package auth содержит регистрацию и вход учётных записей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gymly/gymly/internal/lib/jwt"
	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/storage"
)

var (
	// ErrInvalidCredentials — неизвестный email или неверный пароль.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled — учётная запись заблокирована администратором.
	ErrAccountDisabled = errors.New("account is disabled")
)

// UserRepository описывает контракт для работы с учётными записями в базе данных.
type UserRepository interface {
	// CreatePrincipal сохраняет новую учётную запись и возвращает её ID.
	CreatePrincipal(ctx context.Context, p models.Principal) (int64, error)
	// GetPrincipalByEmail возвращает учётную запись или storage.ErrNotFound.
	GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// EventPublisher уведомляет о новых учётных записях.
type EventPublisher interface {
	AccountRegistered(ctx context.Context, p *models.Principal, at time.Time) error
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult возвращается после успешного входа.
type LoginResult struct {
	Token string             `json:"token"`
	User  models.AccountView `json:"user"`
}

// Service отвечает за регистрацию и вход.
type Service struct {
	log         *slog.Logger
	users       UserRepository
	hasher      PasswordHasher
	tokens      jwt.Maker
	events      EventPublisher
	trialPeriod time.Duration
	now         func() time.Time
	// dummyDigest сравнивается с паролем для неизвестного email,
	// чтобы время ответа не зависело от наличия учётной записи.
	dummyDigest func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEvents включает публикацию события о регистрации.
func WithEvents(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// New создаёт Service. trialPeriod — длительность пробного периода владельца зала.
func New(log *slog.Logger, users UserRepository, hasher PasswordHasher, tokens jwt.Maker, trialPeriod time.Duration, opts ...Option) *Service {
	s := &Service{
		log:         log,
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		trialPeriod: trialPeriod,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyDigest = sync.OnceValue(func() string {
		digest, err := s.hasher.Hash("gymly-dummy-password")
		if err != nil {
			s.log.Error("failed to prepare dummy digest", sl.Err(err))
			return ""
		}
		return digest
	})
	return s
}

// NormalizeEmail приводит email к нижнему регистру без пробелов по краям.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup регистрирует посетителя: роль user, подписка неактивна, пробного периода нет.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.Principal, error) {
	const op = "auth.Signup"
	p := models.Principal{
		Name:     strings.TrimSpace(in.Name),
		Email:    NormalizeEmail(in.Email),
		Role:     models.RoleUser,
		IsActive: true,
	}
	return s.register(ctx, op, p, in.Password)
}

// SignupGymOwner регистрирует владельца зала с пробным периодом,
// который начинается сейчас. Подписка активна до его окончания.
func (s *Service) SignupGymOwner(ctx context.Context, in SignupInput) (*models.Principal, error) {
	const op = "auth.SignupGymOwner"
	now := s.now().UTC()
	ends := now.Add(s.trialPeriod)
	p := models.Principal{
		Name:                 strings.TrimSpace(in.Name),
		Email:                NormalizeEmail(in.Email),
		Role:                 models.RoleGymOwner,
		IsSubscriptionActive: true,
		TrialStartedAt:       &now,
		TrialEndsAt:          &ends,
		IsActive:             true,
	}
	return s.register(ctx, op, p, in.Password)
}

func (s *Service) register(ctx context.Context, op string, p models.Principal, rawPassword string) (*models.Principal, error) {
	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.PasswordHash = hashed

	id, err := s.users.CreatePrincipal(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.ID = id

	s.log.Info("account registered", sl.Op(op), slog.Int64("user_id", id), slog.String("role", p.Role.String()))
	if s.events != nil {
		if err := s.events.AccountRegistered(ctx, &p, s.now()); err != nil {
			s.log.Warn("failed to publish registration event", sl.Op(op), sl.Err(err))
		}
	}
	return &p, nil
}

// Login проверяет пароль и выпускает токен доступа.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"

	p, err := s.users.GetPrincipalByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(rawPassword, s.dummyDigest())
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !s.hasher.Verify(rawPassword, p.PasswordHash) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	token, err := s.tokens.GenerateToken(p.ID, p.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LoginResult{Token: token, User: p.View()}, nil
}
