package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
)

const (
	principalKeyPrefix  = "principal:"
	generationKeyPrefix = "principal_gen:"
	// generationTTL должен превышать время любого чтения из хранилища.
	generationTTL = 24 * time.Hour
)

// AccountRepository — операции хранилища учётных записей, которые проходят через кэш.
type AccountRepository interface {
	CreatePrincipal(ctx context.Context, p models.Principal) (int64, error)
	GetPrincipal(ctx context.Context, id int64) (*models.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
	ListPrincipals(ctx context.Context, limit, offset int) ([]*models.Principal, error)
	SetSubscriptionActive(ctx context.Context, id int64, active bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdateProfile(ctx context.Context, id int64, name, email string) error
	DeletePrincipal(ctx context.Context, id int64) error
}

// Accounts кэширует чтение учётной записи по ID и сбрасывает запись
// после каждой успешной модификации. Ошибки redis не ломают запрос:
// они логируются, а чтение идёт в хранилище.
//
// Каждая модификация увеличивает поколение записи. Прочитанная из хранилища
// учётная запись попадает в кэш, только если поколение не сменилось за время
// чтения, поэтому удалённая или изменённая запись не возвращается в кэш.
type Accounts struct {
	log   *slog.Logger
	repo  AccountRepository
	cache *Cache
	ttl   time.Duration
}

// NewAccounts оборачивает repo кэшем c.
func NewAccounts(log *slog.Logger, repo AccountRepository, c *Cache, ttl time.Duration) *Accounts {
	return &Accounts{log: log, repo: repo, cache: c, ttl: ttl}
}

func principalKey(id int64) string {
	return principalKeyPrefix + strconv.FormatInt(id, 10)
}

func generationKey(id int64) string {
	return generationKeyPrefix + strconv.FormatInt(id, 10)
}

// cachedPrincipal — запись кэша без хэша пароля.
type cachedPrincipal struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	Email                string      `json:"email"`
	Role                 models.Role `json:"role"`
	IsSubscriptionActive bool        `json:"is_subscription_active"`
	TrialStartedAt       *time.Time  `json:"trial_started_at"`
	TrialEndsAt          *time.Time  `json:"trial_ends_at"`
	IsActive             bool        `json:"is_active"`
	CreatedAt            time.Time   `json:"created_at"`
}

func toCached(p *models.Principal) cachedPrincipal {
	return cachedPrincipal{
		ID:                   p.ID,
		Name:                 p.Name,
		Email:                p.Email,
		Role:                 p.Role,
		IsSubscriptionActive: p.IsSubscriptionActive,
		TrialStartedAt:       p.TrialStartedAt,
		TrialEndsAt:          p.TrialEndsAt,
		IsActive:             p.IsActive,
		CreatedAt:            p.CreatedAt,
	}
}

func (c cachedPrincipal) principal() *models.Principal {
	return &models.Principal{
		ID:                   c.ID,
		Name:                 c.Name,
		Email:                c.Email,
		Role:                 c.Role,
		IsSubscriptionActive: c.IsSubscriptionActive,
		TrialStartedAt:       c.TrialStartedAt,
		TrialEndsAt:          c.TrialEndsAt,
		IsActive:             c.IsActive,
		CreatedAt:            c.CreatedAt,
	}
}

func (a *Accounts) CreatePrincipal(ctx context.Context, p models.Principal) (int64, error) {
	return a.repo.CreatePrincipal(ctx, p)
}

// GetPrincipal читает учётную запись сначала из кэша, затем из хранилища.
// Учётная запись из кэша приходит без хэша пароля.
func (a *Accounts) GetPrincipal(ctx context.Context, id int64) (*models.Principal, error) {
	const op = "cache.Accounts.GetPrincipal"
	log := a.log.With(slog.String("op", op), slog.Int64("user_id", id))

	var cached cachedPrincipal
	found, err := a.cache.Get(ctx, principalKey(id), &cached)
	if err != nil {
		log.Warn("cache read failed", sl.Err(err))
	}
	if found {
		return cached.principal(), nil
	}

	// поколение читается до хранилища
	gen, genErr := a.cache.Generation(ctx, generationKey(id))
	if genErr != nil {
		log.Warn("cache generation read failed", sl.Err(genErr))
	}

	p, err := a.repo.GetPrincipal(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return p, nil
	}

	err = a.cache.SetIfGeneration(ctx, principalKey(id), toCached(p), a.ttl, generationKey(id), gen)
	switch {
	case errors.Is(err, ErrStale):
		log.Debug("principal changed while reading, not cached")
	case err != nil:
		log.Warn("cache write failed", sl.Err(err))
	}
	return p, nil
}

func (a *Accounts) GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	return a.repo.GetPrincipalByEmail(ctx, email)
}

func (a *Accounts) ListPrincipals(ctx context.Context, limit, offset int) ([]*models.Principal, error) {
	return a.repo.ListPrincipals(ctx, limit, offset)
}

func (a *Accounts) SetSubscriptionActive(ctx context.Context, id int64, active bool) error {
	if err := a.repo.SetSubscriptionActive(ctx, id, active); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

func (a *Accounts) SetActive(ctx context.Context, id int64, active bool) error {
	if err := a.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

func (a *Accounts) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	if err := a.repo.UpdateProfile(ctx, id, name, email); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

func (a *Accounts) DeletePrincipal(ctx context.Context, id int64) error {
	if err := a.repo.DeletePrincipal(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

func (a *Accounts) invalidate(ctx context.Context, id int64) {
	if err := a.cache.Bump(ctx, principalKey(id), generationKey(id), generationTTL); err != nil {
		a.log.Warn("cache invalidate failed",
			slog.String("op", "cache.Accounts.invalidate"),
			slog.Int64("user_id", id),
			sl.Err(err))
	}
}
