// Package users содержит операции с профилем и администрирование учётных записей.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
)

const (
	// DefaultPageSize — размер страницы списка по умолчанию.
	DefaultPageSize = 20
	// MaxPageSize ограничивает limit сверху.
	MaxPageSize = 100
)

// ErrEmptyUpdate — в запросе на изменение профиля нет ни одного поля.
var ErrEmptyUpdate = errors.New("nothing to update")

// Repository описывает контракт хранилища учётных записей.
type Repository interface {
	GetPrincipal(ctx context.Context, id int64) (*models.Principal, error)
	ListPrincipals(ctx context.Context, limit, offset int) ([]*models.Principal, error)
	SetActive(ctx context.Context, id int64, active bool) error
	UpdateProfile(ctx context.Context, id int64, name, email string) error
	DeletePrincipal(ctx context.Context, id int64) error
}

// ProfileUpdate — изменяемые поля профиля. nil означает "не менять".
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// Service реализует операции над учётными записями.
type Service struct {
	log  *slog.Logger
	repo Repository
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Profile возвращает профиль учётной записи по ID.
func (s *Service) Profile(ctx context.Context, id int64) (*models.AccountView, error) {
	const op = "users.Profile"
	p, err := s.repo.GetPrincipal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v := p.View()
	return &v, nil
}

// UpdateProfile меняет имя и/или email вызывающей учётной записи.
func (s *Service) UpdateProfile(ctx context.Context, current *models.Principal, upd ProfileUpdate) (*models.AccountView, error) {
	const op = "users.UpdateProfile"
	if upd.Name == nil && upd.Email == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyUpdate)
	}

	updated := *current
	if upd.Name != nil {
		updated.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		updated.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}

	if err := s.repo.UpdateProfile(ctx, current.ID, updated.Name, updated.Email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v := updated.View()
	return &v, nil
}

// List возвращает страницу учётных записей.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.AccountView, error) {
	const op = "users.List"
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	if offset < 0 {
		offset = 0
	}

	list, err := s.repo.ListPrincipals(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	views := make([]models.AccountView, 0, len(list))
	for _, p := range list {
		views = append(views, p.View())
	}
	return views, nil
}

// SetStatus блокирует или разблокирует учётную запись.
func (s *Service) SetStatus(ctx context.Context, id int64, active bool) error {
	const op = "users.SetStatus"
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account status changed", sl.Op(op), slog.Int64("user_id", id), slog.Bool("is_active", active))
	return nil
}

// Remove удаляет учётную запись.
func (s *Service) Remove(ctx context.Context, id int64) error {
	const op = "users.Remove"
	if err := s.repo.DeletePrincipal(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account removed", sl.Op(op), slog.Int64("user_id", id))
	return nil
}
