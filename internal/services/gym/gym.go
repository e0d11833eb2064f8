// Package gym содержит операции с залами.
package gym

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gymly/gymly/internal/lib/sl"
	"github.com/gymly/gymly/internal/models"
)

// Размер страницы списка: по умолчанию и максимальный.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Repository описывает контракт хранилища залов.
type Repository interface {
	CreateGym(ctx context.Context, g models.Gym) (int64, error)
	// ListGyms возвращает залы владельца ownerID; 0 — все залы.
	ListGyms(ctx context.Context, ownerID int64, limit, offset int) ([]models.Gym, error)
}

// Service реализует операции над залами.
type Service struct {
	log  *slog.Logger
	repo Repository
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Create регистрирует зал владельца owner.
func (s *Service) Create(ctx context.Context, owner *models.Principal, name, location string) (*models.Gym, error) {
	const op = "gym.Create"
	g := models.Gym{
		Name:     strings.TrimSpace(name),
		Location: strings.TrimSpace(location),
		OwnerID:  owner.ID,
	}
	id, err := s.repo.CreateGym(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.ID = id
	s.log.Info("gym created", sl.Op(op), slog.Int64("gym_id", id), slog.Int64("owner_id", owner.ID))
	return &g, nil
}

// ListOwned возвращает залы владельца owner.
func (s *Service) ListOwned(ctx context.Context, owner *models.Principal, limit, offset int) ([]models.Gym, error) {
	const op = "gym.ListOwned"
	gyms, err := s.repo.ListGyms(ctx, owner.ID, pageSize(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return gyms, nil
}

// ListAll возвращает все залы.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]models.Gym, error) {
	const op = "gym.ListAll"
	gyms, err := s.repo.ListGyms(ctx, 0, pageSize(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return gyms, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
