package repository

import (
	"context"
	"fmt"

	"github.com/gymly/gymly/internal/models"
)

// CreateGym сохраняет зал и возвращает его ID.
func (s *Storage) CreateGym(ctx context.Context, g models.Gym) (int64, error) {
	const op = "storage.CreateGym"
	if err := checkContext(ctx, op); err != nil {
		return 0, err
	}

	var id int64
	query := `INSERT INTO gyms (name, location, owner_id) VALUES ($1, $2, $3) RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query, g.Name, g.Location, g.OwnerID).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListGyms возвращает залы. ownerID == 0 — все залы.
func (s *Storage) ListGyms(ctx context.Context, ownerID int64, limit, offset int) ([]models.Gym, error) {
	const op = "storage.ListGyms"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, name, location, owner_id, created_at
			  FROM gyms
			  WHERE $1::BIGINT = 0 OR owner_id = $1::BIGINT
			  ORDER BY id
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Gym, 0)
	for rows.Next() {
		var g models.Gym
		if err = rows.Scan(&g.ID, &g.Name, &g.Location, &g.OwnerID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		g.CreatedAt = g.CreatedAt.UTC()
		result = append(result, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
