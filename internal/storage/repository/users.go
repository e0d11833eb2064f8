package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/storage"
)

const principalColumns = `id, name, email, password_hash, role, is_subscription_active,
	trial_started_at, trial_ends_at, is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row scanner) (*models.Principal, error) {
	p := &models.Principal{}
	var role string
	var trialStartedAt, trialEndsAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &role, &p.IsSubscriptionActive,
		&trialStartedAt, &trialEndsAt, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = models.Role(role)
	if trialStartedAt.Valid {
		t := trialStartedAt.Time.UTC()
		p.TrialStartedAt = &t
	}
	if trialEndsAt.Valid {
		t := trialEndsAt.Time.UTC()
		p.TrialEndsAt = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// CreatePrincipal сохраняет новую учётную запись и возвращает её ID.
func (s *Storage) CreatePrincipal(ctx context.Context, p models.Principal) (int64, error) {
	const op = "storage.CreatePrincipal"
	if err := checkContext(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO users (name, email, password_hash, role, is_subscription_active,
			      trial_started_at, trial_ends_at, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id;`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query,
		p.Name, p.Email, p.PasswordHash, string(p.Role), p.IsSubscriptionActive,
		p.TrialStartedAt, p.TrialEndsAt, p.IsActive).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetPrincipal возвращает учётную запись по ID.
func (s *Storage) GetPrincipal(ctx context.Context, id int64) (*models.Principal, error) {
	const op = "storage.GetPrincipal"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + principalColumns + ` FROM users WHERE id = $1`
	p, err := scanPrincipal(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPrincipalByEmail возвращает учётную запись по email.
func (s *Storage) GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	const op = "storage.GetPrincipalByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + principalColumns + ` FROM users WHERE email = $1`
	p, err := scanPrincipal(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPrincipals возвращает учётные записи по возрастанию ID.
func (s *Storage) ListPrincipals(ctx context.Context, limit, offset int) ([]*models.Principal, error) {
	const op = "storage.ListPrincipals"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + principalColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SetSubscriptionActive меняет только флаг is_subscription_active.
func (s *Storage) SetSubscriptionActive(ctx context.Context, id int64, active bool) error {
	const op = "storage.SetSubscriptionActive"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET is_subscription_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(res, op)
}

// SetActive блокирует или разблокирует учётную запись.
func (s *Storage) SetActive(ctx context.Context, id int64, active bool) error {
	const op = "storage.SetActive"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(res, op)
}

// UpdateProfile меняет имя и email учётной записи.
func (s *Storage) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	const op = "storage.UpdateProfile"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET name = $1, email = $2 WHERE id = $3`, name, email, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(res, op)
}

// DeletePrincipal удаляет учётную запись вместе с её залами.
func (s *Storage) DeletePrincipal(ctx context.Context, id int64) error {
	const op = "storage.DeletePrincipal"
	if err := checkContext(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(res, op)
}
