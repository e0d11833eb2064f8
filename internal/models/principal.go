// Package models содержит доменные модели учётной записи и зала,
// которые используются ядром контроля доступа, сервисами и хранилищем.
package models

import "time"

// Role — роль учётной записи. Роли не образуют иерархию.
type Role string

const (
	// RoleUser — обычный посетитель зала.
	RoleUser Role = "user"
	// RoleGymOwner — владелец зала, доступ к платным функциям через подписку.
	RoleGymOwner Role = "gym_owner"
	// RoleAdmin — администратор учётных записей.
	RoleAdmin Role = "admin"
)

// Valid сообщает, является ли роль одним из трёх допустимых значений.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGymOwner, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Principal представляет аутентифицированную учётную запись.
type Principal struct {
	ID                   int64      `json:"id"`                     // Идентификатор учётной записи
	Name                 string     `json:"name"`                   // Отображаемое имя
	Email                string     `json:"email"`                  // Электронная почта (уникальная, в нижнем регистре)
	Role                 Role       `json:"role"`                   // Текущая роль
	PasswordHash         string     `json:"-"`                      // Хэш пароля, не сериализуется
	IsSubscriptionActive bool       `json:"is_subscription_active"` // Флаг активной подписки
	TrialStartedAt       *time.Time `json:"trial_started_at"`       // Начало пробного периода
	TrialEndsAt          *time.Time `json:"trial_ends_at"`          // Окончание пробного периода
	IsActive             bool       `json:"is_active"`              // Учётная запись не заблокирована администратором
	CreatedAt            time.Time  `json:"created_at"`
}

// HasTrial сообщает, был ли у учётной записи пробный период.
func (p *Principal) HasTrial() bool {
	return p.TrialStartedAt != nil && p.TrialEndsAt != nil
}

// TrialElapsed сообщает, истёк ли пробный период к моменту now.
func (p *Principal) TrialElapsed(now time.Time) bool {
	return p.TrialEndsAt != nil && now.After(*p.TrialEndsAt)
}

// AccountView — публичное представление учётной записи без хэша пароля.
type AccountView struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Role                 Role       `json:"role"`
	IsSubscriptionActive bool       `json:"is_subscription_active"`
	TrialStartedAt       *time.Time `json:"trial_started_at"`
	TrialEndsAt          *time.Time `json:"trial_ends_at"`
	IsActive             bool       `json:"is_active"`
}

// View возвращает публичное представление учётной записи.
func (p *Principal) View() AccountView {
	return AccountView{
		ID:                   p.ID,
		Name:                 p.Name,
		Email:                p.Email,
		Role:                 p.Role,
		IsSubscriptionActive: p.IsSubscriptionActive,
		TrialStartedAt:       p.TrialStartedAt,
		TrialEndsAt:          p.TrialEndsAt,
		IsActive:             p.IsActive,
	}
}
