package repository

import "github.com/rumbleroad/pokerrun-api/internal/domain/entity"

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(u *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	Update(u *entity.User) error
	UpdatePassword(id, hash string) error
	TouchLastLogin(id string) error
	SetVerified(id string) error
	IsVerified(id string) (bool, error)
	// IncrementEventsParticipated bumps the advisory participation counter.
	IncrementEventsParticipated(id string) error
}
