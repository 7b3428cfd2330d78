package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a coach-side account. Every user belongs to exactly one tenant.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string `json:"-"`
	Name         string
	Role         string // "owner" or "member"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
