package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	HouseholdID  uuid.NullUUID `json:"household_id"`
	PasswordHash string        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
}

// InHousehold reports whether the user has joined a household yet.
func (u *User) InHousehold() bool {
	return u.HouseholdID.Valid
}

type Repository interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]User, error)
	AssignHousehold(ctx context.Context, userID, householdID uuid.UUID) error
	VerifyPassword(hashedPassword, password string) error
}
