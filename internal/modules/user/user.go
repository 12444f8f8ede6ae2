package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUserExists is returned when the username is already taken.
var ErrUserExists = errors.New("this user already created")

// ErrWeakPassword is returned when the password equals the username.
var ErrWeakPassword = errors.New("your password and username shouldn't be the same")

// User represents an API user.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository defines the interface for user storage.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}
