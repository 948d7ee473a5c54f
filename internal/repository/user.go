package repository

import (
	"context"
	"errors"

	"authgate/internal/domain"
)

var (
	// ErrUserNotFound is returned when no record matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the store rejects a duplicate username.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Ping(ctx context.Context) error
}
