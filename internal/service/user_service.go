package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"authgate/internal/domain"
	"authgate/internal/repository"
)

// PasswordCost is the bcrypt work factor applied at registration.
const PasswordCost = 10

var (
	// ErrValidation indicates the request could not be processed as given.
	ErrValidation = errors.New("validation error")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// StorageError wraps any failure of the credential store, including timeouts.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TokenIssuer mints session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type userService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	logger logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(users repository.UserRepository, tokens TokenIssuer, logger logrus.FieldLogger) UserService {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &userService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Register stores a new user. Usernames and passwords are taken verbatim; empty values are allowed.
func (s *userService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	log := s.logger.WithField("username", username)

	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		log.Info("registration rejected: username taken")
		return nil, ErrUserAlreadyExists
	case err != nil && !errors.Is(err, repository.ErrUserNotFound):
		log.WithError(err).Error("registration lookup failed")
		return nil, &StorageError{Op: "lookup user", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password must not exceed 72 bytes", ErrValidation)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			log.Info("registration rejected by unique index")
			return nil, ErrUserAlreadyExists
		}
		log.WithError(err).Error("registration insert failed")
		return nil, &StorageError{Op: "insert user", Err: err}
	}

	log.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

// Authenticate checks username and password against the stored hash.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// burn the same bcrypt cost as a real comparison
			_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, &StorageError{Op: "lookup user", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

// Login authenticates and, on success, issues a session token whose subject is the user ID.
func (s *userService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := s.logger.WithField("username", username)

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			log.WithError(err).Error("login lookup failed")
		} else {
			log.Info("login rejected")
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		log.WithError(err).Error("token issue failed")
		return nil, fmt.Errorf("issue token: %w", err)
	}

	log.WithField("user_id", user.ID).Info("user logged in")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userService) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder"), PasswordCost)
	})
	return s.dummyHash
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
