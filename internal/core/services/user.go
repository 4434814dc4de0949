package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"duet/internal/core/domain"
	"log/slog"

	"github.com/google/uuid"
)

type UserService struct {
	log  *slog.Logger
	repo domain.UserRepository
}

func NewUserService(log *slog.Logger, repo domain.UserRepository) *UserService {
	return &UserService{
		log:  log,
		repo: repo,
	}
}

// Signup creates the account and returns it; the handler issues the token.
func (s *UserService) Signup(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	if existing, err := s.repo.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.ErrEmailTaken
	}
	hash, err := HashPassword(password)
	if err != nil {
		s.log.ErrorContext(ctx, "user - signup - hash password failed", "err", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := domain.NewUser(email, name, hash)
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "user - signup - create user failed", "email", email, "err", err)
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.InfoContext(ctx, "user - signup - user created", "user_id", user.ID.String())
	return user, nil
}

// Login verifies credentials and returns the account.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.log.ErrorContext(ctx, "user - login - lookup failed", "err", err)
		return nil, err
	}
	ok, err := ComparePassword(password, user.PasswordHash)
	if err != nil {
		s.log.ErrorContext(ctx, "user - login - compare failed", "err", err)
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Directory lists every other user with their unseen message count.
func (s *UserService) Directory(ctx context.Context, callerID uuid.UUID) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx, callerID)
	if err != nil {
		s.log.ErrorContext(ctx, "user - directory - list failed", "err", err)
		return nil, err
	}
	return users, nil
}
