package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/metrics"
)

// tokenKeyBytes yields 40 hex characters per key.
const tokenKeyBytes = 20

// UserStore is the persistence the auth service needs for accounts.
type UserStore interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// TokenStore is the persistence the auth service needs for API tokens.
type TokenStore interface {
	GetByKey(ctx context.Context, key string) (*domain.Token, error)
	CreateForUser(ctx context.Context, userID int64, key string) (*domain.Token, error)
	DeleteForUser(ctx context.Context, userID int64) error
}

// AuthService registers users and issues the API tokens that guard the catalog.
type AuthService struct {
	users     UserStore
	tokens    TokenStore
	random    RandomSource
	validator *Validator
	hashCost  int
}

// NewAuthService creates a new AuthService. A hashCost of 0 selects bcrypt.DefaultCost.
func NewAuthService(users UserStore, tokens TokenStore, random RandomSource, hashCost int) *AuthService {
	if random == nil {
		random = SystemRandom()
	}
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		random:    random,
		validator: NewValidator(),
		hashCost:  hashCost,
	}
}

// Register validates and stores a new account.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	params.Email = strings.TrimSpace(params.Email)
	params.Username = strings.TrimSpace(params.Username)

	if err := s.validator.ValidateRegistration(params); err != nil {
		return nil, err
	}

	verr := domain.NewValidationError()
	if _, err := s.users.GetByEmail(ctx, params.Email); err == nil {
		verr.Add("email", "user with this email already exists.")
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.users.GetByUsername(ctx, params.Username); err == nil {
		verr.Add("username", "A user with that username already exists.")
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can still win the unique index.
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			verr.Add("email", "user with this email already exists.")
			return nil, verr
		case errors.Is(err, domain.ErrUsernameTaken):
			verr.Add("username", "A user with that username already exists.")
			return nil, verr
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.UsersRegistered.Inc()
	slog.Info("user registered", "user_id", user.ID, "username", user.Username)

	return user, nil
}

// Login checks credentials and returns the user's token, creating it on first login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive {
		metrics.AuthFailures.WithLabelValues("inactive").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	key, err := s.newKey()
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.CreateForUser(ctx, user.ID, key)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Logout revokes the user's token.
func (s *AuthService) Logout(ctx context.Context, user *domain.User) error {
	if err := s.tokens.DeleteForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	slog.Info("user logged out", "user_id", user.ID)
	return nil
}

// Authenticate resolves a token key to its active owner.
func (s *AuthService) Authenticate(ctx context.Context, key string) (*domain.User, error) {
	token, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("get token owner: %w", err)
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return user, nil
}

func (s *AuthService) newKey() (string, error) {
	buf := make([]byte, tokenKeyBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
