package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capecontrol/backend/internal/domain"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "is_active", "date_joined",
}

// UserRepository handles database operations for user accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.DateJoined,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) getBy(ctx context.Context, where sq.Sqlizer) (*domain.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	return r.getBy(ctx, sq.Eq{"id": userID})
}

// GetByEmail retrieves a user by email, compared case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, sq.Expr("lower(email) = lower(?)", email))
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, sq.Eq{"username": username})
}

// Create inserts a user. Unique violations map to ErrEmailTaken or ErrUsernameTaken;
// email uniqueness ignores case.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query, args, err := psql.
		Insert("users").
		Columns("username", "email", "password_hash", "is_active").
		Values(user.Username, user.Email, user.PasswordHash, user.IsActive).
		Suffix("RETURNING id, date_joined").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&user.ID, &user.DateJoined)
	if err != nil {
		if constraint, ok := violatedConstraint(err); ok {
			if strings.Contains(constraint, "email") {
				return domain.ErrEmailTaken
			}
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}
