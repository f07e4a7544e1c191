package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capecontrol/backend/internal/domain"
)

// TokenRepository stores API tokens, at most one per user.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// GetByKey retrieves a token by its key.
func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*domain.Token, error) {
	return r.getBy(ctx, sq.Eq{"key": key})
}

// GetByUserID retrieves the token issued to a user.
func (r *TokenRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Token, error) {
	return r.getBy(ctx, sq.Eq{"user_id": userID})
}

func (r *TokenRepository) getBy(ctx context.Context, where sq.Eq) (*domain.Token, error) {
	query, args, err := psql.
		Select("key", "user_id", "created_at").
		From("auth_tokens").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build token query: %w", err)
	}

	var token domain.Token
	err = r.pool.QueryRow(ctx, query, args...).Scan(&token.Key, &token.UserID, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("query token: %w", err)
	}
	return &token, nil
}

// CreateForUser stores key for the user unless the user already holds a token,
// in which case the existing token is returned unchanged.
func (r *TokenRepository) CreateForUser(ctx context.Context, userID int64, key string) (*domain.Token, error) {
	query, args, err := psql.
		Insert("auth_tokens").
		Columns("key", "user_id").
		Values(key, userID).
		Suffix("ON CONFLICT (user_id) DO NOTHING RETURNING key, user_id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}

	var token domain.Token
	err = r.pool.QueryRow(ctx, query, args...).Scan(&token.Key, &token.UserID, &token.CreatedAt)
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	// Lost the race to a concurrent login; hand back the winner's token.
	return r.GetByUserID(ctx, userID)
}

// DeleteForUser removes the user's token. Deleting a missing token is not an error.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID int64) error {
	query, args, err := psql.
		Delete("auth_tokens").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
