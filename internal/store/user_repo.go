package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spigell/havewant/internal/domain"
)

// UserRepository caches identity-provider profiles locally.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the profile or refreshes name and email. Empty values from
// the token do not erase what is already stored.
func (r *UserRepository) Upsert(ctx context.Context, u *domain.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user_repo.Upsert: %w", domain.ErrUnauthorized)
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES (:id, :name, :email, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name       = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			email      = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END,
			updated_at = excluded.updated_at`, u)
	if err != nil {
		return fmt.Errorf("user_repo.Upsert: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.Get: %w", err)
	}
	return &u, nil
}
