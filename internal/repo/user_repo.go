package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/textfolk/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByNumber(ctx context.Context, number string) (model.User, error)
	Create(ctx context.Context, number, name string) error
	UpdateName(ctx context.Context, number, name string) error
	Delete(ctx context.Context, number string) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// GetByNumber retrieves a user by phone number; ErrNotFound when the sender
// is not registered.
func (r *userRepo) GetByNumber(ctx context.Context, number string) (model.User, error) {
	var user model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT number, name, created_at
		FROM users
		WHERE number = $1
	`, number).Scan(&user.Number, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// Create inserts a new user row.
func (r *userRepo) Create(ctx context.Context, number, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (number, name) VALUES ($1, $2)
	`, number, name)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateName sets the display name for an existing user.
func (r *userRepo) UpdateName(ctx context.Context, number, name string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2 WHERE number = $1
	`, number, name)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user; owned rows (contacts, groups, pending state)
// cascade away.
func (r *userRepo) Delete(ctx context.Context, number string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM users WHERE number = $1
	`, number)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
