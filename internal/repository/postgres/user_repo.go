package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"

	"github.com/jackc/pgx/v5"
)

// GetUserByUsername ищет оператора консоли по имени.
func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, email, username, password_hash, role, scopes, created_at, updated_at
		FROM users WHERE username = $1`

	var u domain.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Scopes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Не найден — не ошибка
		}
		return nil, fmt.Errorf("postgres: failed to get user: %w", err)
	}
	return &u, nil
}
