package repository

import (
	"context"
	"fmt"
)

type AccountRepository struct {
	pool PgxPool
}

func NewAccountRepository(pool PgxPool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Exists reports whether an account with the username is registered.
func (r *AccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}

	return exists, nil
}

// Create registers an account. It returns false and inserts nothing when the
// username is already taken. The existence check and the insert are separate
// statements; the unique constraint on username catches the race between
// them.
func (r *AccountRepository) Create(ctx context.Context, username, password string) (bool, error) {
	taken, err := r.Exists(ctx, username)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	query := `
		INSERT INTO accounts (username, password, created_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, username, password); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create account: %w", err)
	}

	return true, nil
}

// Verify reports whether a row matches both fields exactly. The comparison
// is plaintext, matching how the accounts table stores passwords.
func (r *AccountRepository) Verify(ctx context.Context, username, password string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 AND password = $2)
	`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, username, password).Scan(&ok); err != nil {
		return false, fmt.Errorf("verify credentials: %w", err)
	}

	return ok, nil
}
