package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GalleryRepositoryInterface defines operations for gallery data access
type GalleryRepositoryInterface interface {
	Insert(ctx context.Context, identity *domain.Identity) error
	Search(ctx context.Context, field SearchField, substring string) ([]domain.Identity, error)
	Update(ctx context.Context, id int64, name, contact string) error
	Delete(ctx context.Context, id int64) error
	LoadAll(ctx context.Context) (*domain.Snapshot, error)
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
}

// AccountRepositoryInterface defines operations for account data access
type AccountRepositoryInterface interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, password string) (bool, error)
	Verify(ctx context.Context, username, password string) (bool, error)
}
