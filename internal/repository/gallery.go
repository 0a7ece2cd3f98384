package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// SearchField selects the column a gallery search matches against.
type SearchField string

const (
	SearchByName    SearchField = "name"
	SearchByContact SearchField = "contact"
)

// Valid reports whether the field is one of the two searchable columns.
// Field names are interpolated into queries, so anything else is rejected
// before it reaches SQL.
func (f SearchField) Valid() bool {
	return f == SearchByName || f == SearchByContact
}

type GalleryRepository struct {
	pool PgxPool
}

func NewGalleryRepository(pool PgxPool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// Insert appends one identity row. The caller is expected to have run the
// duplicate-embedding check already; duplicate names and contacts are
// allowed.
func (r *GalleryRepository) Insert(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO faces (name, contact, encoding, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		identity.Name,
		identity.Contact,
		domain.EncodeEmbedding(identity.Embedding),
		identity.Image,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}

	return nil
}

// Search returns all rows whose field contains the substring,
// case-insensitive, in id order. Embeddings are not decoded here; search
// results only feed the manage and delete pages, which need the
// reference image but never the vector.
func (r *GalleryRepository) Search(ctx context.Context, field SearchField, substring string) ([]domain.Identity, error) {
	if !field.Valid() {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("unknown search field %q", field))
	}

	query := fmt.Sprintf(`
		SELECT id, name, contact, image, created_at, updated_at
		FROM faces
		WHERE %s ILIKE '%%' || $1 || '%%'
		ORDER BY id
	`, field)

	rows, err := r.pool.Query(ctx, query, substring)
	if err != nil {
		return nil, fmt.Errorf("search faces: %w", err)
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(
			&identity.ID,
			&identity.Name,
			&identity.Contact,
			&identity.Image,
			&identity.CreatedAt,
			&identity.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan face row: %w", err)
		}
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search faces: %w", err)
	}

	return identities, nil
}

// Update rewrites name and contact. A missing id is a silent no-op.
func (r *GalleryRepository) Update(ctx context.Context, id int64, name, contact string) error {
	query := `
		UPDATE faces
		SET name = $2, contact = $3, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, name, contact); err != nil {
		return fmt.Errorf("update face: %w", err)
	}

	return nil
}

// Delete removes one row. A missing id is a silent no-op.
func (r *GalleryRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM faces
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete face: %w", err)
	}

	return nil
}

// LoadAll reads the whole gallery into the snapshot consumed by the
// recognition loop, aligned by index in id order.
func (r *GalleryRepository) LoadAll(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT name, contact, encoding
		FROM faces
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	defer rows.Close()

	snapshot := &domain.Snapshot{}
	for rows.Next() {
		var name, contact string
		var encoded []byte
		if err := rows.Scan(&name, &contact, &encoded); err != nil {
			return nil, fmt.Errorf("scan gallery row: %w", err)
		}

		embedding, err := domain.DecodeEmbedding(encoded)
		if err != nil {
			return nil, fmt.Errorf("gallery row %q: %w", name, err)
		}

		snapshot.Names = append(snapshot.Names, name)
		snapshot.Contacts = append(snapshot.Contacts, contact)
		snapshot.Embeddings = append(snapshot.Embeddings, embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}

	return snapshot, nil
}

// GetByID fetches one full record, reference image included.
func (r *GalleryRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	query := `
		SELECT id, name, contact, encoding, image, created_at, updated_at
		FROM faces
		WHERE id = $1
	`

	var identity domain.Identity
	var encoded []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&identity.ID,
		&identity.Name,
		&identity.Contact,
		&encoded,
		&identity.Image,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get face by id: %w", err)
	}

	identity.Embedding, err = domain.DecodeEmbedding(encoded)
	if err != nil {
		return nil, fmt.Errorf("face %d: %w", id, err)
	}

	return &identity, nil
}
