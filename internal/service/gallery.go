package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/match"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// GalleryService implementa as operações de manutenção da galeria de faces.
type GalleryService struct {
	repo    repository.GalleryRepositoryInterface
	matcher *match.Matcher
}

func NewGalleryService(repo repository.GalleryRepositoryInterface, matcher *match.Matcher) *GalleryService {
	return &GalleryService{
		repo:    repo,
		matcher: matcher,
	}
}

// Add inserts a captured face. The embedding is compared element-wise
// against every stored embedding first; a numerically close match means the
// face is already enrolled and the insert is refused.
func (s *GalleryService) Add(ctx context.Context, name, contact string, embedding []float64, image []byte) (*domain.Identity, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" || contact == "" {
		return nil, domain.ErrValidationFailed
	}

	snapshot, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gallery for duplicate check: %w", err)
	}

	if s.matcher.IsDuplicate(embedding, snapshot.Embeddings) {
		return nil, domain.ErrDuplicateFace
	}

	identity := &domain.Identity{
		Name:      name,
		Contact:   contact,
		Embedding: embedding,
		Image:     image,
	}
	if err := s.repo.Insert(ctx, identity); err != nil {
		return nil, err
	}

	return identity, nil
}

// Search returns identities whose field contains the substring, gallery
// order. An empty substring matches everything.
func (s *GalleryService) Search(ctx context.Context, field repository.SearchField, substring string) ([]domain.Identity, error) {
	return s.repo.Search(ctx, field, substring)
}

// Update rewrites name and contact of a record. A missing id is a silent
// no-op, matching the delete semantics.
func (s *GalleryService) Update(ctx context.Context, id int64, name, contact string) error {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" || contact == "" {
		return domain.ErrValidationFailed
	}
	return s.repo.Update(ctx, id, name, contact)
}

// Delete removes a record. A missing id is a silent no-op.
func (s *GalleryService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get returns one identity with its stored image.
func (s *GalleryService) Get(ctx context.Context, id int64) (*domain.Identity, error) {
	return s.repo.GetByID(ctx, id)
}
