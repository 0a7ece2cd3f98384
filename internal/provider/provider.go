package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// FaceProvider define a interface para a capacidade externa de
// reconhecimento facial. The application never computes detections or
// embeddings itself; everything biometric goes through this interface.
type FaceProvider interface {
	// Detect returns the bounding regions of every face in the image,
	// in the order the underlying detector reports them.
	Detect(ctx context.Context, image []byte) ([]domain.Region, error)

	// Embed extracts one fixed-length embedding per region, aligned by
	// index with the regions slice.
	Embed(ctx context.Context, image []byte, regions []domain.Region) ([][]float64, error)

	// Match is the binary same-identity predicate between one known
	// embedding and one candidate, under the provider's fixed internal
	// threshold. This is deliberately NOT the tolerance test used for
	// insert-time deduplication; see internal/match.
	Match(ctx context.Context, known, candidate []float64) (bool, error)
}
