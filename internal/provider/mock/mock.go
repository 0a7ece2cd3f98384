package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// matchThreshold mirrors the dlib default euclidean threshold.
const matchThreshold = 0.6

// Provider implementa provider.FaceProvider para testes e desenvolvimento
// sem camera nem modelos dlib. Embeddings are deterministic functions of the
// image bytes, so the same image always produces the same vector.
type Provider struct{}

// New cria uma nova instância do mock provider
func New() *Provider {
	return &Provider{}
}

var _ provider.FaceProvider = (*Provider)(nil)

// Detect reports one face for any plausibly sized image and none for tiny
// payloads, which stands in for a frame with nobody in it.
func (p *Provider) Detect(ctx context.Context, image []byte) ([]domain.Region, error) {
	if len(image) < 1000 {
		return nil, nil
	}

	return []domain.Region{
		{Top: 60, Right: 420, Bottom: 380, Left: 120},
	}, nil
}

// Embed gera um embedding determinístico por região, derivado do hash da
// imagem e do índice da região.
func (p *Provider) Embed(ctx context.Context, image []byte, regions []domain.Region) ([][]float64, error) {
	embeddings := make([][]float64, len(regions))
	for i := range regions {
		embeddings[i] = generateEmbedding(image, i)
	}
	return embeddings, nil
}

// Match applies the euclidean predicate with the fixed dlib threshold.
func (p *Provider) Match(ctx context.Context, known, candidate []float64) (bool, error) {
	if len(known) != len(candidate) {
		return false, nil
	}
	return euclideanDistance(known, candidate) <= matchThreshold, nil
}

// generateEmbedding gera um vetor unitário determinístico a partir do hash
// da imagem e do índice da região.
func generateEmbedding(image []byte, region int) []float64 {
	seed := sha256.Sum256(append(image, byte(region)))
	embedding := make([]float64, domain.EmbeddingDim)
	hashLen := len(seed)

	for i := 0; i < domain.EmbeddingDim; i++ {
		idx := i % hashLen
		embedding[i] = (float64(seed[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
