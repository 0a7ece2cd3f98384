package dlib

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// matchThreshold is dlib's standard euclidean distance cutoff for "same
// identity" on the 128-d resnet descriptors.
const matchThreshold = 0.6

// Provider implements provider.FaceProvider on top of dlib via go-face.
// It needs the dlib model files (shape predictor, resnet recognizer, CNN
// detector) in the configured models directory.
type Provider struct {
	rec *face.Recognizer

	// go-face recognizers are not safe for concurrent use.
	mu sync.Mutex
}

var _ provider.FaceProvider = (*Provider)(nil)

// New loads the dlib models from modelsDir.
func New(modelsDir string) (*Provider, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelsDir, err)
	}

	return &Provider{rec: rec}, nil
}

// Close releases the dlib recognizer.
func (p *Provider) Close() {
	p.rec.Close()
}

// Detect returns the bounding region of every face in the JPEG image.
func (p *Provider) Detect(ctx context.Context, image []byte) ([]domain.Region, error) {
	faces, err := p.recognize(image)
	if err != nil {
		return nil, err
	}

	regions := make([]domain.Region, len(faces))
	for i, f := range faces {
		regions[i] = domain.Region{
			Top:    f.Rectangle.Min.Y,
			Right:  f.Rectangle.Max.X,
			Bottom: f.Rectangle.Max.Y,
			Left:   f.Rectangle.Min.X,
		}
	}

	return regions, nil
}

// Embed extracts one descriptor per region. dlib detects and embeds in a
// single pass, so this re-runs recognition and aligns the descriptors with
// the regions by index; the regions must come from Detect on the same image.
func (p *Provider) Embed(ctx context.Context, image []byte, regions []domain.Region) ([][]float64, error) {
	faces, err := p.recognize(image)
	if err != nil {
		return nil, err
	}

	if len(faces) != len(regions) {
		return nil, fmt.Errorf("embed: detector found %d faces for %d regions", len(faces), len(regions))
	}

	embeddings := make([][]float64, len(faces))
	for i, f := range faces {
		v := make([]float64, len(f.Descriptor))
		for j, c := range f.Descriptor {
			v[j] = float64(c)
		}
		embeddings[i] = v
	}

	return embeddings, nil
}

// Match applies the fixed-threshold euclidean predicate.
func (p *Provider) Match(ctx context.Context, known, candidate []float64) (bool, error) {
	if len(known) != len(candidate) {
		return false, fmt.Errorf("match: dimension mismatch %d vs %d", len(known), len(candidate))
	}

	var sum float64
	for i := range known {
		diff := known[i] - candidate[i]
		sum += diff * diff
	}

	return math.Sqrt(sum) <= matchThreshold, nil
}

func (p *Provider) recognize(image []byte) ([]face.Face, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	faces, err := p.rec.Recognize(image)
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}
	return faces, nil
}
