package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func TestDetect(t *testing.T) {
	p := New()
	ctx := context.Background()

	regions, err := p.Detect(ctx, make([]byte, 5000))
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	regions, err = p.Detect(ctx, []byte("tiny"))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestEmbed_Deterministic(t *testing.T) {
	p := New()
	ctx := context.Background()
	image := make([]byte, 5000)
	regions := []domain.Region{{Top: 0, Right: 10, Bottom: 10, Left: 0}}

	first, err := p.Embed(ctx, image, regions)
	require.NoError(t, err)
	second, err := p.Embed(ctx, image, regions)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Len(t, first[0], domain.EmbeddingDim)
	assert.Equal(t, first, second)
}

func TestMatch(t *testing.T) {
	p := New()
	ctx := context.Background()

	emb := generateEmbedding(make([]byte, 5000), 0)

	same, err := p.Match(ctx, emb, emb)
	require.NoError(t, err)
	assert.True(t, same, "an embedding must match itself")

	other := generateEmbedding([]byte("completely different image bytes padded out to be large enough for detection to succeed on it"), 0)
	far, err := p.Match(ctx, emb, other)
	require.NoError(t, err)
	assert.False(t, far, "unrelated unit vectors sit beyond the threshold")

	mismatched, err := p.Match(ctx, emb[:10], emb)
	require.NoError(t, err)
	assert.False(t, mismatched)
}
