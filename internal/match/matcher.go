// Package match implements the identity-matching procedure: a linear scan of
// the gallery snapshot with the provider's match predicate, and the separate
// element-wise tolerance test used to deduplicate inserts.
//
// The two tests are intentionally distinct. Identification rides the
// provider's fixed-threshold predicate; deduplication uses an absolute plus
// relative tolerance on every component. The thresholds and semantics differ
// and must not be unified.
package match

import (
	"context"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Tolerances for the element-wise duplicate test.
const (
	relTol = 1e-5
	absTol = 1e-8
)

// Result is a successful identification.
type Result struct {
	Name    string
	Contact string
}

type Matcher struct {
	provider provider.FaceProvider
}

func New(p provider.FaceProvider) *Matcher {
	return &Matcher{provider: p}
}

// Identify scans the snapshot in order and returns the first known identity
// the predicate accepts, or nil when the snapshot is exhausted without a
// hit. First-in-snapshot-order wins; there is no distance ranking across
// candidates.
func (m *Matcher) Identify(ctx context.Context, embedding []float64, snapshot *domain.Snapshot) (*Result, error) {
	for i, known := range snapshot.Embeddings {
		ok, err := m.provider.Match(ctx, known, embedding)
		if err != nil {
			return nil, fmt.Errorf("match against %q: %w", snapshot.Names[i], err)
		}
		if ok {
			return &Result{Name: snapshot.Names[i], Contact: snapshot.Contacts[i]}, nil
		}
	}

	return nil, nil
}

// IsDuplicate reports whether any known embedding is numerically close to
// the candidate, every component within absolute plus relative tolerance.
// Used only at insert time.
func (m *Matcher) IsDuplicate(embedding []float64, knowns [][]float64) bool {
	for _, known := range knowns {
		if allClose(known, embedding) {
			return true
		}
	}
	return false
}

// allClose is the standard floating-point closeness rule:
// |a[i]-b[i]| <= absTol + relTol*|b[i]| for every component.
func allClose(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > absTol+relTol*math.Abs(b[i]) {
			return false
		}
	}
	return true
}
