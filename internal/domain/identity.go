package domain

import "time"

// EmbeddingDim is the dimensionality of the face embeddings produced by the
// dlib resnet model. The gallery only ever stores vectors of this length.
const EmbeddingDim = 128

// Identity representa uma face cadastrada na galeria
type Identity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Embedding []float64 `json:"-"`
	Image     []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is an operator login. Passwords are stored and compared in
// plaintext, matching the existing accounts data.
type Account struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Region is a detected face bounding box in pixel coordinates, in the
// top/right/bottom/left order the detector reports.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Snapshot is the in-memory copy of the gallery used by the recognition
// loop: three sequences aligned by index, in id order. It is loaded once per
// loop start and never refreshed while the loop runs.
type Snapshot struct {
	Names      []string
	Contacts   []string
	Embeddings [][]float64
}

// Len returns the number of known identities in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Embeddings)
}
