package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
)

// ProviderType defines supported face recognition provider types
type ProviderType string

const (
	// ProviderTypeDlib runs dlib locally via go-face (default)
	ProviderTypeDlib ProviderType = "dlib"
	// ProviderTypeMock is deterministic and model-free, for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// NewFaceProvider creates a FaceProvider instance based on configuration.
//
// Environment variables:
//   - FACE_PROVIDER: "dlib" or "mock" (default: "dlib")
//   - DLIB_MODELS_DIR: directory holding the dlib model files
func NewFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	switch ProviderType(cfg.FaceProvider) {
	case ProviderTypeDlib, "":
		prov, err := dlib.New(cfg.DlibModelsDir)
		if err != nil {
			return nil, fmt.Errorf("create dlib provider: %w", err)
		}
		return prov, nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.FaceProvider, ProviderTypeDlib, ProviderTypeMock)
	}
}
