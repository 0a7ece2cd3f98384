package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Face provider
	FaceProvider  string `envconfig:"FACE_PROVIDER" default:"dlib"`
	DlibModelsDir string `envconfig:"DLIB_MODELS_DIR" default:"models"`

	// Camera
	CameraIndex int `envconfig:"CAMERA_INDEX" default:"0"`

	// Security
	SessionSecret string `envconfig:"SESSION_SECRET" required:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
