package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":           "8080",
				"ENV":            "production",
				"DATABASE_URL":   "postgres://localhost/faces",
				"SESSION_SECRET": "secret123",
				"FACE_PROVIDER":  "mock",
				"CAMERA_INDEX":   "1",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/faces" &&
					c.SessionSecret == "secret123" &&
					c.FaceProvider == "mock" &&
					c.CameraIndex == 1
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL":   "postgres://localhost/faces",
				"SESSION_SECRET": "secret123",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.FaceProvider == "dlib" &&
					c.DlibModelsDir == "models" &&
					c.CameraIndex == 0
			},
		},
		{
			name: "fails when DATABASE_URL missing",
			envVars: map[string]string{
				"SESSION_SECRET": "secret123",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails when SESSION_SECRET missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/faces",
			},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := &Config{Environment: "development"}
	if !dev.IsDevelopment() || dev.IsProduction() {
		t.Error("development flags wrong")
	}

	prod := &Config{Environment: "production"}
	if !prod.IsProduction() || prod.IsDevelopment() {
		t.Error("production flags wrong")
	}
}
