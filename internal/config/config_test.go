package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("DEEPEYE_MODEL_DIR", "")
	t.Setenv("ONNXRUNTIME_SHARED_LIBRARY_PATH", "")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Fatalf("expected default addr :8000, got %q", cfg.Server.Addr)
	}
	if len(cfg.Models.Slots) != 4 {
		t.Fatalf("expected 4 default slots, got %d", len(cfg.Models.Slots))
	}
	want := []string{"mobilenet", "resnet", "densenet", "efficientnetb0"}
	for i, name := range want {
		if cfg.Models.Slots[i].Name != name {
			t.Fatalf("slot %d: expected %q, got %q", i, name, cfg.Models.Slots[i].Name)
		}
	}
	if cfg.Models.Default != "mobilenet" {
		t.Fatalf("expected default slot mobilenet, got %q", cfg.Models.Default)
	}
	if got := cfg.Models.Formats; len(got) != 2 || got[0] != ".onnx" || got[1] != ".ort" {
		t.Fatalf("unexpected formats %v", got)
	}
	if cfg.Response.NormalDiseaseName != "Normal" || !cfg.Response.PredictedClassEnabled() {
		t.Fatalf("unexpected response defaults %+v", cfg.Response)
	}
	if cfg.Models.MaxImagePixels != 178956970 {
		t.Fatalf("expected default max_image_pixels 178956970, got %d", cfg.Models.MaxImagePixels)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadTwoSlotVariant(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "deepeye.yaml")
	data := `
models:
  dir: ./weights
  slots:
    - name: MobileNet
      display_name: MobileNet
      file: mobileNet_model
    - name: resnet
      display_name: ResNet
response:
  normal_disease_name: No Disease
  include_predicted_class: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Models.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(cfg.Models.Slots))
	}
	if cfg.Models.Slots[0].Name != "mobilenet" {
		t.Fatalf("slot names should be lower-cased, got %q", cfg.Models.Slots[0].Name)
	}
	if cfg.Models.Slots[1].File != "resnet" {
		t.Fatalf("file should default to slot name, got %q", cfg.Models.Slots[1].File)
	}
	if cfg.Models.Default != "mobilenet" {
		t.Fatalf("default should be first slot, got %q", cfg.Models.Default)
	}
	if cfg.Response.NormalDiseaseName != "No Disease" {
		t.Fatalf("unexpected normal name %q", cfg.Response.NormalDiseaseName)
	}
	if cfg.Response.PredictedClassEnabled() {
		t.Fatalf("predicted_class should be disabled")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEEPEYE_MODEL_DIR", "/srv/models")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected PORT override, got %q", cfg.Server.Addr)
	}
	if cfg.Models.Dir != "/srv/models" {
		t.Fatalf("expected model dir override, got %q", cfg.Models.Dir)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing server addr",
			mutate: func(c *Config) { c.Server.Addr = "" },
			want:   "server.addr",
		},
		{
			name:   "bad upload limit",
			mutate: func(c *Config) { c.Server.MaxUploadBytes = -1 },
			want:   "max_upload_bytes",
		},
		{
			name:   "bad cors origin",
			mutate: func(c *Config) { c.Server.CORSOrigins = []string{"localhost:3000"} },
			want:   "cors_origins",
		},
		{
			name:   "unknown log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "no formats",
			mutate: func(c *Config) { c.Models.Formats = nil },
			want:   "models.formats",
		},
		{
			name:   "format without dot",
			mutate: func(c *Config) { c.Models.Formats = []string{"onnx"} },
			want:   "dot",
		},
		{
			name:   "negative max image pixels",
			mutate: func(c *Config) { c.Models.MaxImagePixels = -1 },
			want:   "models.max_image_pixels",
		},
		{
			name:   "unknown layout",
			mutate: func(c *Config) { c.Models.Layout = "hwcn" },
			want:   "models.layout",
		},
		{
			name: "duplicate slot",
			mutate: func(c *Config) {
				c.Models.Slots = append(c.Models.Slots, SlotConfig{Name: "ResNet"})
			},
			want: "duplicate",
		},
		{
			name:   "unknown default",
			mutate: func(c *Config) { c.Models.Default = "vgg16" },
			want:   "models.default",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
