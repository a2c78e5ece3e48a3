package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds DeepEye API configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Models   ModelsConfig   `yaml:"models"`
	Response ResponseConfig `yaml:"response"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // HTTP listen address, e.g. ":8000"
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"` // multipart body limit
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReleaseMode     bool          `yaml:"release_mode"` // gin release mode
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug | info | warn | error
	Format    string `yaml:"format"` // text | json
	SentryDSN string `yaml:"sentry_dsn"`
}

type RuntimeConfig struct {
	SharedLibraryPath       string `yaml:"shared_library_path"`
	MaxConcurrentInferences int    `yaml:"max_concurrent_inferences"` // 0 means runtime.NumCPU()
}

type ModelsConfig struct {
	Dir            string       `yaml:"dir"`
	Formats        []string     `yaml:"formats"` // file extensions in order of preference
	ImageSize      int          `yaml:"image_size"`
	Layout         string       `yaml:"layout"`           // nhwc | nchw
	MaxImagePixels int64        `yaml:"max_image_pixels"` // width*height limit checked before decoding
	Default        string       `yaml:"default"`          // slot used when /predict gets no selector
	Slots          []SlotConfig `yaml:"slots"`            // priority order
}

// SlotConfig describes one model slot. File is the filename without extension.
type SlotConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	File        string `yaml:"file"`
	InputName   string `yaml:"input_name"`  // discovered from the model when empty
	OutputName  string `yaml:"output_name"` // discovered from the model when empty
}

type ResponseConfig struct {
	NormalDiseaseName     string `yaml:"normal_disease_name"`
	IncludePredictedClass *bool  `yaml:"include_predicted_class"`
}

// PredictedClassEnabled reports whether responses carry the raw class key.
func (r ResponseConfig) PredictedClassEnabled() bool {
	return r.IncludePredictedClass == nil || *r.IncludePredictedClass
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	return &cfg, nil
}

// Default returns the four-slot configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func defaultSlots() []SlotConfig {
	return []SlotConfig{
		{Name: "mobilenet", DisplayName: "MobileNet", File: "mobileNet_model"},
		{Name: "resnet", DisplayName: "ResNet", File: "ResNet_model"},
		{Name: "densenet", DisplayName: "DenseNet", File: "DenseNet_model"},
		{Name: "efficientnetb0", DisplayName: "EfficientNetB0", File: "EfficientNetB0_model"},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "."
	}
	if len(cfg.Models.Formats) == 0 {
		cfg.Models.Formats = []string{".onnx", ".ort"}
	}
	if cfg.Models.ImageSize == 0 {
		cfg.Models.ImageSize = 224
	}
	if cfg.Models.Layout == "" {
		cfg.Models.Layout = "nhwc"
	}
	if cfg.Models.MaxImagePixels == 0 {
		cfg.Models.MaxImagePixels = 178956970
	}
	if cfg.Models.Slots == nil {
		cfg.Models.Slots = defaultSlots()
	}
	for i := range cfg.Models.Slots {
		s := &cfg.Models.Slots[i]
		s.Name = strings.ToLower(strings.TrimSpace(s.Name))
		if s.DisplayName == "" {
			s.DisplayName = s.Name
		}
		if s.File == "" {
			s.File = s.Name
		}
	}
	if cfg.Models.Default == "" && len(cfg.Models.Slots) > 0 {
		cfg.Models.Default = cfg.Models.Slots[0].Name
	}
	cfg.Models.Default = strings.ToLower(cfg.Models.Default)

	if cfg.Response.NormalDiseaseName == "" {
		cfg.Response.NormalDiseaseName = "Normal"
	}
}

func applyEnv(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if dir := strings.TrimSpace(os.Getenv("DEEPEYE_MODEL_DIR")); dir != "" {
		cfg.Models.Dir = dir
	}
	if lib := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); lib != "" {
		cfg.Runtime.SharedLibraryPath = lib
	}
}
