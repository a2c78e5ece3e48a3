package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	for _, o := range cfg.Server.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.cors_origins entry %q must be * or an http(s) origin", o)
		}
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", cfg.Logging.Format)
	}

	if cfg.Runtime.MaxConcurrentInferences < 0 {
		return errors.New("runtime.max_concurrent_inferences must not be negative")
	}

	return validateModelsConfig(cfg.Models)
}

func validateModelsConfig(m ModelsConfig) error {
	if len(m.Formats) == 0 {
		return errors.New("models.formats must list at least one extension")
	}
	for _, ext := range m.Formats {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("models.formats entry %q must start with a dot", ext)
		}
	}
	if m.ImageSize <= 0 {
		return errors.New("models.image_size must be positive")
	}
	if m.MaxImagePixels < 0 {
		return errors.New("models.max_image_pixels must not be negative")
	}
	switch strings.ToLower(m.Layout) {
	case "nhwc", "nchw":
	default:
		return fmt.Errorf("models.layout %q must be nhwc or nchw", m.Layout)
	}

	seen := make(map[string]bool, len(m.Slots))
	for _, s := range m.Slots {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			return errors.New("model slot name must be set")
		}
		if seen[name] {
			return fmt.Errorf("duplicate model slot %q", name)
		}
		seen[name] = true
	}

	if m.Default != "" && !seen[strings.ToLower(m.Default)] {
		return fmt.Errorf("models.default %q is not a configured slot", m.Default)
	}
	return nil
}
