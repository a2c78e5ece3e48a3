package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/deepeye-api/internal/config"
)

// Entry is a loaded model bound to its slot.
type Entry struct {
	Slot        string // lower-case slot name, e.g. "mobilenet"
	DisplayName string // e.g. "MobileNet"
	Model       Model
}

// Loader builds a Model from a file on disk.
type Loader func(path string, slot config.SlotConfig) (Model, error)

// Registry holds the models loaded at startup. It is never modified after
// construction, so concurrent readers need no locking.
type Registry struct {
	slots   []string
	loaded  []*Entry
	bySlot  map[string]*Entry
	dfltKey string
}

// NewRegistry builds a registry from already loaded models keyed by slot
// name. Slot order is the fallback priority.
func NewRegistry(slots []config.SlotConfig, models map[string]Model) *Registry {
	r := &Registry{
		slots:  make([]string, 0, len(slots)),
		bySlot: make(map[string]*Entry, len(models)),
	}
	for _, s := range slots {
		name := strings.ToLower(s.Name)
		r.slots = append(r.slots, name)

		m, ok := models[name]
		if !ok || m == nil {
			continue
		}
		display := s.DisplayName
		if display == "" {
			display = name
		}
		e := &Entry{Slot: name, DisplayName: display, Model: m}
		r.loaded = append(r.loaded, e)
		r.bySlot[name] = e
	}
	return r
}

// Load tries every configured slot and keeps whatever loads. A slot whose
// files are missing or broken is logged and left empty; Load never fails.
func Load(cfg config.ModelsConfig, load Loader, log logrus.FieldLogger) *Registry {
	models := make(map[string]Model, len(cfg.Slots))

	for _, slot := range cfg.Slots {
		fields := logrus.Fields{"slot": slot.Name, "model": slot.DisplayName}

		paths := candidatePaths(cfg.Dir, slot.File, cfg.Formats)
		if len(paths) == 0 {
			log.WithFields(fields).Warnf("%s model not found", slot.DisplayName)
			continue
		}

		for _, path := range paths {
			m, err := load(path, slot)
			if err != nil {
				log.WithFields(fields).WithField("path", path).WithError(err).Warn("failed to load model")
				continue
			}
			models[strings.ToLower(slot.Name)] = m
			log.WithFields(fields).WithField("path", path).Infof("%s model loaded successfully", slot.DisplayName)
			break
		}
	}

	r := NewRegistry(cfg.Slots, models)
	r.dfltKey = strings.ToLower(cfg.Default)
	return r
}

// candidatePaths lists existing files for a slot in format preference order.
func candidatePaths(dir, file string, formats []string) []string {
	var out []string
	for _, ext := range formats {
		path := filepath.Join(dir, file+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

// ONNXLoader returns a Loader that opens models with onnxruntime.
func ONNXLoader(inputShape []int64, classes int) Loader {
	return func(path string, slot config.SlotConfig) (Model, error) {
		return LoadONNX(path, ONNXOptions{
			InputName:  slot.InputName,
			OutputName: slot.OutputName,
			InputShape: inputShape,
			Classes:    classes,
		})
	}
}

// Get looks up a loaded model by slot name, ignoring case.
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.bySlot[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// Loaded returns the loaded models in priority order.
func (r *Registry) Loaded() []*Entry {
	out := make([]*Entry, len(r.loaded))
	copy(out, r.loaded)
	return out
}

// Status reports, for every configured slot, whether its model is loaded.
func (r *Registry) Status() map[string]bool {
	out := make(map[string]bool, len(r.slots))
	for _, s := range r.slots {
		_, out[s] = r.bySlot[s]
	}
	return out
}

// Resolve returns the requested model, or the first loaded one in priority
// order when the request is empty, unknown or not loaded.
func (r *Registry) Resolve(name string) (*Entry, error) {
	if name == "" {
		name = r.dfltKey
	}
	if e, ok := r.Get(name); ok {
		return e, nil
	}
	if len(r.loaded) == 0 {
		return nil, ErrNoModels
	}
	return r.loaded[0], nil
}

// Close releases every loaded model.
func (r *Registry) Close() error {
	var errs []error
	for _, e := range r.loaded {
		if err := e.Model.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", e.Slot, err))
		}
	}
	return errors.Join(errs...)
}
