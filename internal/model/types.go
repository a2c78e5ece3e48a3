package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoModels is returned when no slot has a loaded model.
var ErrNoModels = errors.New("no models available")

// Tensor is a dense float32 batch in the layout described by Shape.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Model is a loaded classifier. Predict returns one score per class.
// Implementations must be safe for concurrent use.
type Model interface {
	Predict(input *Tensor) ([]float32, error)
	Close() error
}

// Layout is the memory order of an image batch.
type Layout string

const (
	LayoutNHWC Layout = "nhwc" // [1, size, size, 3]
	LayoutNCHW Layout = "nchw" // [1, 3, size, size]
)

// ParseLayout accepts "nhwc" or "nchw" in any case.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutNHWC, LayoutNCHW:
		return l, nil
	default:
		return "", fmt.Errorf("unknown tensor layout %q", s)
	}
}

// Shape returns the batch-of-one input shape for a square RGB image.
func (l Layout) Shape(size int) []int64 {
	s := int64(size)
	if l == LayoutNCHW {
		return []int64{1, 3, s, s}
	}
	return []int64{1, s, s, 3}
}
