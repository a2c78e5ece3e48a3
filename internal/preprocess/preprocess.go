package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/deepeye-api/internal/model"
)

// ErrInvalidImage is returned for bytes that cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image format")

// DefaultMaxPixels is the largest width*height accepted before decoding.
const DefaultMaxPixels = 178956970

// Preprocessor turns uploaded image bytes into model input tensors.
type Preprocessor struct {
	Size   int
	Layout model.Layout
	// MaxPixels caps the declared dimensions of an upload. Zero disables the check.
	MaxPixels int64
}

// New returns a Preprocessor producing size×size RGB tensors.
func New(size int, layout model.Layout) *Preprocessor {
	return &Preprocessor{Size: size, Layout: layout, MaxPixels: DefaultMaxPixels}
}

// Tensor decodes data, drops any alpha channel, resizes to Size×Size and
// scales every channel value into [0,1].
func (p *Preprocessor) Tensor(data []byte) (t *model.Tensor, err error) {
	// Some decoders panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrInvalidImage, r)
		}
	}()

	if err := p.checkDimensions(data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	size := uint(p.Size)
	resized := resize.Resize(size, size, toOpaqueRGBA(img), resize.Bicubic)
	out, ok := resized.(*image.RGBA)
	if !ok {
		out = toOpaqueRGBA(resized)
	}

	return p.pack(out), nil
}

// checkDimensions reads only the image header, so oversized images are
// refused before any pixel buffer is allocated.
func (p *Preprocessor) checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > p.MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, p.MaxPixels)
	}
	return nil
}

// toOpaqueRGBA converts any image to RGBA with alpha forced to 255, keeping
// the straight (non-premultiplied) colour values. An opaque NRGBA buffer has
// the same bytes as RGBA, so the clone is reused in place.
func toOpaqueRGBA(img image.Image) *image.RGBA {
	src := imaging.Clone(img) // origin-based, tightly packed
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	return &image.RGBA{Pix: src.Pix, Stride: src.Stride, Rect: src.Rect}
}

func (p *Preprocessor) pack(img *image.RGBA) *model.Tensor {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data := make([]float32, 3*w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			r := float32(img.Pix[off]) / 255.0
			g := float32(img.Pix[off+1]) / 255.0
			b := float32(img.Pix[off+2]) / 255.0

			pixelIndex := y*w + x
			if p.Layout == model.LayoutNCHW {
				data[pixelIndex] = r
				data[w*h+pixelIndex] = g
				data[2*w*h+pixelIndex] = b
			} else {
				data[pixelIndex*3] = r
				data[pixelIndex*3+1] = g
				data[pixelIndex*3+2] = b
			}
		}
	}

	return &model.Tensor{Shape: p.Layout.Shape(w), Data: data}
}
