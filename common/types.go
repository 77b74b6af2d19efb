// Package common contains plain data types and math helpers shared by the engine packages.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errNoTextureSource = errors.New("texture has neither data nor path")

// AddressMode controls texture coordinate wrapping outside [0, 1].
type AddressMode int

const (
	AddressRepeat AddressMode = iota
	AddressMirrorRepeat
	AddressClampToEdge
)

// FilterMode selects texel filtering.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// SamplerData holds backend-neutral sampler parameters read from a model file.
type SamplerData struct {
	// AddressModeU, AddressModeV, AddressModeW wrap texture coordinates per axis.
	AddressModeU, AddressModeV, AddressModeW AddressMode
	// MagFilter and MinFilter select magnification and minification filtering.
	MagFilter, MinFilter FilterMode
	// MipmapFilter selects filtering between mip levels.
	MipmapFilter FilterMode
}

// DefaultSamplerData returns linear filtering with repeat wrapping, the glTF default.
func DefaultSamplerData() SamplerData {
	return SamplerData{}
}

// PixelData is decoded RGBA8 pixel data ready for GPU upload.
type PixelData struct {
	// Pixels holds 4 bytes per pixel, row-major.
	Pixels []byte
	Width  uint32
	Height uint32
}

// ImportedTexture represents texture data extracted from a model file.
// Embedded textures carry raw image bytes in Data, external ones carry Path.
type ImportedTexture struct {
	// Name is an identifier for this texture, usually the image name or URI.
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw image bytes for embedded textures.
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// Sampler holds sampler parameters from the model file, nil for defaults.
	Sampler *SamplerData
}

// Decode decodes the texture to RGBA8 pixels.
// PNG, JPEG, BMP, TIFF and WebP are supported.
//
// Returns:
//   - PixelData: decoded pixels and dimensions
//   - error: error if the source is missing or decoding fails
func (t *ImportedTexture) Decode() (PixelData, error) {
	if t == nil {
		return PixelData{}, fmt.Errorf("texture is nil")
	}

	var (
		img image.Image
		err error
	)
	switch {
	case len(t.Data) > 0:
		img, err = decodeImage(bytes.NewReader(t.Data))
		if err != nil {
			return PixelData{}, fmt.Errorf("failed to decode embedded image %s: %w", t.Name, err)
		}
	case t.Path != "":
		file, openErr := os.Open(t.Path)
		if openErr != nil {
			return PixelData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, openErr)
		}
		defer file.Close()

		img, err = decodeImage(file)
		if err != nil {
			return PixelData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	default:
		return PixelData{}, errNoTextureSource
	}

	px := ToRGBA(img)
	t.Width = int(px.Width)
	t.Height = int(px.Height)
	return px, nil
}

// ToRGBA converts any image to tightly packed RGBA8 pixels.
func ToRGBA(img image.Image) PixelData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return PixelData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}
