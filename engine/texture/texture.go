// Package texture wraps gpu images with the size, mip and sampler state the engine tracks per texture.
package texture

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
)

// texture is the implementation of the Texture interface.
type texture struct {
	mu        sync.RWMutex
	label     string
	width     uint32
	height    uint32
	layers    uint32
	format    gpu.Format
	usage     gpu.ImageUsage
	wantMips  bool
	generated bool

	explicitLevels uint32
	sampler        *common.SamplerData

	image      gpu.Image
	gpuSampler gpu.Sampler
}

// Texture is a GPU image plus the bookkeeping needed to process and sample it.
type Texture interface {
	// Label retrieves the debug label of the texture.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Image retrieves the underlying GPU image.
	//
	// Returns:
	//   - gpu.Image: the image
	Image() gpu.Image

	// Width retrieves the width of mip level 0 in texels.
	//
	// Returns:
	//   - uint32: the width
	Width() uint32

	// Height retrieves the height of mip level 0 in texels.
	//
	// Returns:
	//   - uint32: the height
	Height() uint32

	// Levels retrieves the mip chain length.
	//
	// Returns:
	//   - uint32: the number of mip levels
	Levels() uint32

	// Layers retrieves the array layer count, 6 for cube maps.
	//
	// Returns:
	//   - uint32: the number of layers
	Layers() uint32

	// Format retrieves the texel format.
	//
	// Returns:
	//   - gpu.Format: the format
	Format() gpu.Format

	// WantsMipMaps reports whether the texture was created for a full mip chain.
	//
	// Returns:
	//   - bool: true if mips should be generated
	WantsMipMaps() bool

	// MipMapsGenerated reports whether the mip chain has been filled.
	//
	// Returns:
	//   - bool: true once mips are generated
	MipMapsGenerated() bool

	// SetMipMapsGenerated records that the mip chain has been filled.
	//
	// Parameters:
	//   - generated: the new state
	SetMipMapsGenerated(generated bool)

	// SamplerData retrieves the sampler parameters the texture was imported with.
	//
	// Returns:
	//   - common.SamplerData: the sampler parameters, defaults if none were given
	SamplerData() common.SamplerData

	// Sampler retrieves the GPU sampler, creating it on first use.
	//
	// Parameters:
	//   - device: the device to create the sampler on
	//
	// Returns:
	//   - gpu.Sampler: the sampler
	//   - error: error if creation fails
	Sampler(device gpu.Device) (gpu.Sampler, error)

	// Release destroys the GPU image and sampler.
	Release()
}

var _ Texture = &texture{}

// NewTexture creates a texture and allocates its GPU image.
//
// Parameters:
//   - device: the device to allocate on
//   - options: variadic list of TextureBuilderOption functions
//
// Returns:
//   - Texture: the new texture
//   - error: error if the size is unset or allocation fails
func NewTexture(device gpu.Device, options ...TextureBuilderOption) (Texture, error) {
	if device == nil {
		panic("texture: nil device")
	}
	t := &texture{
		layers: 1,
		format: gpu.FormatRGBA8Unorm,
		usage:  gpu.UsageSampled | gpu.UsageTransferDst,
	}
	for _, opt := range options {
		opt(t)
	}
	if t.width == 0 || t.height == 0 {
		return nil, fmt.Errorf("texture %s: size not set", t.label)
	}

	levels := uint32(1)
	if t.explicitLevels > 0 {
		levels = t.explicitLevels
	}
	if t.wantMips {
		levels = MipLevelsFor(t.width, t.height)
		t.usage |= gpu.UsageStorage
	}

	img, err := device.CreateImage(gpu.ImageDescriptor{
		Label:  t.label,
		Width:  t.width,
		Height: t.height,
		Levels: levels,
		Layers: t.layers,
		Format: t.format,
		Usage:  t.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", t.label, err)
	}
	t.image = img
	return t, nil
}

// FromImported decodes an imported texture and uploads it to mip level 0 of a new RGBA8 texture.
//
// Parameters:
//   - device: the device to allocate on
//   - imported: the imported texture to decode
//   - options: additional TextureBuilderOption functions, applied after the size and label
//
// Returns:
//   - Texture: the uploaded texture
//   - error: error if decoding, allocation or upload fails
func FromImported(device gpu.Device, imported *common.ImportedTexture, options ...TextureBuilderOption) (Texture, error) {
	px, err := imported.Decode()
	if err != nil {
		return nil, err
	}
	return FromPixels(device, imported.Name, px, imported.Sampler, options...)
}

// FromPixels uploads already decoded RGBA8 pixels into a new texture.
//
// Parameters:
//   - device: the device to allocate on
//   - label: debug label
//   - px: the decoded pixels
//   - sampler: sampler parameters, or nil for defaults
//   - options: additional TextureBuilderOption functions
//
// Returns:
//   - Texture: the uploaded texture
//   - error: error if allocation or upload fails
func FromPixels(device gpu.Device, label string, px common.PixelData, sampler *common.SamplerData, options ...TextureBuilderOption) (Texture, error) {
	opts := append([]TextureBuilderOption{
		WithLabel(label),
		WithSize(px.Width, px.Height),
		WithFormat(gpu.FormatRGBA8Unorm),
		WithSamplerData(sampler),
	}, options...)

	t, err := NewTexture(device, opts...)
	if err != nil {
		return nil, err
	}
	if err := device.WriteImage(t.Image(), 0, 0, px.Pixels, px.Width, px.Height); err != nil {
		t.Release()
		return nil, fmt.Errorf("texture %s: upload: %w", label, err)
	}
	return t, nil
}

// MipLevelsFor returns the length of a full mip chain for the given size.
//
// Parameters:
//   - width: width of level 0
//   - height: height of level 0
//
// Returns:
//   - uint32: the number of levels down to 1x1
func MipLevelsFor(width, height uint32) uint32 {
	largest := max(width, height)
	if largest == 0 {
		return 1
	}
	return uint32(bits.Len32(largest))
}

func (t *texture) Label() string {
	return t.label
}

func (t *texture) Image() gpu.Image {
	return t.image
}

func (t *texture) Width() uint32 {
	return t.width
}

func (t *texture) Height() uint32 {
	return t.height
}

func (t *texture) Levels() uint32 {
	return t.image.Descriptor().Levels
}

func (t *texture) Layers() uint32 {
	return t.layers
}

func (t *texture) Format() gpu.Format {
	return t.format
}

func (t *texture) WantsMipMaps() bool {
	return t.wantMips
}

func (t *texture) MipMapsGenerated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generated
}

func (t *texture) SetMipMapsGenerated(generated bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generated = generated
}

func (t *texture) SamplerData() common.SamplerData {
	if t.sampler == nil {
		return common.DefaultSamplerData()
	}
	return *t.sampler
}

func (t *texture) Sampler(device gpu.Device) (gpu.Sampler, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gpuSampler != nil {
		return t.gpuSampler, nil
	}
	s, err := device.CreateSampler(gpu.SamplerDescriptor{
		Label:       t.label + " Sampler",
		SamplerData: t.SamplerData(),
		LodMaxClamp: float32(t.image.Descriptor().Levels),
	})
	if err != nil {
		return nil, err
	}
	t.gpuSampler = s
	return s, nil
}

func (t *texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gpuSampler != nil {
		t.gpuSampler.Release()
		t.gpuSampler = nil
	}
	if t.image != nil {
		t.image.Release()
		t.image = nil
	}
}
