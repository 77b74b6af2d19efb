package texture

import (
	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
)

// TextureBuilderOption is a function that configures a texture during construction.
type TextureBuilderOption func(*texture)

// WithLabel sets the debug label of the texture.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - TextureBuilderOption: a function that applies the label option
func WithLabel(label string) TextureBuilderOption {
	return func(t *texture) {
		t.label = label
	}
}

// WithSize sets the size of mip level 0.
//
// Parameters:
//   - width: width in texels
//   - height: height in texels
//
// Returns:
//   - TextureBuilderOption: a function that applies the size option
func WithSize(width, height uint32) TextureBuilderOption {
	return func(t *texture) {
		t.width = width
		t.height = height
	}
}

// WithFormat sets the texel format.
//
// Parameters:
//   - format: the texel format
//
// Returns:
//   - TextureBuilderOption: a function that applies the format option
func WithFormat(format gpu.Format) TextureBuilderOption {
	return func(t *texture) {
		t.format = format
	}
}

// WithLayers sets the array layer count. Use 6 for cube maps.
//
// Parameters:
//   - layers: the layer count
//
// Returns:
//   - TextureBuilderOption: a function that applies the layers option
func WithLayers(layers uint32) TextureBuilderOption {
	return func(t *texture) {
		t.layers = layers
	}
}

// WithMipMaps allocates a full mip chain to be filled by mip generation.
//
// Parameters:
//   - want: true to allocate and generate mips
//
// Returns:
//   - TextureBuilderOption: a function that applies the mip option
func WithMipMaps(want bool) TextureBuilderOption {
	return func(t *texture) {
		t.wantMips = want
	}
}

// WithMipLevels allocates an explicit number of levels without requesting generation,
// as used by prefiltered environment maps.
//
// Parameters:
//   - levels: the level count
//
// Returns:
//   - TextureBuilderOption: a function that applies the level option
func WithMipLevels(levels uint32) TextureBuilderOption {
	return func(t *texture) {
		t.explicitLevels = levels
	}
}

// WithStorage allows compute shaders to write the texture.
//
// Returns:
//   - TextureBuilderOption: a function that adds storage usage
func WithStorage() TextureBuilderOption {
	return func(t *texture) {
		t.usage |= gpu.UsageStorage
	}
}

// WithSamplerData sets the sampler parameters. nil keeps the defaults.
//
// Parameters:
//   - data: the sampler parameters
//
// Returns:
//   - TextureBuilderOption: a function that applies the sampler option
func WithSamplerData(data *common.SamplerData) TextureBuilderOption {
	return func(t *texture) {
		t.sampler = data
	}
}
