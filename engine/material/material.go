// Package material holds surface descriptions shared between meshes, and the registry
// that deduplicates them by name.
package material

import (
	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"
)

// TextureType is the slot a texture fills on a material.
type TextureType int

const (
	TextureAlbedo TextureType = iota
	TextureNormal
	TextureEmissive
	TextureMetallic
	TextureRoughness
	TextureAmbientOcclusion
	TextureUnknown
)

var textureTypeNames = [...]string{
	"Albedo",
	"Normal",
	"Emissive",
	"Metallic",
	"Roughness",
	"AmbientOcclusion",
	"Unknown",
}

func (t TextureType) String() string {
	if t >= 0 && int(t) < len(textureTypeNames) {
		return textureTypeNames[t]
	}
	return "Unknown"
}

// ShadingModel selects the lighting model a material is rendered with.
type ShadingModel int

const (
	ShadingPBRMetallicRoughness ShadingModel = iota
	ShadingUnlit
)

// BlendMode selects how a material's alpha is treated.
type BlendMode int

const (
	BlendOpaque BlendMode = iota
	BlendMask
	BlendAlpha
)

// TextureRef is one texture slot of a material.
type TextureRef struct {
	// Source is the imported image data, including its sampler parameters.
	Source *common.ImportedTexture
	// Texture is the uploaded GPU texture, nil when loading without a device.
	Texture texture.Texture
	// TexCoord is the UV set the slot samples with.
	TexCoord int
}

// Material is a named surface description. It is read-only once built and may be shared
// by any number of meshes.
type Material struct {
	name     string
	textures map[TextureType]TextureRef

	twoSided     bool
	shadingModel ShadingModel
	wireframe    bool
	blendMode    BlendMode
	alphaCutoff  float32

	opacity           float32
	shininess         float32
	shininessStrength float32
	reflectivity      float32
	refractiveIndex   float32
	metallic          float32
	roughness         float32

	diffuse     [4]float32
	ambient     [4]float32
	specular    [4]float32
	emissive    [4]float32
	transparent [4]float32
	reflective  [4]float32
}

// NewMaterial creates a new Material configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - *Material: a new Material
func NewMaterial(options ...MaterialBuilderOption) *Material {
	m := &Material{
		textures:        make(map[TextureType]TextureRef),
		alphaCutoff:     0.5,
		opacity:         1,
		refractiveIndex: 1.5,
		metallic:        1,
		roughness:       1,
		diffuse:         [4]float32{1, 1, 1, 1},
		ambient:         [4]float32{0, 0, 0, 1},
		specular:        [4]float32{1, 1, 1, 1},
		emissive:        [4]float32{0, 0, 0, 1},
		transparent:     [4]float32{0, 0, 0, 1},
		reflective:      [4]float32{0, 0, 0, 1},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Material) Name() string {
	return m.name
}

// Texture returns the slot of the given type and whether it is set.
func (m *Material) Texture(t TextureType) (TextureRef, bool) {
	ref, ok := m.textures[t]
	return ref, ok
}

// TextureTypes returns the filled slots in slot order.
func (m *Material) TextureTypes() []TextureType {
	var out []TextureType
	for t := TextureAlbedo; t <= TextureUnknown; t++ {
		if _, ok := m.textures[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (m *Material) TwoSided() bool               { return m.twoSided }
func (m *Material) ShadingModel() ShadingModel   { return m.shadingModel }
func (m *Material) Wireframe() bool              { return m.wireframe }
func (m *Material) BlendMode() BlendMode         { return m.blendMode }
func (m *Material) AlphaCutoff() float32         { return m.alphaCutoff }
func (m *Material) Opacity() float32             { return m.opacity }
func (m *Material) Shininess() float32           { return m.shininess }
func (m *Material) ShininessStrength() float32   { return m.shininessStrength }
func (m *Material) Reflectivity() float32        { return m.reflectivity }
func (m *Material) RefractiveIndex() float32     { return m.refractiveIndex }
func (m *Material) Metallic() float32            { return m.metallic }
func (m *Material) Roughness() float32           { return m.roughness }
func (m *Material) DiffuseColor() [4]float32     { return m.diffuse }
func (m *Material) AmbientColor() [4]float32     { return m.ambient }
func (m *Material) SpecularColor() [4]float32    { return m.specular }
func (m *Material) EmissiveColor() [4]float32    { return m.emissive }
func (m *Material) TransparentColor() [4]float32 { return m.transparent }
func (m *Material) ReflectiveColor() [4]float32  { return m.reflective }

// Release destroys the GPU textures of every slot.
func (m *Material) Release() {
	for t, ref := range m.textures {
		if ref.Texture != nil {
			ref.Texture.Release()
			ref.Texture = nil
			m.textures[t] = ref
		}
	}
}
