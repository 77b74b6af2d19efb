package material

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*Material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *Material) {
		m.name = name
	}
}

// WithTexture is an option builder that fills a texture slot.
//
// Parameters:
//   - t: the slot
//   - ref: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(t TextureType, ref TextureRef) MaterialBuilderOption {
	return func(m *Material) {
		m.textures[t] = ref
	}
}

// WithTwoSided is an option builder that disables back-face culling for the material.
//
// Parameters:
//   - twoSided: true to render both faces
//
// Returns:
//   - MaterialBuilderOption: a function that applies the two-sided option to a material
func WithTwoSided(twoSided bool) MaterialBuilderOption {
	return func(m *Material) {
		m.twoSided = twoSided
	}
}

// WithShadingModel is an option builder that sets the lighting model.
//
// Parameters:
//   - model: the shading model
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shading model option to a material
func WithShadingModel(model ShadingModel) MaterialBuilderOption {
	return func(m *Material) {
		m.shadingModel = model
	}
}

// WithWireframe is an option builder that renders the material as lines.
//
// Parameters:
//   - wireframe: true for wireframe rendering
//
// Returns:
//   - MaterialBuilderOption: a function that applies the wireframe option to a material
func WithWireframe(wireframe bool) MaterialBuilderOption {
	return func(m *Material) {
		m.wireframe = wireframe
	}
}

// WithBlendMode is an option builder that sets the alpha treatment and, for BlendMask,
// the cutoff.
//
// Parameters:
//   - mode: the blend mode
//   - cutoff: the alpha cutoff used by BlendMask
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend option to a material
func WithBlendMode(mode BlendMode, cutoff float32) MaterialBuilderOption {
	return func(m *Material) {
		m.blendMode = mode
		m.alphaCutoff = cutoff
	}
}

// WithOpacity is an option builder that sets the opacity.
//
// Parameters:
//   - opacity: 0 is fully transparent, 1 fully opaque
//
// Returns:
//   - MaterialBuilderOption: a function that applies the opacity option to a material
func WithOpacity(opacity float32) MaterialBuilderOption {
	return func(m *Material) {
		m.opacity = opacity
	}
}

// WithShininess is an option builder that sets the specular exponent and its strength.
//
// Parameters:
//   - shininess: the specular exponent
//   - strength: the specular strength
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shininess option to a material
func WithShininess(shininess, strength float32) MaterialBuilderOption {
	return func(m *Material) {
		m.shininess = shininess
		m.shininessStrength = strength
	}
}

// WithReflectivity is an option builder that sets the reflectivity.
//
// Parameters:
//   - reflectivity: the reflectivity factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the reflectivity option to a material
func WithReflectivity(reflectivity float32) MaterialBuilderOption {
	return func(m *Material) {
		m.reflectivity = reflectivity
	}
}

// WithRefractiveIndex is an option builder that sets the index of refraction.
//
// Parameters:
//   - ior: the index of refraction
//
// Returns:
//   - MaterialBuilderOption: a function that applies the refraction option to a material
func WithRefractiveIndex(ior float32) MaterialBuilderOption {
	return func(m *Material) {
		m.refractiveIndex = ior
	}
}

// WithMetallicRoughness is an option builder that sets the metallic and roughness factors.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the factors to a material
func WithMetallicRoughness(metallic, roughness float32) MaterialBuilderOption {
	return func(m *Material) {
		m.metallic = metallic
		m.roughness = roughness
	}
}

// WithDiffuseColor is an option builder that sets the diffuse RGBA color.
//
// Parameters:
//   - color: the color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the color to a material
func WithDiffuseColor(color [4]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.diffuse = color
	}
}

// WithAmbientColor is an option builder that sets the ambient RGBA color.
func WithAmbientColor(color [4]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.ambient = color
	}
}

// WithSpecularColor is an option builder that sets the specular RGBA color.
func WithSpecularColor(color [4]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.specular = color
	}
}

// WithEmissiveColor is an option builder that sets the emissive RGBA color.
func WithEmissiveColor(color [4]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.emissive = color
	}
}

// WithTransparentColor is an option builder that sets the transparent RGBA color.
func WithTransparentColor(color [4]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.transparent = color
	}
}

// WithReflectiveColor is an option builder that sets the reflective RGBA color.
func WithReflectiveColor(color [4]float32) MaterialBuilderOption {
	return func(m *Material) {
		m.reflective = color
	}
}
