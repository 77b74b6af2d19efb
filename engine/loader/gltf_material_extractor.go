package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/material"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"

	"go.uber.org/zap"
)

// DefaultMaterialName is the registry name of the material used by primitives without one.
const DefaultMaterialName = "DefaultMaterial"

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser    gltfParser
	registry  *material.Registry
	decoder   textureDecoder
	modelName string
	log       *zap.Logger
}

// gltfMaterialExtractor resolves glTF materials through a material registry.
type gltfMaterialExtractor interface {
	// Resolve returns the registered material for each index. Materials already in the
	// registry are reused as they are. Missing ones have their textures imported (and
	// uploaded when a decoder is set), are built and are then registered.
	//
	// Parameters:
	//   - indices: glTF material indices, -1 for the default material
	//
	// Returns:
	//   - map[int]*material.Material: the material for each index
	//   - error: error if a material index is invalid
	Resolve(indices []int) (map[int]*material.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - registry: the registry materials are deduplicated through
//   - decoder: uploads textures, or nil to keep only the imported sources
//   - modelName: prefix for the names of unnamed materials
//   - log: logger for skipped textures
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, registry *material.Registry, decoder textureDecoder, modelName string, log *zap.Logger) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		parser:    parser,
		registry:  registry,
		decoder:   decoder,
		modelName: modelName,
		log:       log,
	}
}

// textureSlot is one texture reference of a material before it is loaded.
type textureSlot struct {
	types    []material.TextureType
	source   *common.ImportedTexture
	texCoord int
}

// pendingMaterial is a material missing from the registry.
type pendingMaterial struct {
	index int
	name  string
	slots []textureSlot
}

func (e *gltfMaterialExtractorImpl) Resolve(indices []int) (map[int]*material.Material, error) {
	doc := e.parser.Document()
	resolved := make(map[int]*material.Material, len(indices))

	var pending []pendingMaterial
	for _, idx := range indices {
		if _, done := resolved[idx]; done || slices.ContainsFunc(pending, func(p pendingMaterial) bool { return p.index == idx }) {
			continue
		}
		if idx >= len(doc.Materials) || idx < -1 {
			return nil, fmt.Errorf("material index %d out of range", idx)
		}

		name := e.materialName(idx)
		if m, ok := e.registry.Find(name); ok {
			resolved[idx] = m
			continue
		}

		p := pendingMaterial{index: idx, name: name}
		if idx >= 0 {
			p.slots = e.textureSlots(&doc.Materials[idx])
		}
		pending = append(pending, p)
	}

	// every texture of every new material decodes in one parallel batch
	var sources []*common.ImportedTexture
	for _, p := range pending {
		for _, s := range p.slots {
			sources = append(sources, s.source)
		}
	}
	var uploaded []texture.Texture
	if e.decoder != nil && len(sources) > 0 {
		uploaded = e.decoder.DecodeAll(sources)
	}

	next := 0
	for _, p := range pending {
		refs := make(map[material.TextureType]material.TextureRef)
		var owned []texture.Texture
		for _, s := range p.slots {
			ref := material.TextureRef{Source: s.source, TexCoord: s.texCoord}
			if uploaded != nil {
				ref.Texture = uploaded[next]
				if ref.Texture != nil {
					owned = append(owned, ref.Texture)
				}
			}
			next++
			for _, t := range s.types {
				refs[t] = ref
			}
		}

		m, created, err := e.registry.GetOrCreate(p.name, func() (*material.Material, error) {
			return e.buildMaterial(p, refs), nil
		})
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", p.name, err)
		}
		if !created {
			// registered concurrently by another load
			for _, t := range owned {
				t.Release()
			}
		}
		resolved[p.index] = m
	}

	return resolved, nil
}

// materialName returns the registry key for a material index. Unnamed materials are
// scoped to the model so they never collide across files.
func (e *gltfMaterialExtractorImpl) materialName(idx int) string {
	if idx < 0 {
		return DefaultMaterialName
	}
	if name := e.parser.Document().Materials[idx].Name; name != "" {
		return name
	}
	return fmt.Sprintf("%s_material_%d", e.modelName, idx)
}

// textureSlots imports every texture a material references. The metallic-roughness
// texture fills both the metallic and the roughness slot.
func (e *gltfMaterialExtractorImpl) textureSlots(m *gltfMaterial) []textureSlot {
	type ref struct {
		info  *gltfTextureInfo
		types []material.TextureType
	}
	refs := []ref{
		{m.NormalTexture, []material.TextureType{material.TextureNormal}},
		{m.EmissiveTexture, []material.TextureType{material.TextureEmissive}},
		{m.OcclusionTexture, []material.TextureType{material.TextureAmbientOcclusion}},
	}
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		refs = append([]ref{
			{pbr.BaseColorTexture, []material.TextureType{material.TextureAlbedo}},
			{pbr.MetallicRoughnessTexture, []material.TextureType{material.TextureMetallic, material.TextureRoughness}},
		}, refs...)
	}

	var slots []textureSlot
	for _, r := range refs {
		if r.info == nil {
			continue
		}
		src, err := e.importTexture(r.info.Index)
		if err != nil {
			logFn := e.log.Warn
			if errors.Is(err, errMissingTextureFile) {
				logFn = e.log.Debug
			}
			logFn("skipping texture",
				zap.String("material", m.Name),
				zap.Stringer("slot", r.types[0]),
				zap.Error(err),
			)
			continue
		}
		slots = append(slots, textureSlot{types: r.types, source: src, texCoord: r.info.TexCoord})
	}
	return slots
}

var errMissingTextureFile = errors.New("texture file does not exist")

// importTexture resolves a texture index into an ImportedTexture. Embedded images carry
// their bytes, external ones their resolved path.
func (e *gltfMaterialExtractorImpl) importTexture(textureIndex int) (*common.ImportedTexture, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil || *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return nil, fmt.Errorf("texture %d has no valid image", textureIndex)
	}
	img := &doc.Images[*tex.Source]

	result := &common.ImportedTexture{
		Name:     img.Name,
		MimeType: img.MimeType,
	}
	if tex.Sampler != nil && *tex.Sampler >= 0 && *tex.Sampler < len(doc.Samplers) {
		result.Sampler = gltfSamplerToSamplerData(&doc.Samplers[*tex.Sampler])
	}

	switch {
	case img.BufferView != nil:
		data, err := e.parser.ReadBufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		result.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.Data = data
		result.MimeType = common.Coalesce(result.MimeType, mimeType)
	case img.URI != "":
		absPath := filepath.Join(e.parser.BaseDir(), filepath.FromSlash(img.URI))
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("%w: %s", errMissingTextureFile, absPath)
		}
		result.Path = absPath
		result.Name = common.Coalesce(result.Name, path.Base(img.URI))
	default:
		return nil, fmt.Errorf("image %d has no source", *tex.Source)
	}

	result.Name = common.Coalesce(result.Name, fmt.Sprintf("%s_image_%d", e.modelName, *tex.Source))
	return result, nil
}

// buildMaterial maps glTF material properties onto a Material.
func (e *gltfMaterialExtractorImpl) buildMaterial(p pendingMaterial, refs map[material.TextureType]material.TextureRef) *material.Material {
	opts := []material.MaterialBuilderOption{material.WithName(p.name)}
	for t, ref := range refs {
		opts = append(opts, material.WithTexture(t, ref))
	}
	if p.index < 0 {
		return material.NewMaterial(opts...)
	}

	m := &e.parser.Document().Materials[p.index]

	baseColor := [4]float32{1, 1, 1, 1}
	metallic, roughness := float32(1), float32(1)
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			baseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
	}

	emissive := [4]float32{0, 0, 0, 1}
	if m.EmissiveFactor != nil {
		emissive = [4]float32{m.EmissiveFactor[0], m.EmissiveFactor[1], m.EmissiveFactor[2], 1}
	}

	blend, cutoff := material.BlendOpaque, float32(0.5)
	switch m.AlphaMode {
	case gltfAlphaMask:
		blend = material.BlendMask
	case gltfAlphaBlend:
		blend = material.BlendAlpha
	case "", gltfAlphaOpaque:
	default:
		e.log.Warn("unknown alpha mode, using opaque", zap.String("material", p.name), zap.String("alphaMode", m.AlphaMode))
	}
	if m.AlphaCutoff != nil {
		cutoff = *m.AlphaCutoff
	}

	shading := material.ShadingPBRMetallicRoughness
	if _, ok := m.Extensions[gltfExtUnlit]; ok {
		shading = material.ShadingUnlit
	}

	ior := float32(1.5)
	var iorExt gltfMaterialIOR
	if e.extension(p.name, m, gltfExtIOR, &iorExt) && iorExt.IOR != nil {
		ior = *iorExt.IOR
	}

	specularFactor := float32(1)
	specular := [4]float32{1, 1, 1, 1}
	var specExt gltfMaterialSpecular
	if e.extension(p.name, m, gltfExtSpecular, &specExt) {
		if specExt.SpecularFactor != nil {
			specularFactor = *specExt.SpecularFactor
		}
		if c := specExt.SpecularColorFactor; c != nil {
			specular = [4]float32{c[0], c[1], c[2], 1}
		}
	}

	opacity := baseColor[3]
	transparent := [4]float32{0, 0, 0, 1}
	var transExt gltfMaterialTransmission
	if e.extension(p.name, m, gltfExtTransmission, &transExt) && transExt.TransmissionFactor != nil {
		t := min(max(*transExt.TransmissionFactor, 0), 1)
		transparent = [4]float32{baseColor[0] * t, baseColor[1] * t, baseColor[2] * t, 1}
		opacity *= 1 - t
	}

	// reflectance at normal incidence
	f0 := float32(0)
	if ior+1 != 0 {
		f0 = (ior - 1) / (ior + 1)
		f0 *= f0
	}
	reflectivity := f0 * specularFactor
	reflective := [4]float32{0, 0, 0, 1}
	for i := range 3 {
		dielectric := min(reflectivity*specular[i], 1)
		reflective[i] = dielectric*(1-metallic) + baseColor[i]*metallic
	}

	var extras gltfMaterialExtras
	ambient := [4]float32{0, 0, 0, 1}
	if len(m.Extras) > 0 && m.Extras[0] == '{' {
		if err := json.Unmarshal(m.Extras, &extras); err != nil {
			e.log.Warn("ignoring malformed material extras", zap.String("material", p.name), zap.Error(err))
		} else if c := extras.AmbientColor; c != nil {
			ambient = [4]float32{c[0], c[1], c[2], 1}
		}
	}

	opts = append(opts,
		material.WithTwoSided(m.DoubleSided),
		material.WithShadingModel(shading),
		material.WithWireframe(extras.Wireframe),
		material.WithBlendMode(blend, cutoff),
		material.WithOpacity(opacity),
		material.WithDiffuseColor(baseColor),
		material.WithAmbientColor(ambient),
		material.WithSpecularColor(specular),
		material.WithEmissiveColor(emissive),
		material.WithTransparentColor(transparent),
		material.WithReflectiveColor(reflective),
		material.WithMetallicRoughness(metallic, roughness),
		// glossiness as a Phong exponent for consumers without PBR
		material.WithShininess((1-roughness)*1000, specularFactor),
		material.WithReflectivity(reflectivity),
		material.WithRefractiveIndex(ior),
	)
	return material.NewMaterial(opts...)
}

// extension decodes a material extension into v. A malformed extension is logged and
// treated as absent.
func (e *gltfMaterialExtractorImpl) extension(name string, m *gltfMaterial, ext string, v any) bool {
	raw, ok := m.Extensions[ext]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		e.log.Warn("ignoring malformed material extension",
			zap.String("material", name),
			zap.String("extension", ext),
			zap.Error(err),
		)
		return false
	}
	return true
}

// gltfSamplerToSamplerData converts a glTF sampler into sampler parameters. Unset fields
// keep the glTF defaults of linear filtering and repeat wrapping.
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - *common.SamplerData: the converted sampler parameters
func gltfSamplerToSamplerData(s *gltfSampler) *common.SamplerData {
	result := common.DefaultSamplerData()

	if s.MagFilter != nil && *s.MagFilter == gltfFilterNearest {
		result.MagFilter = common.FilterNearest
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = common.FilterNearest
		}
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterLinear, gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest:
			result.MipmapFilter = common.FilterNearest
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}
	return &result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to an AddressMode.
func gltfWrapToAddressMode(wrap int) common.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return common.AddressClampToEdge
	case gltfWrapMirroredRepeat:
		return common.AddressMirrorRepeat
	default:
		return common.AddressRepeat
	}
}
