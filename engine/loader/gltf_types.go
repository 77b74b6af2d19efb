// gltf_types.go contains glTF 2.0 data structures for JSON deserialization.
// They map directly to the glTF 2.0 JSON schema and are internal to the loader package.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

import "encoding/json"

// --- glTF Root Structure ---

// gltfDocument represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type gltfDocument struct {
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene  *int        `json:"scene,omitempty"`
	Scenes []gltfScene `json:"scenes,omitempty"`
	Nodes  []gltfNode  `json:"nodes,omitempty"`
	Meshes []gltfMesh  `json:"meshes,omitempty"`

	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`

	Materials []gltfMaterial `json:"materials,omitempty"`
	Textures  []gltfTexture  `json:"textures,omitempty"`
	Images    []gltfImage    `json:"images,omitempty"`
	Samplers  []gltfSampler  `json:"samplers,omitempty"`

	Skins      []gltfSkin      `json:"skins,omitempty"`
	Animations []gltfAnimation `json:"animations,omitempty"`

	// ExtensionsUsed lists extensions used by this asset.
	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`

	// ExtensionsRequired lists extensions the asset cannot be loaded without.
	// An asset requiring an extension the loader does not know is incomplete.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// gltfAsset contains metadata about the glTF asset.
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.x").
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
}

// --- Scene Graph ---

// gltfScene is a set of root nodes.
type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is a node in the node hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`
	Mesh     *int   `json:"mesh,omitempty"`
	Skin     *int   `json:"skin,omitempty"`

	// Matrix is a column-major local transform. When present it replaces TRS.
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

// --- Mesh Data ---

// gltfMesh is a set of primitives to be rendered.
type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive defines geometry for rendering.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	// Attributes maps a semantic (POSITION, NORMAL, TANGENT, TEXCOORD_0, COLOR_0,
	// JOINTS_0, WEIGHTS_0) to an accessor index.
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`

	// Mode is the topology, TRIANGLES when absent.
	Mode *int `json:"mode,omitempty"`
}

// Primitive topology constants
const (
	gltfModePoints        = 0
	gltfModeLines         = 1
	gltfModeLineLoop      = 2
	gltfModeLineStrip     = 3
	gltfModeTriangles     = 4
	gltfModeTriangleStrip = 5
	gltfModeTriangleFan   = 6
)

// --- Buffer Data ---

// gltfAccessor defines how to interpret buffer data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type gltfAccessor struct {
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type"`

	// Sparse is only decoded far enough to reject it.
	Sparse *json.RawMessage `json:"sparse,omitempty"`
}

// ComponentType constants
const (
	gltfComponentByte          = 5120
	gltfComponentUnsignedByte  = 5121
	gltfComponentShort         = 5122
	gltfComponentUnsignedShort = 5123
	gltfComponentUnsignedInt   = 5125
	gltfComponentFloat         = 5126
)

// AccessorType constants
const (
	gltfTypeScalar = "SCALAR"
	gltfTypeVec2   = "VEC2"
	gltfTypeVec3   = "VEC3"
	gltfTypeVec4   = "VEC4"
	gltfTypeMat4   = "MAT4"
)

// gltfBufferView represents a subset of a buffer.
type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

// gltfBuffer represents binary data.
type gltfBuffer struct {
	// URI is a data: URI or a path relative to the asset.
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	// Data is populated during parsing.
	Data []byte `json:"-"`
}

// --- Materials and Textures ---

// gltfMaterial defines the appearance of a primitive.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type gltfMaterial struct {
	Name                 string                    `json:"name,omitempty"`
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *gltfTextureInfo          `json:"normalTexture,omitempty"`
	OcclusionTexture     *gltfTextureInfo          `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *gltfTextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32               `json:"emissiveFactor,omitempty"`

	// AlphaMode is "OPAQUE" (default), "MASK" or "BLEND".
	AlphaMode   string   `json:"alphaMode,omitempty"`
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"`
	DoubleSided bool     `json:"doubleSided,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
	Extras     json.RawMessage            `json:"extras,omitempty"`
}

// gltfMaterialExtras are the application properties read from a material's extras object.
type gltfMaterialExtras struct {
	Wireframe    bool        `json:"wireframe,omitempty"`
	AmbientColor *[3]float32 `json:"ambientColor,omitempty"`
}

// gltfMaterialIOR is KHR_materials_ior.
type gltfMaterialIOR struct {
	IOR *float32 `json:"ior,omitempty"`
}

// gltfMaterialSpecular is KHR_materials_specular. Its textures are ignored.
type gltfMaterialSpecular struct {
	SpecularFactor      *float32    `json:"specularFactor,omitempty"`
	SpecularColorFactor *[3]float32 `json:"specularColorFactor,omitempty"`
}

// gltfMaterialTransmission is KHR_materials_transmission. Its texture is ignored.
type gltfMaterialTransmission struct {
	TransmissionFactor *float32 `json:"transmissionFactor,omitempty"`
}

// gltfPbrMetallicRoughness is the metallic-roughness material model.
type gltfPbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32      `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *gltfTextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32         `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32         `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *gltfTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// gltfTextureInfo references a texture. Normal scale and occlusion strength are ignored.
type gltfTextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

// Alpha mode constants
const (
	gltfAlphaOpaque = "OPAQUE"
	gltfAlphaMask   = "MASK"
	gltfAlphaBlend  = "BLEND"
)

// Material extensions
const (
	gltfExtUnlit        = "KHR_materials_unlit"
	gltfExtIOR          = "KHR_materials_ior"
	gltfExtSpecular     = "KHR_materials_specular"
	gltfExtTransmission = "KHR_materials_transmission"
)

// supportedExtensions are the required extensions the loader can honor.
var supportedExtensions = map[string]bool{
	gltfExtUnlit:        true,
	gltfExtIOR:          true,
	gltfExtSpecular:     true,
	gltfExtTransmission: true,
}

// gltfTexture combines an image and a sampler.
type gltfTexture struct {
	Sampler *int `json:"sampler,omitempty"`
	Source  *int `json:"source,omitempty"`
}

// gltfImage is a texture image source.
type gltfImage struct {
	Name string `json:"name,omitempty"`

	// URI is a data: URI or a path relative to the asset.
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// gltfSampler defines texture sampling parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
type gltfSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

// Sampler filter constants
const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987
)

// Sampler wrap constants
const (
	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
	gltfWrapRepeat         = 10497
)

// --- Skins and Animation ---

// gltfSkin binds a mesh to a set of joint nodes.
type gltfSkin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Joints              []int  `json:"joints"`
}

// gltfAnimation defines keyframe animation.
type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

// gltfAnimChannel connects a sampler to a node property.
type gltfAnimChannel struct {
	Sampler int            `json:"sampler"`
	Target  gltfAnimTarget `json:"target"`
}

// gltfAnimTarget specifies the animated property.
type gltfAnimTarget struct {
	Node *int `json:"node,omitempty"`

	// Path is "translation", "rotation", "scale" or "weights".
	Path string `json:"path"`
}

// gltfAnimSampler holds the accessors for keyframe times and values.
type gltfAnimSampler struct {
	Input  int `json:"input"`
	Output int `json:"output"`

	// Interpolation is "LINEAR" (default), "STEP" or "CUBICSPLINE".
	Interpolation string `json:"interpolation,omitempty"`
}

const gltfInterpolationCubicSpline = "CUBICSPLINE"

// Animation path constants
const (
	gltfPathTranslation = "translation"
	gltfPathRotation    = "rotation"
	gltfPathScale       = "scale"
	gltfPathWeights     = "weights"
)

// --- GLB Binary Format ---

// gltfGLBHeader is the 12 byte header of a GLB file.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// gltfGLBChunkHeader is the 8 byte header of a GLB chunk.
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
