package gpu

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-gear/common"
)

// Family selects the layout rules a device expects for compute access.
type Family int

const (
	// FamilyGeneric uses General for storage access and ShaderReadOnly for sampled access.
	FamilyGeneric Family = iota
	// FamilyD3D12 uses UnorderedAccess for storage access and NonPixelShaderReadOnly for sampled compute access.
	FamilyD3D12
)

// ParseFamily maps a config string to a Family. Unknown strings map to FamilyGeneric.
func ParseFamily(s string) Family {
	switch strings.ToLower(s) {
	case "d3d12", "dx12":
		return FamilyD3D12
	default:
		return FamilyGeneric
	}
}

func (f Family) String() string {
	if f == FamilyD3D12 {
		return "d3d12"
	}
	return "generic"
}

// Stage is a bitmask of pipeline stages used as barrier synchronization scopes.
type Stage int

const (
	StageTopOfPipe Stage = 1 << iota
	StageTransfer
	StageComputeShader
	StageFragmentShader
	StageBottomOfPipe
	StageHost
	StageNone Stage = 0
)

// Access is a bitmask of memory access scopes.
type Access int

const (
	AccessShaderRead Access = 1 << iota
	AccessShaderWrite
	AccessTransferRead
	AccessTransferWrite
	AccessUniformRead
	AccessHostWrite
	AccessNone Access = 0
)

var accessNames = []string{"ShaderRead", "ShaderWrite", "TransferRead", "TransferWrite", "UniformRead", "HostWrite"}

func (a Access) String() string {
	if a == AccessNone {
		return "None"
	}
	var parts []string
	for i, name := range accessNames {
		if a&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Layout is an image layout.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	// LayoutUnorderedAccess is only meaningful on FamilyD3D12.
	LayoutUnorderedAccess
	// LayoutNonPixelShaderReadOnly is only meaningful on FamilyD3D12.
	LayoutNonPixelShaderReadOnly
)

var layoutNames = [...]string{"Undefined", "General", "ShaderReadOnly", "TransferSrc", "TransferDst", "UnorderedAccess", "NonPixelShaderReadOnly"}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Layout(?)"
}

// StorageLayout returns the layout an image must be in for read-write compute access.
func (f Family) StorageLayout() Layout {
	if f == FamilyD3D12 {
		return LayoutUnorderedAccess
	}
	return LayoutGeneral
}

// SampledLayout returns the layout an image must be in to be read by a compute shader.
func (f Family) SampledLayout() Layout {
	if f == FamilyD3D12 {
		return LayoutNonPixelShaderReadOnly
	}
	return LayoutShaderReadOnly
}

// ViewType is the dimensionality of an image view.
type ViewType int

const (
	ViewType2D ViewType = iota
	ViewType2DArray
	ViewTypeCube
)

// Format is a texel format.
type Format int

const (
	FormatRGBA8Unorm Format = iota
	FormatRGBA16Float
	FormatRGBA32Float
)

// BytesPerPixel returns the texel size of f.
func (f Format) BytesPerPixel() uint32 {
	switch f {
	case FormatRGBA16Float:
		return 8
	case FormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// ImageUsage is a bitmask of the ways an image may be used.
type ImageUsage int

const (
	UsageSampled ImageUsage = 1 << iota
	UsageStorage
	UsageTransferSrc
	UsageTransferDst
)

// SubresourceRange selects mip levels and array layers of an image.
type SubresourceRange struct {
	BaseLevel uint32
	Levels    uint32
	BaseLayer uint32
	Layers    uint32
}

// ImageDescriptor describes an image to create.
type ImageDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	// Levels is the mip chain length, at least 1.
	Levels uint32
	// Layers is the array layer count, 6 for cube maps.
	Layers uint32
	Format Format
	Usage  ImageUsage
}

// FullRange returns the range covering every level and layer of the image.
func (d ImageDescriptor) FullRange() SubresourceRange {
	return SubresourceRange{Levels: d.Levels, Layers: d.Layers}
}

// ViewDescriptor describes an image view.
type ViewDescriptor struct {
	Label string
	Type  ViewType
	Range SubresourceRange
}

// SamplerDescriptor describes a sampler.
type SamplerDescriptor struct {
	Label string
	common.SamplerData
	LodMaxClamp float32
}

// ImageBarrier orders access to, and transitions the layout of, an image subresource range.
type ImageBarrier struct {
	Image     Image
	SrcAccess Access
	DstAccess Access
	OldLayout Layout
	NewLayout Layout
	Range     SubresourceRange
}

// BufferBarrier orders access to a uniform buffer.
type BufferBarrier struct {
	Buffer    UniformBuffer
	SrcAccess Access
	DstAccess Access
}

// BindingKind classifies a shader resource binding.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingSampledTexture
	BindingStorageTexture
	BindingSampler
)

// StorageAccess is the access mode of a storage texture binding.
type StorageAccess int

const (
	StorageWriteOnly StorageAccess = iota
	StorageReadOnly
	StorageReadWrite
)

// BindingLayout describes one resource binding of a compute pipeline.
type BindingLayout struct {
	Binding uint32
	Kind    BindingKind
	// ViewType applies to texture bindings.
	ViewType ViewType
	// Format and Access apply to storage texture bindings.
	Format Format
	Access StorageAccess
	// MinSize applies to uniform bindings, zero when unknown.
	MinSize uint64
	// Name is the shader variable name, for diagnostics.
	Name string
}

// ComputePipelineDescriptor describes a compute pipeline built from WGSL source.
type ComputePipelineDescriptor struct {
	Label         string
	Source        string
	EntryPoint    string
	Bindings      []BindingLayout
	WorkgroupSize [3]uint32
}
