package shader

import (
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefilterSource = `
struct Params {
    roughness: f32,
    tint: vec3<f32>,
}

/* environment /* nested */ input */
@group(0) @binding(0) var env: texture_cube<f32>;
@group(0) @binding(3) var env_sampler: sampler;
@group(0) @binding(1) var out_faces: texture_storage_2d_array<rgba16float, write>;
@group(0) @binding(2) var<uniform> params: Params;
// @group(1) @binding(0) var ignored: sampler;

@compute @workgroup_size(8, 8)
fn prefilter(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

func TestNewShaderReflectsBindings(t *testing.T) {
	s, err := NewShader("prefilter.wgsl", prefilterSource)
	require.NoError(t, err)

	assert.Equal(t, "prefilter", s.EntryPoint())
	assert.Equal(t, [3]uint32{8, 8, 1}, s.WorkgroupSize())

	b := s.Bindings()
	require.Len(t, b, 4)

	assert.Equal(t, gpu.BindingLayout{Binding: 0, Kind: gpu.BindingSampledTexture, ViewType: gpu.ViewTypeCube, Name: "env"}, b[0])
	assert.Equal(t, gpu.BindingLayout{
		Binding:  1,
		Kind:     gpu.BindingStorageTexture,
		ViewType: gpu.ViewType2DArray,
		Format:   gpu.FormatRGBA16Float,
		Access:   gpu.StorageWriteOnly,
		Name:     "out_faces",
	}, b[1])
	assert.Equal(t, gpu.BindingUniform, b[2].Kind)
	assert.Equal(t, uint64(32), b[2].MinSize)
	assert.Equal(t, gpu.BindingSampler, b[3].Kind)
	assert.Equal(t, "env_sampler", b[3].Name)
}

func TestPipelineDescriptor(t *testing.T) {
	s, err := NewShader("prefilter.wgsl", prefilterSource)
	require.NoError(t, err)

	desc := s.PipelineDescriptor("specular_irradiance")
	assert.Equal(t, "specular_irradiance", desc.Label)
	assert.Equal(t, "prefilter", desc.EntryPoint)
	assert.Equal(t, prefilterSource, desc.Source)
	assert.Len(t, desc.Bindings, 4)

	// callers get a copy
	desc.Bindings[0].Name = "changed"
	assert.Equal(t, "env", s.Bindings()[0].Name)
}

func TestNewShaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "no compute entry",
			source: "@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }",
		},
		{
			name: "second group",
			source: `@group(1) @binding(0) var s: sampler;
@compute @workgroup_size(1) fn main() {}`,
		},
		{
			name: "duplicate binding",
			source: `@group(0) @binding(0) var a: sampler;
@group(0) @binding(0) var b: sampler;
@compute @workgroup_size(1) fn main() {}`,
		},
		{
			name: "storage buffer",
			source: `@group(0) @binding(0) var<storage, read> data: array<f32>;
@compute @workgroup_size(1) fn main() {}`,
		},
		{
			name: "integer texture",
			source: `@group(0) @binding(0) var t: texture_2d<u32>;
@compute @workgroup_size(1) fn main() {}`,
		},
		{
			name: "unknown texel format",
			source: `@group(0) @binding(0) var t: texture_storage_2d<r32uint, write>;
@compute @workgroup_size(1) fn main() {}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader(tt.name, tt.source)
			assert.Error(t, err)
		})
	}
}

func TestParseWorkgroupSize(t *testing.T) {
	assert.Equal(t, [3]uint32{64, 1, 1}, parseWorkgroupSize("@compute @workgroup_size(64) fn main() {}"))
	assert.Equal(t, [3]uint32{8, 8, 1}, parseWorkgroupSize("@compute @workgroup_size( 8 , 8 ) fn main() {}"))
	assert.Equal(t, [3]uint32{4, 4, 4}, parseWorkgroupSize("@compute @workgroup_size(4, 4, 4) fn main() {}"))
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("fn helper() {}"))
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* c */ d */ e // f\ng"
	assert.Equal(t, "a  e \ng\n", stripComments(src))
}

func TestStructSizes(t *testing.T) {
	structs := parseStructBlocks(`
struct Outer { inner: Inner, scale: f32, }
struct Inner { color: vec4<f32>, weights: array<f32, 3>, }
`)
	sizes := computeStructSizes(structs)
	// vec4 (16) + 3 * 16-byte stride
	assert.Equal(t, uint64(64), sizes["Inner"].size)
	// 64 + f32 rounded up to 16
	assert.Equal(t, uint64(80), sizes["Outer"].size)
}

func TestLoadShader(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/prefilter.wgsl": &fstest.MapFile{Data: []byte(prefilterSource)},
	}
	s, err := LoadShader(fsys, "shaders/prefilter.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "shaders/prefilter.wgsl", s.Key())

	_, err = LoadShader(fsys, "shaders/missing.wgsl")
	assert.Error(t, err)
}
