package imageproc

import (
	"context"
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTexture(t *testing.T, dev gpu.Device, opts ...texture.TextureBuilderOption) texture.Texture {
	t.Helper()
	tex, err := texture.NewTexture(dev, opts...)
	require.NoError(t, err)
	return tex
}

func newCube(t *testing.T, dev gpu.Device, label string, size, levels uint32) texture.Texture {
	t.Helper()
	return newTexture(t, dev,
		texture.WithLabel(label),
		texture.WithSize(size, size),
		texture.WithLayers(6),
		texture.WithFormat(gpu.FormatRGBA16Float),
		texture.WithMipLevels(levels),
		texture.WithStorage(),
	)
}

func TestEmbeddedPipelinesBuild(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev).(*imageProcessing)

	for _, kind := range AllPipelineKinds {
		p, err := ip.pipeline(kind)
		require.NoError(t, err, kind.String())
		assert.Equal(t, kind.String(), p.Descriptor().Label)
		assert.Equal(t, [3]uint32{8, 8, 1}, p.Descriptor().WorkgroupSize)
	}
	assert.Len(t, dev.Pipelines, len(AllPipelineKinds))

	// cached
	_, err := ip.pipeline(PipelineMipmap)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.PipelineCount("mipmap"))
}

func TestUnsupportedKindPanics(t *testing.T) {
	ip := NewImageProcessing(gputest.NewDevice(gpu.FamilyGeneric)).(*imageProcessing)
	assert.Panics(t, func() {
		_, _ = ip.pipeline(PipelineKind(42))
	})
	assert.Equal(t, "PipelineKind(42)", PipelineKind(42).String())
}

func TestNilTexturePanics(t *testing.T) {
	ip := NewImageProcessing(gputest.NewDevice(gpu.FamilyGeneric))
	assert.Panics(t, func() {
		_ = ip.GenerateMipMaps(TextureResourceInfo{})
	})
	assert.Panics(t, func() {
		_ = ip.SpecularBRDFLUT(TextureResourceInfo{})
	})
}

func TestLoadPipelineDescription(t *testing.T) {
	fsys := fstest.MapFS{
		"pipelines/mipmap.yaml":             {Data: []byte("shader: shaders/mip.wgsl\ntile: 8\n")},
		"pipelines/specular_brdf_lut.yaml":  {Data: []byte("name: lut\nshader: shaders/lut.wgsl\ntile: 8\n")},
		"pipelines/diffuse_irradiance.yaml": {Data: []byte("tile: 32\n")},
	}

	desc, err := LoadPipelineDescription(fsys, PipelineMipmap)
	require.NoError(t, err)
	assert.Equal(t, "mipmap", desc.Name)
	assert.Equal(t, "main", desc.EntryPoint)

	_, err = LoadPipelineDescription(fsys, PipelineSpecularBRDFLUT)
	assert.ErrorIs(t, err, ErrInvalidPipeline)

	_, err = LoadPipelineDescription(fsys, PipelineDiffuseIrradiance)
	assert.ErrorIs(t, err, ErrInvalidPipeline)

	_, err = LoadPipelineDescription(fsys, PipelineEquirectangularToCube)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGenerateMipMaps(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	tex := newTexture(t, dev, texture.WithLabel("albedo"), texture.WithSize(64, 32), texture.WithMipMaps(true))

	require.NoError(t, ip.GenerateMipMaps(TextureResourceInfo{
		Texture:   tex,
		SrcAccess: gpu.AccessTransferWrite,
		OldLayout: gpu.LayoutUndefined,
		SrcStage:  gpu.StageTransfer,
	}))

	assert.True(t, tex.MipMapsGenerated())
	assert.Equal(t, 1, dev.PipelineCount("mipmap"))
	require.Len(t, dev.Submissions, 1)
	assert.Equal(t, []time.Duration{DefaultFenceTimeout}, dev.FenceWaits)

	assert.Equal(t, [][3]uint32{
		{4, 2, 1},
		{2, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	}, dev.Dispatches())

	barriers := dev.Barriers()
	// initial, a pre and post per level, final
	require.Len(t, barriers, 1+2*6+1)
	first := barriers[0]
	assert.Equal(t, gpu.StageTransfer, first.Src)
	assert.Equal(t, gpu.AccessTransferWrite, first.Images[0].SrcAccess)
	assert.Equal(t, gpu.AccessShaderRead, first.Images[0].DstAccess)
	assert.Equal(t, gpu.LayoutGeneral, first.Images[0].NewLayout)
	assert.Equal(t, uint32(7), first.Images[0].Range.Levels)

	pre := barriers[1].Images[0]
	assert.Equal(t, gpu.AccessShaderRead|gpu.AccessShaderWrite, pre.DstAccess)
	assert.Equal(t, gpu.LayoutGeneral, pre.NewLayout)
	assert.Equal(t, uint32(1), pre.Range.BaseLevel)

	// transient resources are released after the wait
	img := dev.Images[0]
	for _, v := range img.Views {
		assert.True(t, v.Released)
	}

	require.NoError(t, ip.GenerateMipMaps(TextureResourceInfo{Texture: tex}))
	assert.Len(t, dev.Submissions, 1)
	assert.Len(t, dev.Dispatches(), 6)
}

func TestGenerateMipMapsSkipsUnwanted(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	tex := newTexture(t, dev, texture.WithSize(64, 64))

	require.NoError(t, ip.GenerateMipMaps(TextureResourceInfo{Texture: tex}))
	assert.Empty(t, dev.Submissions)
	assert.Empty(t, dev.Pipelines)
}

func TestGenerateMipMapsArray(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyD3D12)
	ip := NewImageProcessing(dev)
	tex := newTexture(t, dev, texture.WithSize(16, 16), texture.WithLayers(6), texture.WithMipMaps(true))

	require.NoError(t, ip.GenerateMipMaps(TextureResourceInfo{Texture: tex}))
	assert.Equal(t, 1, dev.PipelineCount("mipmap_array"))
	assert.Equal(t, [][3]uint32{{1, 1, 6}, {1, 1, 6}, {1, 1, 6}, {1, 1, 6}}, dev.Dispatches())

	pre := dev.Barriers()[1].Images[0]
	assert.Equal(t, gpu.LayoutUnorderedAccess, pre.NewLayout)
	assert.Equal(t, uint32(6), pre.Range.Layers)
}

func TestEquirectangularToCube(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	equirect := newTexture(t, dev, texture.WithLabel("sky"), texture.WithSize(512, 256))
	cube := newCube(t, dev, "sky cube", 128, 1)

	require.NoError(t, ip.EquirectangularToCube(
		TextureResourceInfo{Texture: equirect, OldLayout: gpu.LayoutUndefined},
		TextureResourceInfo{Texture: cube, OldLayout: gpu.LayoutUndefined},
	))
	assert.Equal(t, [][3]uint32{{4, 4, 6}}, dev.Dispatches())
	barriers := dev.Barriers()
	require.Len(t, barriers, 2)
	require.Len(t, barriers[0].Images, 2)
	assert.Equal(t, gpu.LayoutShaderReadOnly, barriers[0].Images[0].NewLayout)
	assert.Equal(t, gpu.AccessShaderWrite, barriers[0].Images[1].DstAccess)
	for _, b := range barriers[1].Images {
		assert.Equal(t, gpu.LayoutGeneral, b.NewLayout)
	}

	// layouts already match: only the final barrier is recorded
	dev2 := gputest.NewDevice(gpu.FamilyGeneric)
	ip2 := NewImageProcessing(dev2)
	equirect2 := newTexture(t, dev2, texture.WithSize(512, 256))
	cube2 := newCube(t, dev2, "cube", 128, 1)
	require.NoError(t, ip2.EquirectangularToCube(
		TextureResourceInfo{Texture: equirect2, OldLayout: gpu.LayoutShaderReadOnly},
		TextureResourceInfo{Texture: cube2, OldLayout: gpu.LayoutGeneral},
	))
	assert.Len(t, dev2.Barriers(), 1)
}

func TestEquirectangularToCubeRejectsFlatTarget(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	equirect := newTexture(t, dev, texture.WithSize(64, 32))
	flat := newTexture(t, dev, texture.WithSize(32, 32), texture.WithFormat(gpu.FormatRGBA16Float), texture.WithStorage())

	err := ip.EquirectangularToCube(TextureResourceInfo{Texture: equirect}, TextureResourceInfo{Texture: flat})
	assert.Error(t, err)
	assert.Empty(t, dev.Submissions)
}

func TestDiffuseIrradiance(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyD3D12)
	ip := NewImageProcessing(dev)
	env := newCube(t, dev, "env", 128, 1)
	out := newCube(t, dev, "irradiance", 32, 1)

	require.NoError(t, ip.DiffuseIrradiance(
		TextureResourceInfo{Texture: env, OldLayout: gpu.LayoutGeneral},
		TextureResourceInfo{Texture: out, OldLayout: gpu.LayoutGeneral},
	))
	assert.Equal(t, [][3]uint32{{1, 1, 6}}, dev.Dispatches())

	barriers := dev.Barriers()
	require.Len(t, barriers, 2)
	assert.Equal(t, gpu.LayoutNonPixelShaderReadOnly, barriers[0].Images[0].NewLayout)
	assert.Equal(t, gpu.LayoutUnorderedAccess, barriers[0].Images[1].NewLayout)

	set := dev.Submissions[0].Commands[2]
	require.Equal(t, gputest.CmdBindSet, set.Kind)
	assert.Equal(t, gpu.ViewTypeCube, set.Set.Views[0].Descriptor().Type)
	assert.Contains(t, set.Set.Samplers, uint32(2))
}

func TestSpecularIrradianceRoughness(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	env := newCube(t, dev, "env", 256, 1)
	out := newCube(t, dev, "prefiltered", 128, 4)

	require.NoError(t, ip.SpecularIrradiance(
		TextureResourceInfo{Texture: env},
		TextureResourceInfo{Texture: out},
	))

	var roughness []float32
	for _, u := range dev.Uploads() {
		require.Len(t, u.Data, 16)
		roughness = append(roughness, math.Float32frombits(binary.LittleEndian.Uint32(u.Data[:4])))
	}
	assert.Equal(t, []float32{0, 0.25, 0.5, 0.75}, roughness)
	assert.Equal(t, [][3]uint32{{4, 4, 6}, {2, 2, 6}, {1, 1, 6}, {1, 1, 6}}, dev.Dispatches())

	// generic family: no buffer barriers
	for _, b := range dev.Barriers() {
		assert.Empty(t, b.Buffers)
	}
}

func TestSpecularIrradianceD3D12BufferBarriers(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyD3D12)
	ip := NewImageProcessing(dev)
	env := newCube(t, dev, "env", 64, 1)
	out := newCube(t, dev, "prefiltered", 64, 3)

	require.NoError(t, ip.SpecularIrradiance(TextureResourceInfo{Texture: env}, TextureResourceInfo{Texture: out}))

	var bufferBarriers []gpu.BufferBarrier
	cmds := dev.Commands()
	for i, c := range cmds {
		if c.Kind != gputest.CmdBarrier || len(c.Buffers) == 0 {
			continue
		}
		require.Greater(t, i, 0)
		assert.Equal(t, gputest.CmdUpload, cmds[i-1].Kind, "buffer barrier follows its upload")
		assert.Equal(t, gpu.StageTransfer, c.Src)
		bufferBarriers = append(bufferBarriers, c.Buffers...)
	}
	require.Len(t, bufferBarriers, 3)
	for _, b := range bufferBarriers {
		assert.Equal(t, gpu.AccessTransferRead, b.SrcAccess)
		assert.Equal(t, gpu.AccessUniformRead, b.DstAccess)
	}
}

func TestSpecularBRDFLUT(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	lut := newTexture(t, dev, texture.WithSize(512, 512), texture.WithFormat(gpu.FormatRGBA16Float), texture.WithStorage())

	require.NoError(t, ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut}))
	assert.Equal(t, [][3]uint32{{16, 16, 1}}, dev.Dispatches())
	assert.Len(t, dev.Barriers(), 2)
}

func TestFenceTimeout(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	dev.HangFences = true
	ip := NewImageProcessing(dev, WithFenceTimeout(5*time.Millisecond))
	lut := newTexture(t, dev, texture.WithSize(64, 64), texture.WithFormat(gpu.FormatRGBA16Float), texture.WithStorage())

	err := ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpu.ErrFenceTimeout))

	var timeout *gpu.FenceTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 5*time.Millisecond, timeout.Timeout)
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, dev.FenceWaits)
}

func TestRecompileRenderPipelineShaders(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	ip := NewImageProcessing(dev)
	lut := newTexture(t, dev, texture.WithSize(64, 64), texture.WithFormat(gpu.FormatRGBA16Float), texture.WithStorage())
	require.NoError(t, ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut}))
	old := dev.Pipelines[0]

	require.NoError(t, ip.RecompileRenderPipelineShaders())
	assert.Equal(t, 1, dev.IdleCalls())
	assert.Equal(t, 2, dev.PipelineCount("specular_brdf_lut"))
	for _, kind := range AllPipelineKinds[:len(AllPipelineKinds)-1] {
		assert.Equal(t, 1, dev.PipelineCount(kind.String()), kind.String())
	}
	assert.True(t, old.Released)

	require.NoError(t, ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut}))
	assert.Equal(t, 2, dev.PipelineCount("specular_brdf_lut"))
}

func TestRecompileKeepsPipelinesOnFailure(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	broken := fstest.MapFS{}
	ip := NewImageProcessing(dev)
	lut := newTexture(t, dev, texture.WithSize(64, 64), texture.WithFormat(gpu.FormatRGBA16Float), texture.WithStorage())
	require.NoError(t, ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut}))

	ip.(*imageProcessing).assets = broken
	assert.Error(t, ip.RecompileRenderPipelineShaders())
	assert.False(t, dev.Pipelines[0].Released)
	require.NoError(t, ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut}))
}

func TestPipelineBuildError(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	dev.PipelineErr = errors.New("device lost")
	ip := NewImageProcessing(dev)
	lut := newTexture(t, dev, texture.WithSize(64, 64), texture.WithFormat(gpu.FormatRGBA16Float), texture.WithStorage())

	err := ip.SpecularBRDFLUT(TextureResourceInfo{Texture: lut})
	assert.ErrorContains(t, err, "device lost")
	assert.Empty(t, dev.Submissions)
}

func copyAssets(t *testing.T, dir string) {
	t.Helper()
	src := embeddedAssets()
	err := fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
}

func TestWatchPipelines(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	assert.ErrorIs(t, NewImageProcessing(dev).WatchPipelines(context.Background()), errNoPipelineDir)

	dir := t.TempDir()
	copyAssets(t, dir)
	ip := NewImageProcessing(dev, WithPipelineDir(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ip.WatchPipelines(ctx))

	shaderPath := filepath.Join(dir, "shaders", "specular_brdf_lut.wgsl")
	data, err := os.ReadFile(shaderPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(shaderPath, append(data, '\n'), 0o644))

	assert.Eventually(t, func() bool {
		return dev.IdleCalls() >= 1 && dev.PipelineCount("specular_brdf_lut") >= 1
	}, 5*time.Second, 20*time.Millisecond)
}
