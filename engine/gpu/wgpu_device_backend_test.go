package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const fillSource = `
struct Params {
	value: vec4<f32>,
};

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var dst: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
	let size = textureDimensions(dst);
	if (id.x >= size.x || id.y >= size.y) {
		return;
	}
	textureStore(dst, vec2<i32>(id.xy), params.value);
}
`

// newFallbackDevice creates a device on the software adapter, skipping the test when
// the machine has none.
func newFallbackDevice(t *testing.T) *wgpuDevice {
	t.Helper()
	if testing.Short() {
		t.Skip("needs a WebGPU adapter")
	}
	dev, err := NewDevice(BackendTypeWGPU,
		WithLabel(t.Name()),
		WithForceFallbackAdapter(true),
		WithLogger(zaptest.NewLogger(t)),
	)
	if err != nil {
		t.Skipf("no fallback adapter: %v", err)
	}
	t.Cleanup(dev.Release)
	return dev.(*wgpuDevice)
}

func vec4Bytes(v [4]float32) []byte {
	out := make([]byte, 0, 16)
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

// fillResources is a pipeline that stores a uniform color into a storage image.
type fillResources struct {
	image    Image
	view     ImageView
	uniform  UniformBuffer
	pipeline ComputePipeline
	set      DescriptorSet
}

func newFillResources(t *testing.T, dev *wgpuDevice) *fillResources {
	t.Helper()
	r := &fillResources{}

	var err error
	r.image, err = dev.CreateImage(ImageDescriptor{
		Label:  "fill target",
		Width:  16,
		Height: 16,
		Levels: 1,
		Layers: 1,
		Format: FormatRGBA16Float,
		Usage:  UsageStorage | UsageSampled,
	})
	require.NoError(t, err)
	t.Cleanup(r.image.Release)

	r.view, err = r.image.CreateView(ViewDescriptor{Label: "fill view", Type: ViewType2D, Range: r.image.Descriptor().FullRange()})
	require.NoError(t, err)
	t.Cleanup(r.view.Release)

	r.uniform, err = dev.CreateUniformBuffer("fill params", 16)
	require.NoError(t, err)
	t.Cleanup(r.uniform.Release)

	r.pipeline, err = dev.CreateComputePipeline(ComputePipelineDescriptor{
		Label:      "fill",
		Source:     fillSource,
		EntryPoint: "main",
		Bindings: []BindingLayout{
			{Binding: 0, Kind: BindingUniform, MinSize: 16, Name: "params"},
			{Binding: 1, Kind: BindingStorageTexture, ViewType: ViewType2D, Format: FormatRGBA16Float, Access: StorageWriteOnly, Name: "dst"},
		},
		WorkgroupSize: [3]uint32{8, 8, 1},
	})
	require.NoError(t, err)
	t.Cleanup(r.pipeline.Release)

	pool, err := dev.CreateDescriptorPool("fill sets", 1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	r.set, err = pool.Allocate(r.pipeline)
	require.NoError(t, err)
	r.set.BindUniform(0, r.uniform)
	r.set.BindImageView(1, r.view)
	require.NoError(t, r.set.Update())
	return r
}

func (r *fillResources) toGeneral(old Layout) []ImageBarrier {
	return []ImageBarrier{{
		Image:     r.image,
		SrcAccess: AccessShaderWrite,
		DstAccess: AccessShaderWrite,
		OldLayout: old,
		NewLayout: LayoutGeneral,
		Range:     r.image.Descriptor().FullRange(),
	}}
}

func TestWGPUSubmitSplitsRepeatedUploads(t *testing.T) {
	dev := newFallbackDevice(t)
	r := newFillResources(t, dev)

	pool, err := dev.CreateCommandPool("fill")
	require.NoError(t, err)
	defer pool.Release()
	cmd, err := pool.Allocate()
	require.NoError(t, err)

	require.NoError(t, cmd.Begin())
	cmd.PipelineBarrier(StageTopOfPipe, StageComputeShader, r.toGeneral(LayoutUndefined), nil)
	cmd.UpdateUniform(r.uniform, vec4Bytes([4]float32{1, 0, 0, 1}))
	cmd.BindPipeline(r.pipeline)
	cmd.BindDescriptorSet(r.set)
	cmd.Dispatch(2, 2, 1)
	cmd.PipelineBarrier(StageComputeShader, StageComputeShader, r.toGeneral(LayoutGeneral), nil)
	// the second upload needs its own submission, and the dispatch after it keeps the
	// pipeline and set bound above
	cmd.UpdateUniform(r.uniform, vec4Bytes([4]float32{0, 1, 0, 1}))
	cmd.Dispatch(2, 2, 1)
	require.NoError(t, cmd.End())

	fence, err := dev.CreateFence("fill")
	require.NoError(t, err)
	defer fence.Release()

	require.NoError(t, dev.Submit(cmd, fence))
	require.NoError(t, fence.Wait(10*time.Second))
	assert.True(t, fence.Signaled())
	assert.Equal(t, 2, dev.submits)
	assert.Equal(t, 2, dev.passes)

	// a submitted buffer must be re-recorded
	assert.ErrorIs(t, dev.Submit(cmd, nil), ErrNotEnded)
	require.NoError(t, dev.WaitIdle())
}

func TestWGPUBarriersSplitPasses(t *testing.T) {
	dev := newFallbackDevice(t)
	r := newFillResources(t, dev)

	pool, err := dev.CreateCommandPool("fill")
	require.NoError(t, err)
	cmd, err := pool.Allocate()
	require.NoError(t, err)

	require.NoError(t, cmd.Begin())
	cmd.PipelineBarrier(StageTopOfPipe, StageComputeShader, r.toGeneral(LayoutUndefined), nil)
	cmd.UpdateUniform(r.uniform, vec4Bytes([4]float32{0, 0, 1, 1}))
	cmd.BindPipeline(r.pipeline)
	cmd.BindDescriptorSet(r.set)
	cmd.Dispatch(1, 1, 1)
	cmd.Dispatch(1, 1, 1)
	cmd.PipelineBarrier(StageComputeShader, StageComputeShader, r.toGeneral(LayoutGeneral), nil)
	cmd.Dispatch(2, 2, 1)
	require.NoError(t, cmd.End())

	fence, err := dev.CreateFence("passes")
	require.NoError(t, err)
	require.NoError(t, dev.Submit(cmd, fence))
	require.NoError(t, fence.Wait(10*time.Second))

	assert.Equal(t, 1, dev.submits)
	assert.Equal(t, 2, dev.passes)
}

func TestWGPUDispatchWithoutPipeline(t *testing.T) {
	dev := newFallbackDevice(t)

	pool, err := dev.CreateCommandPool("empty")
	require.NoError(t, err)
	cmd, err := pool.Allocate()
	require.NoError(t, err)
	require.NoError(t, cmd.Begin())
	cmd.Dispatch(1, 1, 1)
	require.NoError(t, cmd.End())

	assert.Error(t, dev.Submit(cmd, nil))
	assert.Zero(t, dev.submits)
}

func TestWGPUFenceTimesOutWithoutSubmission(t *testing.T) {
	dev := newFallbackDevice(t)

	fence, err := dev.CreateFence("idle")
	require.NoError(t, err)
	err = fence.Wait(2 * time.Millisecond)

	var timeout *FenceTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "idle", timeout.Label)
	assert.False(t, fence.Signaled())
}

func TestWGPUWriteImage(t *testing.T) {
	dev := newFallbackDevice(t)

	img, err := dev.CreateImage(ImageDescriptor{
		Label:  "upload",
		Width:  4,
		Height: 4,
		Levels: 3,
		Layers: 2,
		Format: FormatRGBA8Unorm,
		Usage:  UsageSampled | UsageTransferDst,
	})
	require.NoError(t, err)
	defer img.Release()

	require.NoError(t, dev.WriteImage(img, 0, 1, make([]byte, 4*4*4), 4, 4))
	require.NoError(t, dev.WriteImage(img, 1, 0, make([]byte, 2*2*4), 2, 2))
	require.NoError(t, dev.WaitIdle())

	assert.Error(t, dev.WriteImage(img, 0, 0, make([]byte, 3), 4, 4))
	assert.ErrorIs(t, dev.WriteImage(img, 3, 0, make([]byte, 4), 1, 1), ErrInvalidBarrier)

	_, err = dev.CreateImage(ImageDescriptor{Label: "empty", Levels: 1, Layers: 1})
	assert.Error(t, err)
}
