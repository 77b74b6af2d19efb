package gpu_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	assert.Equal(t, gpu.FamilyD3D12, gpu.ParseFamily("D3D12"))
	assert.Equal(t, gpu.FamilyGeneric, gpu.ParseFamily("vulkan"))
	assert.Equal(t, gpu.LayoutUnorderedAccess, gpu.FamilyD3D12.StorageLayout())
	assert.Equal(t, gpu.LayoutGeneral, gpu.FamilyGeneric.StorageLayout())
	assert.Equal(t, gpu.LayoutNonPixelShaderReadOnly, gpu.FamilyD3D12.SampledLayout())
	assert.Equal(t, gpu.LayoutShaderReadOnly, gpu.FamilyGeneric.SampledLayout())
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "None", gpu.AccessNone.String())
	assert.Equal(t, "ShaderRead|ShaderWrite", (gpu.AccessShaderRead | gpu.AccessShaderWrite).String())
	assert.Equal(t, "NonPixelShaderReadOnly", gpu.LayoutNonPixelShaderReadOnly.String())
}

func TestFenceTimeoutErrorUnwraps(t *testing.T) {
	var err error = &gpu.FenceTimeoutError{Label: "mipmap", Timeout: time.Second}

	assert.True(t, errors.Is(err, gpu.ErrFenceTimeout))
	var fte *gpu.FenceTimeoutError
	require.True(t, errors.As(err, &fte))
	assert.Equal(t, "mipmap", fte.Label)
	assert.Contains(t, err.Error(), "1s")
}

func TestValidateRange(t *testing.T) {
	desc := gpu.ImageDescriptor{Label: "cube", Width: 4, Height: 4, Levels: 3, Layers: 6}

	assert.NoError(t, gpu.ValidateRange(desc, desc.FullRange()))
	assert.NoError(t, gpu.ValidateRange(desc, gpu.SubresourceRange{BaseLevel: 2, Levels: 1, Layers: 6}))
	assert.ErrorIs(t, gpu.ValidateRange(desc, gpu.SubresourceRange{BaseLevel: 2, Levels: 2, Layers: 6}), gpu.ErrInvalidBarrier)
	assert.ErrorIs(t, gpu.ValidateRange(desc, gpu.SubresourceRange{Levels: 1, BaseLayer: 5, Layers: 2}), gpu.ErrInvalidBarrier)
	assert.ErrorIs(t, gpu.ValidateRange(desc, gpu.SubresourceRange{}), gpu.ErrInvalidBarrier)
}

func TestValidateView(t *testing.T) {
	desc := gpu.ImageDescriptor{Label: "env", Width: 4, Height: 4, Levels: 1, Layers: 6}

	assert.NoError(t, gpu.ValidateView(desc, gpu.ViewDescriptor{Type: gpu.ViewTypeCube, Range: desc.FullRange()}))
	assert.Error(t, gpu.ValidateView(desc, gpu.ViewDescriptor{Type: gpu.ViewType2D, Range: desc.FullRange()}))
	assert.Error(t, gpu.ValidateView(desc, gpu.ViewDescriptor{Type: gpu.ViewTypeCube, Range: gpu.SubresourceRange{Levels: 1, Layers: 1}}))
}

func TestValidateImageBarrier(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	img, err := dev.CreateImage(gpu.ImageDescriptor{Label: "a", Width: 2, Height: 2, Levels: 1, Layers: 1})
	require.NoError(t, err)

	ok := gpu.ImageBarrier{Image: img, NewLayout: gpu.LayoutGeneral, Range: img.Descriptor().FullRange()}
	assert.NoError(t, gpu.ValidateImageBarrier(ok))

	noImage := ok
	noImage.Image = nil
	assert.ErrorIs(t, gpu.ValidateImageBarrier(noImage), gpu.ErrInvalidBarrier)

	undefined := ok
	undefined.NewLayout = gpu.LayoutUndefined
	assert.ErrorIs(t, gpu.ValidateImageBarrier(undefined), gpu.ErrInvalidBarrier)
}

func TestValidateBindings(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	img, err := dev.CreateImage(gpu.ImageDescriptor{Label: "out", Width: 2, Height: 2, Levels: 1, Layers: 1, Format: gpu.FormatRGBA16Float})
	require.NoError(t, err)
	view, err := img.CreateView(gpu.ViewDescriptor{Type: gpu.ViewType2D, Range: img.Descriptor().FullRange()})
	require.NoError(t, err)

	layouts := []gpu.BindingLayout{
		{Binding: 0, Kind: gpu.BindingStorageTexture, ViewType: gpu.ViewType2D, Format: gpu.FormatRGBA16Float, Name: "lut"},
	}
	views := map[uint32]gpu.ImageView{0: view}

	assert.NoError(t, gpu.ValidateBindings(layouts, views, nil, nil))
	assert.ErrorIs(t, gpu.ValidateBindings(layouts, nil, nil, nil), gpu.ErrInvalidBinding)

	layouts[0].Format = gpu.FormatRGBA8Unorm
	assert.ErrorIs(t, gpu.ValidateBindings(layouts, views, nil, nil), gpu.ErrInvalidBinding)
}

func TestRecordingDeviceSubmitAndFence(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	pool, err := dev.CreateCommandPool("test")
	require.NoError(t, err)
	cmd, err := pool.Allocate()
	require.NoError(t, err)
	fence, err := dev.CreateFence("test")
	require.NoError(t, err)

	// submitting before End is rejected
	require.NoError(t, cmd.Begin())
	assert.ErrorIs(t, dev.Submit(cmd, fence), gpu.ErrNotEnded)

	cmd.Dispatch(1, 2, 3)
	require.NoError(t, cmd.End())
	require.NoError(t, dev.Submit(cmd, fence))
	require.NoError(t, fence.Wait(time.Second))
	assert.Equal(t, [][3]uint32{{1, 2, 3}}, dev.Dispatches())

	dev.HangFences = true
	fence.Reset()
	require.NoError(t, cmd.Begin())
	require.NoError(t, cmd.End())
	require.NoError(t, dev.Submit(cmd, fence))
	err = fence.Wait(5 * time.Millisecond)
	assert.ErrorIs(t, err, gpu.ErrFenceTimeout)
}

func TestDescriptorPoolExhaustion(t *testing.T) {
	dev := gputest.NewDevice(gpu.FamilyGeneric)
	p, err := dev.CreateComputePipeline(gpu.ComputePipelineDescriptor{Label: "p"})
	require.NoError(t, err)
	pool, err := dev.CreateDescriptorPool("sets", 1)
	require.NoError(t, err)

	_, err = pool.Allocate(p)
	require.NoError(t, err)
	_, err = pool.Allocate(p)
	assert.ErrorIs(t, err, gpu.ErrPoolExhausted)
}
