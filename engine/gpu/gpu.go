// Package gpu is the graphics abstraction the engine records compute work against.
// It exposes explicit command buffers, barriers, descriptor sets and fences so that
// callers state resource transitions the way explicit APIs require, while backends
// that synchronize implicitly are free to validate and skip them.
package gpu

import (
	"fmt"
	"time"
)

// BackendType identifies the device implementation.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend.
	BackendTypeWGPU BackendType = iota
)

// Device creates GPU resources and executes recorded command buffers.
type Device interface {
	// Family reports the layout rules this device expects for compute access.
	//
	// Returns:
	//   - Family: the device family
	Family() Family

	// CreateImage allocates an image.
	//
	// Parameters:
	//   - desc: size, mip levels, layers, format and usage of the image
	//
	// Returns:
	//   - Image: the new image
	//   - error: error if the descriptor is invalid or allocation fails
	CreateImage(desc ImageDescriptor) (Image, error)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - desc: filtering and addressing parameters
	//
	// Returns:
	//   - Sampler: the new sampler
	//   - error: error if creation fails
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreateUniformBuffer allocates a uniform buffer whose contents are uploaded from a command buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: buffer size in bytes
	//
	// Returns:
	//   - UniformBuffer: the new buffer
	//   - error: error if allocation fails
	CreateUniformBuffer(label string, size uint64) (UniformBuffer, error)

	// CreateComputePipeline compiles a compute pipeline and its descriptor set layout.
	//
	// Parameters:
	//   - desc: the WGSL source, entry point and binding layout
	//
	// Returns:
	//   - ComputePipeline: the compiled pipeline
	//   - error: error if compilation fails
	CreateComputePipeline(desc ComputePipelineDescriptor) (ComputePipeline, error)

	// CreateCommandPool creates a pool that command buffers are allocated from.
	//
	// Parameters:
	//   - label: debug label
	//
	// Returns:
	//   - CommandPool: the new pool
	//   - error: error if creation fails
	CreateCommandPool(label string) (CommandPool, error)

	// CreateDescriptorPool creates a pool for at most maxSets descriptor sets.
	//
	// Parameters:
	//   - label: debug label
	//   - maxSets: the number of sets the pool can hand out
	//
	// Returns:
	//   - DescriptorPool: the new pool
	//   - error: error if creation fails
	CreateDescriptorPool(label string, maxSets int) (DescriptorPool, error)

	// CreateFence creates an unsignaled fence.
	//
	// Parameters:
	//   - label: debug label
	//
	// Returns:
	//   - Fence: the new fence
	//   - error: error if creation fails
	CreateFence(label string) (Fence, error)

	// WriteImage uploads tightly packed pixels into one level and layer of an image.
	//
	// Parameters:
	//   - img: destination image
	//   - level: destination mip level
	//   - layer: destination array layer
	//   - pixels: texel data matching the image format
	//   - width: width of the region in texels
	//   - height: height of the region in texels
	//
	// Returns:
	//   - error: error if the upload fails
	WriteImage(img Image, level, layer uint32, pixels []byte, width, height uint32) error

	// Submit executes an ended command buffer and signals fence on completion.
	//
	// Parameters:
	//   - cmd: the recorded command buffer
	//   - fence: fence to signal, or nil
	//
	// Returns:
	//   - error: error if the command buffer is not ended or submission fails
	Submit(cmd CommandBuffer, fence Fence) error

	// WaitIdle blocks until all submitted work has completed.
	//
	// Returns:
	//   - error: error if the device is lost
	WaitIdle() error

	// Release destroys the device. Resources created from it must be released first.
	Release()
}

// Image is a GPU image with mip levels and array layers.
type Image interface {
	// Descriptor returns the descriptor the image was created with.
	Descriptor() ImageDescriptor
	// CreateView creates a view over a subresource range of the image.
	CreateView(desc ViewDescriptor) (ImageView, error)
	Release()
}

// ImageView is a typed view over part of an Image.
type ImageView interface {
	Image() Image
	Descriptor() ViewDescriptor
	Release()
}

// Sampler is a texture sampler.
type Sampler interface {
	Release()
}

// UniformBuffer is a small buffer bound as a uniform.
type UniformBuffer interface {
	Size() uint64
	Release()
}

// ComputePipeline is a compiled compute pipeline.
type ComputePipeline interface {
	Descriptor() ComputePipelineDescriptor
	Release()
}

// CommandPool allocates command buffers.
type CommandPool interface {
	Allocate() (CommandBuffer, error)
	Release()
}

// CommandBuffer records compute work for a single submission.
type CommandBuffer interface {
	// Reset discards recorded commands.
	Reset()
	// Begin starts recording for a single submission.
	Begin() error
	// PipelineBarrier orders the given image and buffer accesses between two stage scopes.
	PipelineBarrier(src, dst Stage, images []ImageBarrier, buffers []BufferBarrier)
	BindPipeline(p ComputePipeline)
	BindDescriptorSet(set DescriptorSet)
	// UpdateUniform records an upload of data into buf, ordered with the rest of the buffer.
	UpdateUniform(buf UniformBuffer, data []byte)
	Dispatch(x, y, z uint32)
	// End finishes recording.
	End() error
}

// DescriptorPool allocates descriptor sets for a pipeline layout.
type DescriptorPool interface {
	Allocate(p ComputePipeline) (DescriptorSet, error)
	// Release frees the pool and every set allocated from it.
	Release()
}

// DescriptorSet binds resources to the bindings of a pipeline.
type DescriptorSet interface {
	BindImageView(binding uint32, view ImageView)
	BindSampler(binding uint32, s Sampler)
	BindUniform(binding uint32, buf UniformBuffer)
	// Update validates the bound resources against the pipeline layout and commits them.
	Update() error
}

// Fence is signaled by the device when a submission completes.
type Fence interface {
	// Wait blocks until the fence is signaled or timeout elapses.
	//
	// Parameters:
	//   - timeout: the maximum time to wait
	//
	// Returns:
	//   - error: *FenceTimeoutError if the timeout elapsed first
	Wait(timeout time.Duration) error
	Signaled() bool
	Reset()
	Release()
}

// NewDevice creates a Device for the given backend.
//
// Parameters:
//   - backendType: the device backend to use
//   - options: variadic list of DeviceBuilderOption functions
//
// Returns:
//   - Device: the created device
//   - error: error if no adapter or device could be acquired
func NewDevice(backendType BackendType, options ...DeviceBuilderOption) (Device, error) {
	cfg := &deviceConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	cfg.defaults()

	switch backendType {
	case BackendTypeWGPU:
		return newWGPUDevice(cfg)
	default:
		return nil, fmt.Errorf("gpu: unsupported backend type %d", backendType)
	}
}
