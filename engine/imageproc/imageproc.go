// Package imageproc runs the compute passes that derive textures on the GPU: mip chains,
// cube map projection, and the image-based lighting precomputes.
package imageproc

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"
	"go.uber.org/zap"
)

// PipelineKind identifies one of the compute pipelines ImageProcessing owns.
type PipelineKind int

const (
	PipelineMipmap PipelineKind = iota
	PipelineMipmapArray
	PipelineEquirectangularToCube
	PipelineDiffuseIrradiance
	PipelineSpecularIrradiance
	PipelineSpecularBRDFLUT
)

var pipelineKindNames = [...]string{
	"mipmap",
	"mipmap_array",
	"equirectangular_to_cube",
	"diffuse_irradiance",
	"specular_irradiance",
	"specular_brdf_lut",
}

// AllPipelineKinds lists every kind in declaration order.
var AllPipelineKinds = []PipelineKind{
	PipelineMipmap,
	PipelineMipmapArray,
	PipelineEquirectangularToCube,
	PipelineDiffuseIrradiance,
	PipelineSpecularIrradiance,
	PipelineSpecularBRDFLUT,
}

func (k PipelineKind) String() string {
	if k >= 0 && int(k) < len(pipelineKindNames) {
		return pipelineKindNames[k]
	}
	return fmt.Sprintf("PipelineKind(%d)", int(k))
}

// tile is the number of texels one workgroup covers along x and y, 0 for unknown kinds.
func (k PipelineKind) tile() uint32 {
	switch k {
	case PipelineMipmap, PipelineMipmapArray:
		return 8
	case PipelineEquirectangularToCube, PipelineDiffuseIrradiance, PipelineSpecularIrradiance, PipelineSpecularBRDFLUT:
		return 32
	}
	return 0
}

// TextureResourceInfo is a texture plus the state the caller last left it in.
// Operations record barriers from this state into the compute state.
type TextureResourceInfo struct {
	Texture   texture.Texture
	SrcAccess gpu.Access
	OldLayout gpu.Layout
	SrcStage  gpu.Stage
}

// imageProcessing is the implementation of the ImageProcessing interface.
type imageProcessing struct {
	device       gpu.Device
	family       gpu.Family
	fenceTimeout time.Duration
	log          *zap.Logger

	assets      fs.FS
	pipelineDir string

	// opMu serializes operations, including recompilation.
	opMu sync.Mutex

	pipelinesMu sync.Mutex
	pipelines   map[PipelineKind]gpu.ComputePipeline
	sampler     gpu.Sampler
}

// ImageProcessing runs synchronous GPU compute passes over textures.
// Every operation blocks until its fence signals or the fence timeout elapses.
type ImageProcessing interface {
	// GenerateMipMaps fills levels 1..n of a texture from level 0.
	// It does nothing if the texture does not want mips or already has them.
	//
	// Parameters:
	//   - info: the texture and its current state
	//
	// Returns:
	//   - error: error if recording, submission or the fence wait fails
	GenerateMipMaps(info TextureResourceInfo) error

	// EquirectangularToCube projects a 2D panorama onto a 6-layer cube texture.
	//
	// Parameters:
	//   - equirect: the source panorama
	//   - cube: the destination, 6 layers of rgba16float
	//
	// Returns:
	//   - error: error if recording, submission or the fence wait fails
	EquirectangularToCube(equirect, cube TextureResourceInfo) error

	// DiffuseIrradiance convolves an environment cube into a diffuse irradiance cube.
	//
	// Parameters:
	//   - env: the environment cube
	//   - out: the destination, 6 layers of rgba16float
	//
	// Returns:
	//   - error: error if recording, submission or the fence wait fails
	DiffuseIrradiance(env, out TextureResourceInfo) error

	// SpecularIrradiance prefilters an environment cube into every mip level of out,
	// with roughness level/levels per level.
	//
	// Parameters:
	//   - env: the environment cube
	//   - out: the destination, 6 layers of rgba16float with one level per roughness step
	//
	// Returns:
	//   - error: error if recording, submission or the fence wait fails
	SpecularIrradiance(env, out TextureResourceInfo) error

	// SpecularBRDFLUT integrates the split-sum BRDF lookup table.
	//
	// Parameters:
	//   - lut: the destination, a single layer of rgba16float
	//
	// Returns:
	//   - error: error if recording, submission or the fence wait fails
	SpecularBRDFLUT(lut TextureResourceInfo) error

	// RecompileRenderPipelineShaders waits for the device to go idle and rebuilds every
	// pipeline from its description. On failure the previous pipelines stay in use.
	//
	// Returns:
	//   - error: error if any pipeline fails to build
	RecompileRenderPipelineShaders() error

	// WatchPipelines recompiles the pipelines whenever a file in the pipeline directory
	// changes, until ctx is done. It requires a pipeline directory.
	//
	// Parameters:
	//   - ctx: controls the lifetime of the watcher
	//
	// Returns:
	//   - error: error if no directory is configured or the watcher cannot start
	WatchPipelines(ctx context.Context) error

	// Release destroys the cached pipelines and sampler.
	Release()
}

var _ ImageProcessing = &imageProcessing{}

// NewImageProcessing creates an ImageProcessing on the given device. Pipelines are built
// lazily on first use.
//
// Parameters:
//   - device: the device to record and submit on
//   - options: variadic list of ImageProcessingBuilderOption functions
//
// Returns:
//   - ImageProcessing: the new instance
func NewImageProcessing(device gpu.Device, options ...ImageProcessingBuilderOption) ImageProcessing {
	if device == nil {
		panic("imageproc: nil device")
	}
	ip := &imageProcessing{
		device:    device,
		family:    device.Family(),
		pipelines: make(map[PipelineKind]gpu.ComputePipeline),
	}
	ip.defaults()
	for _, opt := range options {
		opt(ip)
	}
	return ip
}

func (ip *imageProcessing) Release() {
	ip.opMu.Lock()
	defer ip.opMu.Unlock()
	ip.pipelinesMu.Lock()
	defer ip.pipelinesMu.Unlock()

	for kind, p := range ip.pipelines {
		p.Release()
		delete(ip.pipelines, kind)
	}
	if ip.sampler != nil {
		ip.sampler.Release()
		ip.sampler = nil
	}
}
