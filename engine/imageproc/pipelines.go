package imageproc

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/shader"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed assets
var assetFS embed.FS

// ErrInvalidPipeline is returned when a pipeline description does not match the pass it drives.
var ErrInvalidPipeline = errors.New("imageproc: invalid pipeline description")

// PipelineDescription is the YAML file that names the shader behind a pipeline.
type PipelineDescription struct {
	Name       string `yaml:"name"`
	Shader     string `yaml:"shader"`
	EntryPoint string `yaml:"entry_point"`
	Tile       uint32 `yaml:"tile"`
}

func embeddedAssets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(fmt.Sprintf("imageproc: embedded assets: %v", err))
	}
	return sub
}

// LoadPipelineDescription reads pipelines/<kind>.yaml from fsys.
//
// Parameters:
//   - fsys: the asset file system
//   - kind: the pipeline to describe
//
// Returns:
//   - PipelineDescription: the parsed description
//   - error: error if the file is missing, malformed or disagrees with the pass
func LoadPipelineDescription(fsys fs.FS, kind PipelineKind) (PipelineDescription, error) {
	var desc PipelineDescription
	file := path.Join("pipelines", kind.String()+".yaml")
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return desc, fmt.Errorf("failed to read pipeline %s: %w", file, err)
	}
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("failed to parse pipeline %s: %w", file, err)
	}

	desc.Name = common.Coalesce(desc.Name, kind.String())
	desc.EntryPoint = common.Coalesce(desc.EntryPoint, "main")
	if desc.Shader == "" {
		return desc, fmt.Errorf("%w: %s has no shader", ErrInvalidPipeline, file)
	}
	if desc.Tile != kind.tile() {
		return desc, fmt.Errorf("%w: %s declares tile %d, %s dispatches with %d", ErrInvalidPipeline, file, desc.Tile, kind, kind.tile())
	}
	return desc, nil
}

// buildPipeline compiles one pipeline from its description and shader.
func (ip *imageProcessing) buildPipeline(kind PipelineKind) (gpu.ComputePipeline, error) {
	desc, err := LoadPipelineDescription(ip.assets, kind)
	if err != nil {
		return nil, err
	}
	sh, err := shader.LoadShader(ip.assets, desc.Shader)
	if err != nil {
		return nil, err
	}
	if sh.EntryPoint() != desc.EntryPoint {
		return nil, fmt.Errorf("%w: %s expects entry point %q, shader has %q", ErrInvalidPipeline, desc.Name, desc.EntryPoint, sh.EntryPoint())
	}

	p, err := ip.device.CreateComputePipeline(sh.PipelineDescriptor(desc.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline %s: %w", desc.Name, err)
	}
	ip.log.Debug("pipeline built", zap.String("pipeline", desc.Name), zap.String("shader", desc.Shader))
	return p, nil
}

// pipeline returns the cached pipeline for kind, building it on first use.
func (ip *imageProcessing) pipeline(kind PipelineKind) (gpu.ComputePipeline, error) {
	if kind.tile() == 0 {
		panic(fmt.Sprintf("imageproc: unsupported pipeline kind %d", int(kind)))
	}

	ip.pipelinesMu.Lock()
	defer ip.pipelinesMu.Unlock()

	if p, ok := ip.pipelines[kind]; ok {
		return p, nil
	}
	p, err := ip.buildPipeline(kind)
	if err != nil {
		return nil, err
	}
	ip.pipelines[kind] = p
	return p, nil
}

// linearSampler returns the clamp-to-edge linear sampler the lighting passes read through.
func (ip *imageProcessing) linearSampler() (gpu.Sampler, error) {
	ip.pipelinesMu.Lock()
	defer ip.pipelinesMu.Unlock()

	if ip.sampler != nil {
		return ip.sampler, nil
	}
	s, err := ip.device.CreateSampler(gpu.SamplerDescriptor{
		Label: "imageproc linear clamp",
		SamplerData: common.SamplerData{
			AddressModeU: common.AddressClampToEdge,
			AddressModeV: common.AddressClampToEdge,
			AddressModeW: common.AddressClampToEdge,
			MagFilter:    common.FilterLinear,
			MinFilter:    common.FilterLinear,
			MipmapFilter: common.FilterLinear,
		},
		LodMaxClamp: 32,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	ip.sampler = s
	return s, nil
}

func (ip *imageProcessing) RecompileRenderPipelineShaders() error {
	ip.opMu.Lock()
	defer ip.opMu.Unlock()

	if err := ip.device.WaitIdle(); err != nil {
		return fmt.Errorf("failed to wait for device idle: %w", err)
	}

	rebuilt := make(map[PipelineKind]gpu.ComputePipeline, len(AllPipelineKinds))
	for _, kind := range AllPipelineKinds {
		p, err := ip.buildPipeline(kind)
		if err != nil {
			for _, built := range rebuilt {
				built.Release()
			}
			ip.log.Warn("pipeline recompile failed", zap.Stringer("pipeline", kind), zap.Error(err))
			return err
		}
		rebuilt[kind] = p
	}

	ip.pipelinesMu.Lock()
	old := ip.pipelines
	ip.pipelines = rebuilt
	ip.pipelinesMu.Unlock()

	for _, p := range old {
		p.Release()
	}
	ip.log.Info("pipelines recompiled", zap.Int("count", len(rebuilt)))
	return nil
}
