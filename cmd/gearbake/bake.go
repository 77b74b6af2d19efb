package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/animator"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/imageproc"
	"github.com/Carmen-Shannon/oxy-gear/engine/loader"
	"github.com/Carmen-Shannon/oxy-gear/engine/model"
	"github.com/Carmen-Shannon/oxy-gear/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"
	"github.com/Carmen-Shannon/oxy-gear/internal/config"
	"github.com/Carmen-Shannon/oxy-gear/internal/logger"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const (
	// irradianceSize is the face size of the diffuse irradiance cube.
	irradianceSize = 32

	// frameStep is the simulated frame time when sampling animations.
	frameStep = time.Second / 60

	envSteps = 4
)

// modelReport summarizes an imported model and its animation playback.
type modelReport struct {
	Name       string
	Nodes      int
	Meshes     int
	Animations int
	Frames     int
	// Updates is the number of node updates applied across all frames.
	Updates int
}

// environment holds the baked image-based lighting textures.
type environment struct {
	Cube       texture.Texture
	Irradiance texture.Texture
	Specular   texture.Texture
	BRDF       texture.Texture
}

func (e *environment) Release() {
	for _, t := range []texture.Texture{e.Cube, e.Irradiance, e.Specular, e.BRDF} {
		if t != nil {
			t.Release()
		}
	}
}

// baker runs the gearbake steps against one device.
type baker struct {
	cfg    *config.Config
	device gpu.Device
	ip     imageproc.ImageProcessing
	loader loader.Loader
	log    *zap.Logger

	// progress receives the progress bar; io.Discard silences it.
	progress io.Writer
}

func newBaker(cfg *config.Config, device gpu.Device, progress io.Writer) *baker {
	log := logger.Named("gearbake")

	ipOpts := []imageproc.ImageProcessingBuilderOption{
		imageproc.WithFenceTimeout(cfg.ImageProcessing.FenceTimeout()),
		imageproc.WithLogger(logger.Named("imageproc")),
	}
	if cfg.ImageProcessing.PipelineDir != "" {
		ipOpts = append(ipOpts, imageproc.WithPipelineDir(cfg.ImageProcessing.PipelineDir))
	}
	ip := imageproc.NewImageProcessing(device, ipOpts...)

	l := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithConfig(cfg.Loader),
		loader.WithDevice(device),
		loader.WithImageProcessing(ip),
	)

	return &baker{
		cfg:      cfg,
		device:   device,
		ip:       ip,
		loader:   l,
		log:      log,
		progress: progress,
	}
}

func (b *baker) Release() {
	b.loader.Release()
	b.ip.Release()
}

// inspectModel loads a model and plays its animations for the configured number of frames.
func (b *baker) inspectModel(path string) (modelReport, error) {
	m, err := b.loader.Load(path)
	if err != nil {
		return modelReport{}, err
	}

	report := modelReport{
		Name:       m.Name,
		Nodes:      len(m.Nodes),
		Meshes:     len(m.Meshes),
		Animations: len(m.Animations),
	}
	report.Frames, report.Updates = b.animate(m)

	b.log.Info("model loaded",
		zap.String("path", path),
		zap.String("name", report.Name),
		zap.Int("nodes", report.Nodes),
		zap.Int("meshes", report.Meshes),
		zap.Int("animations", report.Animations),
		zap.Int("frames", report.Frames),
		zap.Int("updates", report.Updates),
	)
	return report, nil
}

// animate samples the model's animations at a fixed frame rate and applies every update.
func (b *baker) animate(m *model.Model) (frames, updates int) {
	if len(m.Animations) == 0 || b.cfg.Bake.Frames <= 0 {
		return 0, 0
	}
	a := animator.NewAnimator(m, animator.WithConfig(b.cfg.Animator))
	prof := profiler.NewProfiler("animation "+m.Name, profiler.WithLogger(b.log))
	start := time.Unix(0, 0)
	for f := 0; f < b.cfg.Bake.Frames; f++ {
		u := a.Update(start.Add(time.Duration(f) * frameStep))
		animator.Apply(m, u)
		updates += len(u)
		prof.Tick()
	}
	return b.cfg.Bake.Frames, updates
}

// bakeEnvironment projects an equirectangular image into a cube and derives the diffuse,
// specular and BRDF lighting textures from it.
func (b *baker) bakeEnvironment(path string) (*environment, error) {
	bar := progressbar.NewOptions(envSteps,
		progressbar.OptionSetWriter(b.progress),
		progressbar.OptionSetDescription("baking "+filepath.Base(path)),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	px, err := (&common.ImportedTexture{Name: path, Path: path}).Decode()
	if err != nil {
		return nil, err
	}
	src, err := texture.FromPixels(b.device, filepath.Base(path), px, nil)
	if err != nil {
		return nil, err
	}
	defer src.Release()

	size := uint32(max(b.cfg.Bake.OutSize, 1))
	levels := min(uint32(max(b.cfg.Bake.Levels, 1)), texture.MipLevelsFor(size, size))
	lutSize := uint32(max(b.cfg.Bake.LUTSize, 1))

	env := &environment{}
	ok := false
	defer func() {
		if !ok {
			env.Release()
		}
	}()

	if env.Cube, err = b.cube("environment", size, 1); err != nil {
		return nil, err
	}
	if env.Irradiance, err = b.cube("irradiance", irradianceSize, 1); err != nil {
		return nil, err
	}
	if env.Specular, err = b.cube("specular", size, levels); err != nil {
		return nil, err
	}
	env.BRDF, err = texture.NewTexture(b.device,
		texture.WithLabel("brdf_lut"),
		texture.WithSize(lutSize, lutSize),
		texture.WithFormat(gpu.FormatRGBA16Float),
		texture.WithStorage(),
	)
	if err != nil {
		return nil, err
	}

	uploaded := imageproc.TextureResourceInfo{
		Texture:   src,
		SrcAccess: gpu.AccessTransferWrite,
		OldLayout: gpu.LayoutTransferDst,
		SrcStage:  gpu.StageTransfer,
	}
	steps := []struct {
		name string
		run  func() error
	}{
		{"cube", func() error {
			return b.ip.EquirectangularToCube(uploaded, fresh(env.Cube))
		}},
		{"diffuse", func() error {
			return b.ip.DiffuseIrradiance(written(env.Cube), fresh(env.Irradiance))
		}},
		{"specular", func() error {
			return b.ip.SpecularIrradiance(written(env.Cube), fresh(env.Specular))
		}},
		{"brdf", func() error {
			return b.ip.SpecularBRDFLUT(fresh(env.BRDF))
		}},
	}
	for _, step := range steps {
		bar.Describe(step.name)
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
		_ = bar.Add(1)
	}

	ok = true
	b.log.Info("environment baked",
		zap.String("path", path),
		zap.Uint32("size", size),
		zap.Uint32("levels", levels),
		zap.Uint32("lut_size", lutSize),
	)
	return env, nil
}

func (b *baker) cube(label string, size, levels uint32) (texture.Texture, error) {
	return texture.NewTexture(b.device,
		texture.WithLabel(label),
		texture.WithSize(size, size),
		texture.WithLayers(6),
		texture.WithFormat(gpu.FormatRGBA16Float),
		texture.WithMipLevels(levels),
		texture.WithStorage(),
	)
}

// fresh describes a texture nothing has touched since allocation.
func fresh(t texture.Texture) imageproc.TextureResourceInfo {
	return imageproc.TextureResourceInfo{Texture: t, OldLayout: gpu.LayoutUndefined, SrcStage: gpu.StageTopOfPipe}
}

// written describes a texture left in General by a previous compute pass.
func written(t texture.Texture) imageproc.TextureResourceInfo {
	return imageproc.TextureResourceInfo{
		Texture:   t,
		SrcAccess: gpu.AccessShaderWrite,
		OldLayout: gpu.LayoutGeneral,
		SrcStage:  gpu.StageComputeShader,
	}
}
