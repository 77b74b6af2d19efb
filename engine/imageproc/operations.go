package imageproc

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"
	"go.uber.org/zap"
)

const (
	cubeLayers = 6

	// postStages are the consumers the final barrier of every pass hands the texture to.
	postStages = gpu.StageComputeShader | gpu.StageFragmentShader
)

// specularParams mirrors the Params uniform of the specular prefilter shader.
type specularParams struct {
	Roughness float32
	_         [3]float32
}

func mustTexture(info TextureResourceInfo) texture.Texture {
	if info.Texture == nil {
		panic("imageproc: nil texture")
	}
	return info.Texture
}

func levelRange(level, layers uint32) gpu.SubresourceRange {
	return gpu.SubresourceRange{BaseLevel: level, Levels: 1, BaseLayer: 0, Layers: layers}
}

// toGeneral returns the barrier that hands an image back to General for later sampling.
func toGeneral(img gpu.Image, src gpu.Access, old gpu.Layout, r gpu.SubresourceRange) gpu.ImageBarrier {
	return gpu.ImageBarrier{
		Image:     img,
		SrcAccess: src,
		DstAccess: gpu.AccessShaderRead,
		OldLayout: old,
		NewLayout: gpu.LayoutGeneral,
		Range:     r,
	}
}

// --- Mipmaps ---

func (ip *imageProcessing) GenerateMipMaps(info TextureResourceInfo) error {
	tex := mustTexture(info)
	if !tex.WantsMipMaps() || tex.MipMapsGenerated() {
		return nil
	}

	ip.opMu.Lock()
	defer ip.opMu.Unlock()
	if tex.MipMapsGenerated() {
		return nil
	}

	levels, layers := tex.Levels(), tex.Layers()
	if levels < 2 {
		tex.SetMipMapsGenerated(true)
		return nil
	}

	kind, viewType := PipelineMipmap, gpu.ViewType2D
	if layers > 1 {
		kind, viewType = PipelineMipmapArray, gpu.ViewType2DArray
	}
	p, err := ip.pipeline(kind)
	if err != nil {
		return err
	}

	c, err := ip.begin("GenerateMipMaps "+tex.Label(), int(levels-1))
	if err != nil {
		return err
	}
	defer c.release()

	img := tex.Image()
	views := make([]gpu.ImageView, levels)
	for level := range levels {
		if views[level], err = c.view(img, viewType, levelRange(level, layers)); err != nil {
			return err
		}
	}

	c.cmd.PipelineBarrier(info.SrcStage, gpu.StageComputeShader, []gpu.ImageBarrier{{
		Image:     img,
		SrcAccess: info.SrcAccess,
		DstAccess: gpu.AccessShaderRead,
		OldLayout: info.OldLayout,
		NewLayout: gpu.LayoutGeneral,
		Range:     img.Descriptor().FullRange(),
	}}, nil)

	storage := ip.family.StorageLayout()
	tile := kind.tile()
	for level := uint32(1); level < levels; level++ {
		set, err := c.set(p, func(s gpu.DescriptorSet) {
			s.BindImageView(0, views[level-1])
			s.BindImageView(1, views[level])
		})
		if err != nil {
			return err
		}

		r := levelRange(level, layers)
		c.cmd.PipelineBarrier(gpu.StageComputeShader, gpu.StageComputeShader, []gpu.ImageBarrier{{
			Image:     img,
			SrcAccess: gpu.AccessShaderWrite,
			DstAccess: gpu.AccessShaderRead | gpu.AccessShaderWrite,
			OldLayout: gpu.LayoutGeneral,
			NewLayout: storage,
			Range:     r,
		}}, nil)
		c.dispatch(p, set, groups(tex.Width(), level, tile), groups(tex.Height(), level, tile), layers)
		c.cmd.PipelineBarrier(gpu.StageComputeShader, gpu.StageComputeShader, []gpu.ImageBarrier{
			toGeneral(img, gpu.AccessShaderRead|gpu.AccessShaderWrite, storage, r),
		}, nil)
	}

	c.cmd.PipelineBarrier(gpu.StageComputeShader, postStages, []gpu.ImageBarrier{
		toGeneral(img, gpu.AccessShaderWrite, gpu.LayoutGeneral, img.Descriptor().FullRange()),
	}, nil)

	if err := c.submit(); err != nil {
		return err
	}
	tex.SetMipMapsGenerated(true)
	ip.log.Debug("mipmaps generated",
		zap.String("texture", tex.Label()),
		zap.Uint32("levels", levels),
		zap.Uint32("layers", layers),
	)
	return nil
}

// --- Environment ---

func (ip *imageProcessing) EquirectangularToCube(equirect, cube TextureResourceInfo) error {
	src, dst := mustTexture(equirect), mustTexture(cube)
	if dst.Layers() != cubeLayers {
		return fmt.Errorf("imageproc: cube target %s has %d layers, want %d", dst.Label(), dst.Layers(), cubeLayers)
	}

	ip.opMu.Lock()
	defer ip.opMu.Unlock()

	p, err := ip.pipeline(PipelineEquirectangularToCube)
	if err != nil {
		return err
	}
	smp, err := ip.linearSampler()
	if err != nil {
		return err
	}
	c, err := ip.begin("EquirectangularToCube "+src.Label(), 1)
	if err != nil {
		return err
	}
	defer c.release()

	srcRange, dstRange := levelRange(0, 1), levelRange(0, cubeLayers)
	srcView, err := c.view(src.Image(), gpu.ViewType2D, srcRange)
	if err != nil {
		return err
	}
	dstView, err := c.view(dst.Image(), gpu.ViewType2DArray, dstRange)
	if err != nil {
		return err
	}
	set, err := c.set(p, func(s gpu.DescriptorSet) {
		s.BindImageView(0, srcView)
		s.BindImageView(1, dstView)
		bindSamplers(s, p, smp)
	})
	if err != nil {
		return err
	}

	sampled, storage := ip.family.SampledLayout(), ip.family.StorageLayout()
	var pre []gpu.ImageBarrier
	if equirect.OldLayout != sampled {
		pre = append(pre, gpu.ImageBarrier{
			Image:     src.Image(),
			SrcAccess: equirect.SrcAccess,
			DstAccess: gpu.AccessShaderRead,
			OldLayout: equirect.OldLayout,
			NewLayout: sampled,
			Range:     srcRange,
		})
	}
	if cube.OldLayout != storage {
		pre = append(pre, gpu.ImageBarrier{
			Image:     dst.Image(),
			SrcAccess: cube.SrcAccess,
			DstAccess: gpu.AccessShaderWrite,
			OldLayout: cube.OldLayout,
			NewLayout: storage,
			Range:     dstRange,
		})
	}
	if len(pre) > 0 {
		c.cmd.PipelineBarrier(equirect.SrcStage|cube.SrcStage, gpu.StageComputeShader, pre, nil)
	}

	c.dispatch(p, set, groups(dst.Width(), 0, 32), groups(dst.Height(), 0, 32), cubeLayers)

	c.cmd.PipelineBarrier(gpu.StageComputeShader, postStages, []gpu.ImageBarrier{
		toGeneral(dst.Image(), gpu.AccessShaderWrite, storage, dstRange),
		toGeneral(src.Image(), gpu.AccessShaderRead, sampled, srcRange),
	}, nil)

	if err := c.submit(); err != nil {
		return err
	}
	ip.log.Debug("equirectangular projected", zap.String("source", src.Label()), zap.String("cube", dst.Label()))
	return nil
}

// envBarriers moves an environment cube to the sampled layout and an output range to
// the storage layout.
func (ip *imageProcessing) envBarriers(env TextureResourceInfo, envRange gpu.SubresourceRange, out TextureResourceInfo, outRange gpu.SubresourceRange) []gpu.ImageBarrier {
	return []gpu.ImageBarrier{
		{
			Image:     env.Texture.Image(),
			SrcAccess: env.SrcAccess,
			DstAccess: gpu.AccessShaderRead,
			OldLayout: env.OldLayout,
			NewLayout: ip.family.SampledLayout(),
			Range:     envRange,
		},
		{
			Image:     out.Texture.Image(),
			SrcAccess: out.SrcAccess,
			DstAccess: gpu.AccessShaderWrite,
			OldLayout: out.OldLayout,
			NewLayout: ip.family.StorageLayout(),
			Range:     outRange,
		},
	}
}

func (ip *imageProcessing) DiffuseIrradiance(env, out TextureResourceInfo) error {
	envTex, outTex := mustTexture(env), mustTexture(out)
	if envTex.Layers() != cubeLayers || outTex.Layers() != cubeLayers {
		return fmt.Errorf("imageproc: diffuse irradiance needs %d-layer textures, got %d and %d", cubeLayers, envTex.Layers(), outTex.Layers())
	}

	ip.opMu.Lock()
	defer ip.opMu.Unlock()

	p, err := ip.pipeline(PipelineDiffuseIrradiance)
	if err != nil {
		return err
	}
	smp, err := ip.linearSampler()
	if err != nil {
		return err
	}
	c, err := ip.begin("DiffuseIrradiance "+envTex.Label(), 1)
	if err != nil {
		return err
	}
	defer c.release()

	envRange, outRange := levelRange(0, cubeLayers), levelRange(0, cubeLayers)
	envView, err := c.view(envTex.Image(), gpu.ViewTypeCube, envRange)
	if err != nil {
		return err
	}
	outView, err := c.view(outTex.Image(), gpu.ViewType2DArray, outRange)
	if err != nil {
		return err
	}
	set, err := c.set(p, func(s gpu.DescriptorSet) {
		s.BindImageView(0, envView)
		s.BindImageView(1, outView)
		bindSamplers(s, p, smp)
	})
	if err != nil {
		return err
	}

	c.cmd.PipelineBarrier(env.SrcStage|out.SrcStage, gpu.StageComputeShader, ip.envBarriers(env, envRange, out, outRange), nil)
	c.dispatch(p, set, groups(outTex.Width(), 0, 32), groups(outTex.Height(), 0, 32), cubeLayers)
	c.cmd.PipelineBarrier(gpu.StageComputeShader, postStages, []gpu.ImageBarrier{
		toGeneral(outTex.Image(), gpu.AccessShaderWrite, ip.family.StorageLayout(), outRange),
		toGeneral(envTex.Image(), gpu.AccessShaderRead, ip.family.SampledLayout(), envRange),
	}, nil)

	if err := c.submit(); err != nil {
		return err
	}
	ip.log.Debug("diffuse irradiance computed", zap.String("env", envTex.Label()), zap.String("out", outTex.Label()))
	return nil
}

func (ip *imageProcessing) SpecularIrradiance(env, out TextureResourceInfo) error {
	envTex, outTex := mustTexture(env), mustTexture(out)
	if envTex.Layers() != cubeLayers || outTex.Layers() != cubeLayers {
		return fmt.Errorf("imageproc: specular irradiance needs %d-layer textures, got %d and %d", cubeLayers, envTex.Layers(), outTex.Layers())
	}

	ip.opMu.Lock()
	defer ip.opMu.Unlock()

	p, err := ip.pipeline(PipelineSpecularIrradiance)
	if err != nil {
		return err
	}
	smp, err := ip.linearSampler()
	if err != nil {
		return err
	}

	levels := outTex.Levels()
	c, err := ip.begin("SpecularIrradiance "+envTex.Label(), int(levels))
	if err != nil {
		return err
	}
	defer c.release()

	envRange := levelRange(0, cubeLayers)
	envView, err := c.view(envTex.Image(), gpu.ViewTypeCube, envRange)
	if err != nil {
		return err
	}

	var params specularParams
	ubs := make([]gpu.UniformBuffer, levels)
	sets := make([]gpu.DescriptorSet, levels)
	for level := range levels {
		outView, err := c.view(outTex.Image(), gpu.ViewType2DArray, levelRange(level, cubeLayers))
		if err != nil {
			return err
		}
		if ubs[level], err = c.uniform(uint64(len(common.StructToBytes(&params)))); err != nil {
			return err
		}
		sets[level], err = c.set(p, func(s gpu.DescriptorSet) {
			s.BindImageView(0, envView)
			s.BindImageView(1, outView)
			s.BindUniform(2, ubs[level])
			bindSamplers(s, p, smp)
		})
		if err != nil {
			return err
		}
	}

	outRange := outTex.Image().Descriptor().FullRange()
	c.cmd.PipelineBarrier(env.SrcStage|out.SrcStage, gpu.StageComputeShader, ip.envBarriers(env, envRange, out, outRange), nil)

	for level := range levels {
		params.Roughness = float32(level) / float32(levels)
		c.cmd.UpdateUniform(ubs[level], common.StructToBytes(&params))
		if ip.family == gpu.FamilyD3D12 {
			c.cmd.PipelineBarrier(gpu.StageTransfer, gpu.StageComputeShader, nil, []gpu.BufferBarrier{{
				Buffer:    ubs[level],
				SrcAccess: gpu.AccessTransferRead,
				DstAccess: gpu.AccessUniformRead,
			}})
		}
		c.dispatch(p, sets[level], groups(outTex.Width(), level, 32), groups(outTex.Height(), level, 32), cubeLayers)
	}

	c.cmd.PipelineBarrier(gpu.StageComputeShader, postStages, []gpu.ImageBarrier{
		toGeneral(outTex.Image(), gpu.AccessShaderWrite, ip.family.StorageLayout(), outRange),
		toGeneral(envTex.Image(), gpu.AccessShaderRead, ip.family.SampledLayout(), envRange),
	}, nil)

	if err := c.submit(); err != nil {
		return err
	}
	ip.log.Debug("specular irradiance computed", zap.String("env", envTex.Label()), zap.Uint32("levels", levels))
	return nil
}

// --- BRDF ---

func (ip *imageProcessing) SpecularBRDFLUT(lut TextureResourceInfo) error {
	tex := mustTexture(lut)

	ip.opMu.Lock()
	defer ip.opMu.Unlock()

	p, err := ip.pipeline(PipelineSpecularBRDFLUT)
	if err != nil {
		return err
	}
	c, err := ip.begin("SpecularBRDFLUT "+tex.Label(), 1)
	if err != nil {
		return err
	}
	defer c.release()

	r := levelRange(0, 1)
	view, err := c.view(tex.Image(), gpu.ViewType2D, r)
	if err != nil {
		return err
	}
	set, err := c.set(p, func(s gpu.DescriptorSet) {
		s.BindImageView(0, view)
	})
	if err != nil {
		return err
	}

	storage := ip.family.StorageLayout()
	c.cmd.PipelineBarrier(lut.SrcStage, gpu.StageComputeShader, []gpu.ImageBarrier{{
		Image:     tex.Image(),
		SrcAccess: lut.SrcAccess,
		DstAccess: gpu.AccessShaderWrite,
		OldLayout: lut.OldLayout,
		NewLayout: storage,
		Range:     r,
	}}, nil)
	c.dispatch(p, set, groups(tex.Width(), 0, 32), groups(tex.Height(), 0, 32), 1)
	c.cmd.PipelineBarrier(gpu.StageComputeShader, postStages, []gpu.ImageBarrier{
		toGeneral(tex.Image(), gpu.AccessShaderWrite, storage, r),
	}, nil)

	if err := c.submit(); err != nil {
		return err
	}
	ip.log.Debug("brdf lut computed", zap.String("texture", tex.Label()))
	return nil
}
