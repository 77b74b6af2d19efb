package loader

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"github.com/Carmen-Shannon/oxy-gear/engine/imageproc"
	"github.com/Carmen-Shannon/oxy-gear/engine/texture"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// textureDecoderImpl is the implementation of the textureDecoder interface.
type textureDecoderImpl struct {
	pool   worker.DynamicWorkerPool
	device gpu.Device
	ip     imageproc.ImageProcessing
	mips   bool
	log    *zap.Logger
}

// textureDecoder decodes and uploads material textures in parallel.
type textureDecoder interface {
	// DecodeAll decodes every source on the worker pool and uploads it to the device,
	// generating mip maps when configured. It returns once every source is done.
	// A source that fails is logged and yields a nil entry.
	//
	// Parameters:
	//   - sources: the textures to decode
	//
	// Returns:
	//   - []texture.Texture: uploaded textures, index-aligned with sources
	DecodeAll(sources []*common.ImportedTexture) []texture.Texture
}

var _ textureDecoder = &textureDecoderImpl{}

// newTextureDecoder creates a decoder that runs on pool and uploads to device.
//
// Parameters:
//   - pool: the worker pool decode tasks are submitted to
//   - device: the device textures are uploaded to
//   - ip: image processing used for mip generation, or nil
//   - mips: whether uploaded textures get a full mip chain
//   - log: logger for failed textures
//
// Returns:
//   - textureDecoder: the decoder
func newTextureDecoder(pool worker.DynamicWorkerPool, device gpu.Device, ip imageproc.ImageProcessing, mips bool, log *zap.Logger) textureDecoder {
	return &textureDecoderImpl{
		pool:   pool,
		device: device,
		ip:     ip,
		mips:   mips && ip != nil,
		log:    log,
	}
}

func (d *textureDecoderImpl) DecodeAll(sources []*common.ImportedTexture) []texture.Texture {
	out := make([]texture.Texture, len(sources))

	// pool.Wait blocks until workers idle out, so the join is a WaitGroup
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		d.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: src.Name,
			Do: func() (any, error) {
				defer wg.Done()
				tex, err := d.upload(src)
				if err != nil {
					d.log.Warn("skipping texture", zap.String("texture", src.Name), zap.Error(err))
					return nil, err
				}
				out[i] = tex
				return tex, nil
			},
		})
	}
	wg.Wait()

	return out
}

// upload decodes one source into a device texture.
func (d *textureDecoderImpl) upload(src *common.ImportedTexture) (texture.Texture, error) {
	px, err := src.Decode()
	if err != nil {
		return nil, err
	}

	tex, err := texture.FromPixels(d.device, src.Name, px, src.Sampler, texture.WithMipMaps(d.mips))
	if err != nil {
		return nil, err
	}

	if d.mips {
		err := d.ip.GenerateMipMaps(imageproc.TextureResourceInfo{
			Texture:   tex,
			SrcAccess: gpu.AccessTransferWrite,
			OldLayout: gpu.LayoutTransferDst,
			SrcStage:  gpu.StageTransfer,
		})
		if err != nil {
			tex.Release()
			return nil, fmt.Errorf("mip maps: %w", err)
		}
	}
	return tex, nil
}
