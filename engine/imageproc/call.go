package imageproc

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
	"go.uber.org/zap"
)

// call owns the transient resources of one operation. Everything it creates is released
// by release, after the fence wait.
type call struct {
	ip          *imageProcessing
	label       string
	pool        gpu.CommandPool
	cmd         gpu.CommandBuffer
	descriptors gpu.DescriptorPool
	fence       gpu.Fence
	views       []gpu.ImageView
	uniforms    []gpu.UniformBuffer
}

// begin allocates the command buffer, a descriptor pool sized for maxSets, and a fence,
// and starts recording.
func (ip *imageProcessing) begin(label string, maxSets int) (*call, error) {
	c := &call{ip: ip, label: label}

	var err error
	if c.pool, err = ip.device.CreateCommandPool(label); err != nil {
		return nil, fmt.Errorf("%s: command pool: %w", label, err)
	}
	if c.cmd, err = c.pool.Allocate(); err != nil {
		c.release()
		return nil, fmt.Errorf("%s: command buffer: %w", label, err)
	}
	if c.descriptors, err = ip.device.CreateDescriptorPool(label, maxSets); err != nil {
		c.release()
		return nil, fmt.Errorf("%s: descriptor pool: %w", label, err)
	}
	if c.fence, err = ip.device.CreateFence(label); err != nil {
		c.release()
		return nil, fmt.Errorf("%s: fence: %w", label, err)
	}
	if err = c.cmd.Begin(); err != nil {
		c.release()
		return nil, fmt.Errorf("%s: begin: %w", label, err)
	}
	return c, nil
}

func (c *call) view(img gpu.Image, viewType gpu.ViewType, r gpu.SubresourceRange) (gpu.ImageView, error) {
	v, err := img.CreateView(gpu.ViewDescriptor{Label: c.label, Type: viewType, Range: r})
	if err != nil {
		return nil, fmt.Errorf("%s: view: %w", c.label, err)
	}
	c.views = append(c.views, v)
	return v, nil
}

func (c *call) uniform(size uint64) (gpu.UniformBuffer, error) {
	u, err := c.ip.device.CreateUniformBuffer(c.label, size)
	if err != nil {
		return nil, fmt.Errorf("%s: uniform buffer: %w", c.label, err)
	}
	c.uniforms = append(c.uniforms, u)
	return u, nil
}

// set allocates a descriptor set for p, lets bind fill it, and finalizes it.
func (c *call) set(p gpu.ComputePipeline, bind func(gpu.DescriptorSet)) (gpu.DescriptorSet, error) {
	s, err := c.descriptors.Allocate(p)
	if err != nil {
		return nil, fmt.Errorf("%s: descriptor set: %w", c.label, err)
	}
	bind(s)
	if err := s.Update(); err != nil {
		return nil, fmt.Errorf("%s: descriptor set: %w", c.label, err)
	}
	return s, nil
}

func (c *call) dispatch(p gpu.ComputePipeline, s gpu.DescriptorSet, x, y, z uint32) {
	c.cmd.BindPipeline(p)
	c.cmd.BindDescriptorSet(s)
	c.cmd.Dispatch(x, y, z)
}

// submit ends recording, submits, and blocks on the fence.
func (c *call) submit() error {
	if err := c.cmd.End(); err != nil {
		return fmt.Errorf("%s: end: %w", c.label, err)
	}
	if err := c.ip.device.Submit(c.cmd, c.fence); err != nil {
		return fmt.Errorf("%s: submit: %w", c.label, err)
	}
	if err := c.fence.Wait(c.ip.fenceTimeout); err != nil {
		c.ip.log.Warn("fence wait failed", zap.String("op", c.label), zap.Duration("timeout", c.ip.fenceTimeout), zap.Error(err))
		return err
	}
	return nil
}

func (c *call) release() {
	for _, v := range c.views {
		v.Release()
	}
	for _, u := range c.uniforms {
		u.Release()
	}
	if c.fence != nil {
		c.fence.Release()
	}
	if c.descriptors != nil {
		c.descriptors.Release()
	}
	if c.pool != nil {
		c.pool.Release()
	}
}

// groups returns the workgroup count covering (dim >> level) texels with the given tile.
func groups(dim, level, tile uint32) uint32 {
	return max((dim>>level)/tile, 1)
}

// bindSamplers binds s to every sampler slot of p.
func bindSamplers(set gpu.DescriptorSet, p gpu.ComputePipeline, s gpu.Sampler) {
	for _, b := range p.Descriptor().Bindings {
		if b.Kind == gpu.BindingSampler {
			set.BindSampler(b.Binding, s)
		}
	}
}
