package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/common"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// fencePollInterval is how long Fence.Wait sleeps between device polls.
const fencePollInterval = 500 * time.Microsecond

// wgpuDevice implements Device on WebGPU. WebGPU tracks resource state itself, so
// recorded barriers are validated and logged but produce no commands.
type wgpuDevice struct {
	mu       sync.Mutex
	label    string
	family   Family
	log      *zap.Logger
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// queue submissions and compute passes encoded, guarded by mu
	submits int
	passes  int
}

var _ Device = &wgpuDevice{}

func newWGPUDevice(cfg *deviceConfig) (*wgpuDevice, error) {
	d := &wgpuDevice{
		label:    cfg.label,
		family:   cfg.family,
		log:      cfg.log,
		instance: wgpu.CreateInstance(nil),
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallback,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: cfg.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.log.Info("device created",
		zap.String("label", cfg.label),
		zap.Stringer("family", cfg.family),
		zap.Bool("fallback", cfg.forceFallback),
	)
	return d, nil
}

func (d *wgpuDevice) Family() Family {
	return d.family
}

func (d *wgpuDevice) CreateImage(desc ImageDescriptor) (Image, error) {
	if err := ValidateImageDescriptor(desc); err != nil {
		return nil, err
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     toWGPUTextureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Layers,
		},
		Format:        toWGPUFormat(desc.Format),
		MipLevelCount: desc.Levels,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create image %q: %w", desc.Label, err)
	}
	return &wgpuImage{texture: tex, desc: desc}, nil
}

func (d *wgpuDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  toWGPUAddressMode(desc.AddressModeU),
		AddressModeV:  toWGPUAddressMode(desc.AddressModeV),
		AddressModeW:  toWGPUAddressMode(desc.AddressModeW),
		MagFilter:     toWGPUFilterMode(desc.MagFilter),
		MinFilter:     toWGPUFilterMode(desc.MinFilter),
		MipmapFilter:  toWGPUMipmapFilterMode(desc.MipmapFilter),
		LodMinClamp:   0,
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sampler %q: %w", desc.Label, err)
	}
	return &wgpuSampler{sampler: s}, nil
}

func (d *wgpuDevice) CreateUniformBuffer(label string, size uint64) (UniformBuffer, error) {
	// uniform bindings are sized in multiples of 16 bytes
	aligned := (size + 15) &^ 15
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  aligned,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create uniform buffer %q: %w", label, err)
	}
	return &wgpuUniformBuffer{buffer: buf, label: label, size: aligned}, nil
}

func (d *wgpuDevice) CreateComputePipeline(desc ComputePipelineDescriptor) (ComputePipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile %q: %w", desc.Label, err)
	}

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Bindings))
	for _, b := range desc.Bindings {
		entries = append(entries, toWGPULayoutEntry(b))
	}
	bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label + " Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("gpu: bind group layout for %q: %w", desc.Label, err)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		module.Release()
		return nil, fmt.Errorf("gpu: pipeline layout for %q: %w", desc.Label, err)
	}

	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		layout.Release()
		bgl.Release()
		module.Release()
		return nil, fmt.Errorf("gpu: create compute pipeline %q: %w", desc.Label, err)
	}

	d.log.Debug("compute pipeline created", zap.String("label", desc.Label), zap.Int("bindings", len(desc.Bindings)))
	return &wgpuPipeline{
		desc:            desc,
		module:          module,
		bindGroupLayout: bgl,
		layout:          layout,
		pipeline:        created,
	}, nil
}

func (d *wgpuDevice) CreateCommandPool(label string) (CommandPool, error) {
	return &wgpuCommandPool{label: label, log: d.log}, nil
}

func (d *wgpuDevice) CreateDescriptorPool(label string, maxSets int) (DescriptorPool, error) {
	if maxSets <= 0 {
		return nil, fmt.Errorf("gpu: descriptor pool %q needs at least one set", label)
	}
	return &wgpuDescriptorPool{dev: d, label: label, maxSets: maxSets}, nil
}

func (d *wgpuDevice) CreateFence(label string) (Fence, error) {
	return &wgpuFence{dev: d, label: label}, nil
}

func (d *wgpuDevice) WriteImage(img Image, level, layer uint32, pixels []byte, width, height uint32) error {
	wi, ok := img.(*wgpuImage)
	if !ok {
		return fmt.Errorf("gpu: image %T does not belong to this device", img)
	}
	desc := wi.desc
	if err := ValidateRange(desc, SubresourceRange{BaseLevel: level, Levels: 1, BaseLayer: layer, Layers: 1}); err != nil {
		return err
	}
	bpp := desc.Format.BytesPerPixel()
	if uint64(len(pixels)) < uint64(width)*uint64(height)*uint64(bpp) {
		return fmt.Errorf("gpu: %d bytes is short for a %dx%d write to %q", len(pixels), width, height, desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wi.texture,
			MipLevel: level,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * bpp,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *wgpuDevice) Submit(cmd CommandBuffer, fence Fence) error {
	cb, ok := cmd.(*wgpuCommandBuffer)
	if !ok {
		return fmt.Errorf("gpu: command buffer %T does not belong to this device", cmd)
	}
	if cb.state != cmdEnded {
		return ErrNotEnded
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Queue writes land before the next submission, so a buffer uploaded twice
	// splits the command stream into separate submissions.
	segment := make(map[*wgpuUniformBuffer]bool)
	start := 0
	for i, op := range cb.ops {
		if op.kind != opUpload {
			continue
		}
		if segment[op.uniform] {
			if err := d.encodeAndSubmit(cb, start, i); err != nil {
				return err
			}
			start = i
			segment = make(map[*wgpuUniformBuffer]bool)
		}
		segment[op.uniform] = true
		if err := d.queue.WriteBuffer(op.uniform.buffer, 0, op.data); err != nil {
			return fmt.Errorf("gpu: upload %q: %w", op.uniform.label, err)
		}
	}
	if err := d.encodeAndSubmit(cb, start, len(cb.ops)); err != nil {
		return err
	}

	if wf, ok := fence.(*wgpuFence); ok && wf != nil {
		wf.signaled.Store(false)
		d.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
			wf.signaled.Store(true)
		})
	}
	cb.state = cmdSubmitted
	return nil
}

// encodeAndSubmit encodes ops[from:to] into one wgpu command buffer. Barriers end the
// current compute pass so that dispatches on either side land in separate passes.
func (d *wgpuDevice) encodeAndSubmit(cb *wgpuCommandBuffer, from, to int) error {
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	var (
		pass     *wgpu.ComputePassEncoder
		pipeline *wgpuPipeline
		set      *wgpuDescriptorSet
	)
	// bindings carry over from earlier segments of the same command buffer
	for _, op := range cb.ops[:from] {
		switch op.kind {
		case opBindPipeline:
			pipeline = op.pipeline
		case opBindSet:
			set = op.set
		}
	}
	endPass := func() {
		if pass != nil {
			pass.End()
			pass = nil
		}
	}

	for _, op := range cb.ops[from:to] {
		switch op.kind {
		case opBarrier:
			endPass()
		case opBindPipeline:
			pipeline = op.pipeline
		case opBindSet:
			set = op.set
		case opDispatch:
			if pipeline == nil || set == nil || set.group == nil {
				endPass()
				return errors.New("gpu: dispatch without a bound pipeline and updated descriptor set")
			}
			if pass == nil {
				pass = encoder.BeginComputePass(nil)
				d.passes++
			}
			pass.SetPipeline(pipeline.pipeline)
			pass.SetBindGroup(0, set.group, nil)
			pass.DispatchWorkgroups(op.groups[0], op.groups[1], op.groups[2])
		}
	}
	endPass()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: finish command encoder: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	d.submits++
	return nil
}

func (d *wgpuDevice) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device.Poll(true, nil)
	return nil
}

func (d *wgpuDevice) poll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device.Poll(false, nil)
}

func (d *wgpuDevice) Release() {
	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

// --- Resources ---

type wgpuImage struct {
	texture *wgpu.Texture
	desc    ImageDescriptor
}

func (i *wgpuImage) Descriptor() ImageDescriptor {
	return i.desc
}

func (i *wgpuImage) CreateView(desc ViewDescriptor) (ImageView, error) {
	if err := ValidateView(i.desc, desc); err != nil {
		return nil, err
	}
	view, err := i.texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          toWGPUFormat(i.desc.Format),
		Dimension:       toWGPUViewDimension(desc.Type),
		BaseMipLevel:    desc.Range.BaseLevel,
		MipLevelCount:   desc.Range.Levels,
		BaseArrayLayer:  desc.Range.BaseLayer,
		ArrayLayerCount: desc.Range.Layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create view %q: %w", desc.Label, err)
	}
	return &wgpuImageView{image: i, view: view, desc: desc}, nil
}

func (i *wgpuImage) Release() {
	i.texture.Release()
}

type wgpuImageView struct {
	image *wgpuImage
	view  *wgpu.TextureView
	desc  ViewDescriptor
}

func (v *wgpuImageView) Image() Image               { return v.image }
func (v *wgpuImageView) Descriptor() ViewDescriptor { return v.desc }
func (v *wgpuImageView) Release()                   { v.view.Release() }

type wgpuSampler struct {
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) Release() { s.sampler.Release() }

type wgpuUniformBuffer struct {
	buffer *wgpu.Buffer
	label  string
	size   uint64
}

func (u *wgpuUniformBuffer) Size() uint64 { return u.size }
func (u *wgpuUniformBuffer) Release()     { u.buffer.Release() }

type wgpuPipeline struct {
	desc            ComputePipelineDescriptor
	module          *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	layout          *wgpu.PipelineLayout
	pipeline        *wgpu.ComputePipeline
}

func (p *wgpuPipeline) Descriptor() ComputePipelineDescriptor { return p.desc }

func (p *wgpuPipeline) Release() {
	p.pipeline.Release()
	p.layout.Release()
	p.bindGroupLayout.Release()
	p.module.Release()
}

// --- Command Recording ---

type cmdState int

const (
	cmdInitial cmdState = iota
	cmdRecording
	cmdEnded
	cmdSubmitted
)

type opKind int

const (
	opBarrier opKind = iota
	opBindPipeline
	opBindSet
	opUpload
	opDispatch
)

type wgpuOp struct {
	kind     opKind
	pipeline *wgpuPipeline
	set      *wgpuDescriptorSet
	uniform  *wgpuUniformBuffer
	data     []byte
	groups   [3]uint32
}

type wgpuCommandPool struct {
	label string
	log   *zap.Logger
}

func (p *wgpuCommandPool) Allocate() (CommandBuffer, error) {
	return &wgpuCommandBuffer{label: p.label, log: p.log}, nil
}

func (p *wgpuCommandPool) Release() {}

type wgpuCommandBuffer struct {
	label string
	log   *zap.Logger
	state cmdState
	ops   []wgpuOp
	err   error
}

func (c *wgpuCommandBuffer) Reset() {
	c.ops = c.ops[:0]
	c.err = nil
	c.state = cmdInitial
}

func (c *wgpuCommandBuffer) Begin() error {
	if c.state == cmdRecording {
		return fmt.Errorf("gpu: command buffer %q already recording", c.label)
	}
	c.Reset()
	c.state = cmdRecording
	return nil
}

func (c *wgpuCommandBuffer) record(op wgpuOp) {
	if c.state != cmdRecording {
		c.fail(ErrNotRecording)
		return
	}
	c.ops = append(c.ops, op)
}

func (c *wgpuCommandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *wgpuCommandBuffer) PipelineBarrier(src, dst Stage, images []ImageBarrier, buffers []BufferBarrier) {
	for _, b := range images {
		if err := ValidateImageBarrier(b); err != nil {
			c.fail(err)
			return
		}
		c.log.Debug("image barrier",
			zap.String("image", b.Image.Descriptor().Label),
			zap.Stringer("srcAccess", b.SrcAccess),
			zap.Stringer("dstAccess", b.DstAccess),
			zap.Stringer("oldLayout", b.OldLayout),
			zap.Stringer("newLayout", b.NewLayout),
			zap.Uint32("baseLevel", b.Range.BaseLevel),
			zap.Uint32("levels", b.Range.Levels),
		)
	}
	for _, b := range buffers {
		if b.Buffer == nil {
			c.fail(fmt.Errorf("%w: nil buffer", ErrInvalidBarrier))
			return
		}
	}
	c.record(wgpuOp{kind: opBarrier})
}

func (c *wgpuCommandBuffer) BindPipeline(p ComputePipeline) {
	wp, ok := p.(*wgpuPipeline)
	if !ok {
		c.fail(fmt.Errorf("gpu: pipeline %T does not belong to this device", p))
		return
	}
	c.record(wgpuOp{kind: opBindPipeline, pipeline: wp})
}

func (c *wgpuCommandBuffer) BindDescriptorSet(set DescriptorSet) {
	ws, ok := set.(*wgpuDescriptorSet)
	if !ok {
		c.fail(fmt.Errorf("gpu: descriptor set %T does not belong to this device", set))
		return
	}
	c.record(wgpuOp{kind: opBindSet, set: ws})
}

func (c *wgpuCommandBuffer) UpdateUniform(buf UniformBuffer, data []byte) {
	wb, ok := buf.(*wgpuUniformBuffer)
	if !ok {
		c.fail(fmt.Errorf("gpu: uniform buffer %T does not belong to this device", buf))
		return
	}
	if uint64(len(data)) > wb.size {
		c.fail(fmt.Errorf("gpu: %d bytes overflow uniform buffer %q of %d", len(data), wb.label, wb.size))
		return
	}
	padded := make([]byte, wb.size)
	copy(padded, data)
	c.record(wgpuOp{kind: opUpload, uniform: wb, data: padded})
}

func (c *wgpuCommandBuffer) Dispatch(x, y, z uint32) {
	c.record(wgpuOp{kind: opDispatch, groups: [3]uint32{x, y, z}})
}

func (c *wgpuCommandBuffer) End() error {
	if c.state != cmdRecording {
		return ErrNotRecording
	}
	if c.err != nil {
		return c.err
	}
	c.state = cmdEnded
	return nil
}

// --- Descriptor Sets ---

type wgpuDescriptorPool struct {
	dev     *wgpuDevice
	label   string
	maxSets int
	sets    []*wgpuDescriptorSet
}

func (p *wgpuDescriptorPool) Allocate(pipeline ComputePipeline) (DescriptorSet, error) {
	wp, ok := pipeline.(*wgpuPipeline)
	if !ok {
		return nil, fmt.Errorf("gpu: pipeline %T does not belong to this device", pipeline)
	}
	if len(p.sets) >= p.maxSets {
		return nil, ErrPoolExhausted
	}
	set := &wgpuDescriptorSet{
		dev:      p.dev,
		label:    fmt.Sprintf("%s[%d]", p.label, len(p.sets)),
		pipeline: wp,
		views:    make(map[uint32]ImageView),
		samplers: make(map[uint32]Sampler),
		uniforms: make(map[uint32]UniformBuffer),
	}
	p.sets = append(p.sets, set)
	return set, nil
}

func (p *wgpuDescriptorPool) Release() {
	for _, s := range p.sets {
		if s.group != nil {
			s.group.Release()
		}
	}
	p.sets = nil
}

type wgpuDescriptorSet struct {
	dev      *wgpuDevice
	label    string
	pipeline *wgpuPipeline
	views    map[uint32]ImageView
	samplers map[uint32]Sampler
	uniforms map[uint32]UniformBuffer
	group    *wgpu.BindGroup
}

func (s *wgpuDescriptorSet) BindImageView(binding uint32, view ImageView) {
	s.views[binding] = view
}

func (s *wgpuDescriptorSet) BindSampler(binding uint32, smp Sampler) {
	s.samplers[binding] = smp
}

func (s *wgpuDescriptorSet) BindUniform(binding uint32, buf UniformBuffer) {
	s.uniforms[binding] = buf
}

func (s *wgpuDescriptorSet) Update() error {
	if err := ValidateBindings(s.pipeline.desc.Bindings, s.views, s.samplers, s.uniforms); err != nil {
		return err
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(s.pipeline.desc.Bindings))
	for _, l := range s.pipeline.desc.Bindings {
		entry := wgpu.BindGroupEntry{Binding: l.Binding}
		switch l.Kind {
		case BindingUniform:
			entry.Buffer = s.uniforms[l.Binding].(*wgpuUniformBuffer).buffer
			entry.Size = wgpu.WholeSize
		case BindingSampler:
			entry.Sampler = s.samplers[l.Binding].(*wgpuSampler).sampler
		default:
			entry.TextureView = s.views[l.Binding].(*wgpuImageView).view
		}
		entries = append(entries, entry)
	}

	group, err := s.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   s.label,
		Layout:  s.pipeline.bindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: update descriptor set %q: %w", s.label, err)
	}
	if s.group != nil {
		s.group.Release()
	}
	s.group = group
	return nil
}

// --- Fences ---

type wgpuFence struct {
	dev      *wgpuDevice
	label    string
	signaled atomic.Bool
}

func (f *wgpuFence) Wait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		f.dev.poll()
		if f.signaled.Load() {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &FenceTimeoutError{Label: f.label, Timeout: timeout}
		}
		time.Sleep(fencePollInterval)
	}
}

func (f *wgpuFence) Signaled() bool { return f.signaled.Load() }
func (f *wgpuFence) Reset()         { f.signaled.Store(false) }
func (f *wgpuFence) Release()       {}

// --- Conversions ---

func toWGPUFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func toWGPUTextureUsage(u ImageUsage) wgpu.TextureUsage {
	var usage wgpu.TextureUsage
	if u&UsageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u&UsageStorage != 0 {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if u&UsageTransferSrc != 0 {
		usage |= wgpu.TextureUsageCopySrc
	}
	if u&UsageTransferDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}
	return usage
}

func toWGPUViewDimension(t ViewType) wgpu.TextureViewDimension {
	switch t {
	case ViewType2DArray:
		return wgpu.TextureViewDimension2DArray
	case ViewTypeCube:
		return wgpu.TextureViewDimensionCube
	default:
		return wgpu.TextureViewDimension2D
	}
}

func toWGPUStorageAccess(a StorageAccess) wgpu.StorageTextureAccess {
	switch a {
	case StorageReadOnly:
		return wgpu.StorageTextureAccessReadOnly
	case StorageReadWrite:
		return wgpu.StorageTextureAccessReadWrite
	default:
		return wgpu.StorageTextureAccessWriteOnly
	}
}

func toWGPULayoutEntry(b BindingLayout) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: wgpu.ShaderStageCompute,
	}
	switch b.Kind {
	case BindingUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = b.MinSize
	case BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case BindingSampledTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = toWGPUViewDimension(b.ViewType)
	case BindingStorageTexture:
		entry.StorageTexture.Access = toWGPUStorageAccess(b.Access)
		entry.StorageTexture.Format = toWGPUFormat(b.Format)
		entry.StorageTexture.ViewDimension = toWGPUViewDimension(b.ViewType)
	}
	return entry
}

func toWGPUAddressMode(m common.AddressMode) wgpu.AddressMode {
	switch m {
	case common.AddressMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	case common.AddressClampToEdge:
		return wgpu.AddressModeClampToEdge
	default:
		return wgpu.AddressModeRepeat
	}
}

func toWGPUFilterMode(m common.FilterMode) wgpu.FilterMode {
	if m == common.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func toWGPUMipmapFilterMode(m common.FilterMode) wgpu.MipmapFilterMode {
	if m == common.FilterNearest {
		return wgpu.MipmapFilterModeNearest
	}
	return wgpu.MipmapFilterModeLinear
}
