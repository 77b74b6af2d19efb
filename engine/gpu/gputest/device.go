// Package gputest provides a recording gpu.Device for tests that need no real GPU.
package gputest

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
)

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CmdBarrier CommandKind = iota
	CmdBindPipeline
	CmdBindSet
	CmdUpload
	CmdDispatch
)

// Command is one recorded command buffer entry.
type Command struct {
	Kind     CommandKind
	Src, Dst gpu.Stage
	Images   []gpu.ImageBarrier
	Buffers  []gpu.BufferBarrier
	Pipeline *Pipeline
	Set      *DescriptorSet
	Uniform  *UniformBuffer
	Data     []byte
	Groups   [3]uint32
}

// Write is one recorded Device.WriteImage call.
type Write struct {
	Image  *Image
	Level  uint32
	Layer  uint32
	Bytes  int
	Width  uint32
	Height uint32
}

// Device records everything done through it.
type Device struct {
	mu     sync.Mutex
	family gpu.Family

	// HangFences makes fences never signal, so every Wait times out.
	HangFences bool
	// PipelineErr, when set, is returned by CreateComputePipeline.
	PipelineErr error

	Images        []*Image
	Pipelines     []*Pipeline
	Submissions   []*CommandBuffer
	Writes        []Write
	FenceWaits    []time.Duration
	WaitIdleCalls int
	Released      bool
}

var _ gpu.Device = &Device{}

// NewDevice creates a recording device of the given family.
func NewDevice(family gpu.Family) *Device {
	return &Device{family: family}
}

func (d *Device) Family() gpu.Family {
	return d.family
}

func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	if err := gpu.ValidateImageDescriptor(desc); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	img := &Image{desc: desc}
	d.Images = append(d.Images, img)
	return img, nil
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	return &Sampler{Desc: desc}, nil
}

func (d *Device) CreateUniformBuffer(label string, size uint64) (gpu.UniformBuffer, error) {
	return &UniformBuffer{Label: label, size: size}, nil
}

func (d *Device) CreateComputePipeline(desc gpu.ComputePipelineDescriptor) (gpu.ComputePipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PipelineErr != nil {
		return nil, d.PipelineErr
	}
	p := &Pipeline{desc: desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) CreateCommandPool(label string) (gpu.CommandPool, error) {
	return &CommandPool{Label: label}, nil
}

func (d *Device) CreateDescriptorPool(label string, maxSets int) (gpu.DescriptorPool, error) {
	if maxSets <= 0 {
		return nil, fmt.Errorf("gputest: descriptor pool %q needs at least one set", label)
	}
	return &DescriptorPool{Label: label, MaxSets: maxSets}, nil
}

func (d *Device) CreateFence(label string) (gpu.Fence, error) {
	return &Fence{dev: d, Label: label}, nil
}

func (d *Device) WriteImage(img gpu.Image, level, layer uint32, pixels []byte, width, height uint32) error {
	ti, ok := img.(*Image)
	if !ok {
		return fmt.Errorf("gputest: foreign image %T", img)
	}
	r := gpu.SubresourceRange{BaseLevel: level, Levels: 1, BaseLayer: layer, Layers: 1}
	if err := gpu.ValidateRange(ti.desc, r); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Writes = append(d.Writes, Write{Image: ti, Level: level, Layer: layer, Bytes: len(pixels), Width: width, Height: height})
	return nil
}

func (d *Device) Submit(cmd gpu.CommandBuffer, fence gpu.Fence) error {
	cb, ok := cmd.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("gputest: foreign command buffer %T", cmd)
	}
	if !cb.ended {
		return gpu.ErrNotEnded
	}
	d.mu.Lock()
	d.Submissions = append(d.Submissions, cb)
	hang := d.HangFences
	d.mu.Unlock()

	if f, ok := fence.(*Fence); ok && f != nil && !hang {
		f.signaled = true
	}
	return nil
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.WaitIdleCalls++
	return nil
}

func (d *Device) Release() {
	d.Released = true
}

// Commands returns every command of every submission, in order.
func (d *Device) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Command
	for _, s := range d.Submissions {
		out = append(out, s.Commands...)
	}
	return out
}

// Dispatches returns the workgroup counts of every submitted dispatch.
func (d *Device) Dispatches() [][3]uint32 {
	var out [][3]uint32
	for _, c := range d.Commands() {
		if c.Kind == CmdDispatch {
			out = append(out, c.Groups)
		}
	}
	return out
}

// Barriers returns every submitted barrier command.
func (d *Device) Barriers() []Command {
	var out []Command
	for _, c := range d.Commands() {
		if c.Kind == CmdBarrier {
			out = append(out, c)
		}
	}
	return out
}

// Uploads returns every submitted uniform upload.
func (d *Device) Uploads() []Command {
	var out []Command
	for _, c := range d.Commands() {
		if c.Kind == CmdUpload {
			out = append(out, c)
		}
	}
	return out
}

// IdleCalls returns how many times WaitIdle was called.
func (d *Device) IdleCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.WaitIdleCalls
}

// PipelineCount returns how many pipelines with the given label were created.
func (d *Device) PipelineCount(label string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, p := range d.Pipelines {
		if p.desc.Label == label {
			n++
		}
	}
	return n
}

// --- Resources ---

// Image is a recorded image.
type Image struct {
	desc     gpu.ImageDescriptor
	Views    []*ImageView
	Released bool
}

func (i *Image) Descriptor() gpu.ImageDescriptor { return i.desc }

func (i *Image) CreateView(desc gpu.ViewDescriptor) (gpu.ImageView, error) {
	if err := gpu.ValidateView(i.desc, desc); err != nil {
		return nil, err
	}
	v := &ImageView{image: i, desc: desc}
	i.Views = append(i.Views, v)
	return v, nil
}

func (i *Image) Release() { i.Released = true }

// ImageView is a recorded view.
type ImageView struct {
	image    *Image
	desc     gpu.ViewDescriptor
	Released bool
}

func (v *ImageView) Image() gpu.Image               { return v.image }
func (v *ImageView) Descriptor() gpu.ViewDescriptor { return v.desc }
func (v *ImageView) Release()                       { v.Released = true }

// Sampler is a recorded sampler.
type Sampler struct {
	Desc     gpu.SamplerDescriptor
	Released bool
}

func (s *Sampler) Release() { s.Released = true }

// UniformBuffer is a recorded uniform buffer.
type UniformBuffer struct {
	Label    string
	size     uint64
	Released bool
}

func (u *UniformBuffer) Size() uint64 { return u.size }
func (u *UniformBuffer) Release()     { u.Released = true }

// Pipeline is a recorded compute pipeline.
type Pipeline struct {
	desc     gpu.ComputePipelineDescriptor
	Released bool
}

func (p *Pipeline) Descriptor() gpu.ComputePipelineDescriptor { return p.desc }
func (p *Pipeline) Release()                                  { p.Released = true }

// CommandPool hands out recording command buffers.
type CommandPool struct {
	Label    string
	Released bool
}

func (p *CommandPool) Allocate() (gpu.CommandBuffer, error) {
	return &CommandBuffer{}, nil
}

func (p *CommandPool) Release() { p.Released = true }

// CommandBuffer records commands between Begin and End.
type CommandBuffer struct {
	Commands  []Command
	recording bool
	ended     bool
	err       error
}

func (c *CommandBuffer) Reset() {
	c.Commands = nil
	c.recording = false
	c.ended = false
	c.err = nil
}

func (c *CommandBuffer) Begin() error {
	c.Reset()
	c.recording = true
	return nil
}

func (c *CommandBuffer) record(cmd Command) {
	if !c.recording {
		if c.err == nil {
			c.err = gpu.ErrNotRecording
		}
		return
	}
	c.Commands = append(c.Commands, cmd)
}

func (c *CommandBuffer) PipelineBarrier(src, dst gpu.Stage, images []gpu.ImageBarrier, buffers []gpu.BufferBarrier) {
	for _, b := range images {
		if err := gpu.ValidateImageBarrier(b); err != nil && c.err == nil {
			c.err = err
		}
	}
	c.record(Command{
		Kind:    CmdBarrier,
		Src:     src,
		Dst:     dst,
		Images:  append([]gpu.ImageBarrier(nil), images...),
		Buffers: append([]gpu.BufferBarrier(nil), buffers...),
	})
}

func (c *CommandBuffer) BindPipeline(p gpu.ComputePipeline) {
	c.record(Command{Kind: CmdBindPipeline, Pipeline: p.(*Pipeline)})
}

func (c *CommandBuffer) BindDescriptorSet(set gpu.DescriptorSet) {
	c.record(Command{Kind: CmdBindSet, Set: set.(*DescriptorSet)})
}

func (c *CommandBuffer) UpdateUniform(buf gpu.UniformBuffer, data []byte) {
	c.record(Command{Kind: CmdUpload, Uniform: buf.(*UniformBuffer), Data: append([]byte(nil), data...)})
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.record(Command{Kind: CmdDispatch, Groups: [3]uint32{x, y, z}})
}

func (c *CommandBuffer) End() error {
	if !c.recording {
		return gpu.ErrNotRecording
	}
	if c.err != nil {
		return c.err
	}
	c.recording = false
	c.ended = true
	return nil
}

// DescriptorPool hands out descriptor sets up to MaxSets.
type DescriptorPool struct {
	Label    string
	MaxSets  int
	Sets     []*DescriptorSet
	Released bool
}

func (p *DescriptorPool) Allocate(pipeline gpu.ComputePipeline) (gpu.DescriptorSet, error) {
	if len(p.Sets) >= p.MaxSets {
		return nil, gpu.ErrPoolExhausted
	}
	s := &DescriptorSet{
		Pipeline: pipeline.(*Pipeline),
		Views:    make(map[uint32]gpu.ImageView),
		Samplers: make(map[uint32]gpu.Sampler),
		Uniforms: make(map[uint32]gpu.UniformBuffer),
	}
	p.Sets = append(p.Sets, s)
	return s, nil
}

func (p *DescriptorPool) Release() { p.Released = true }

// DescriptorSet records its bindings.
type DescriptorSet struct {
	Pipeline *Pipeline
	Views    map[uint32]gpu.ImageView
	Samplers map[uint32]gpu.Sampler
	Uniforms map[uint32]gpu.UniformBuffer
	Updated  bool
}

func (s *DescriptorSet) BindImageView(binding uint32, view gpu.ImageView) { s.Views[binding] = view }
func (s *DescriptorSet) BindSampler(binding uint32, smp gpu.Sampler)      { s.Samplers[binding] = smp }
func (s *DescriptorSet) BindUniform(binding uint32, buf gpu.UniformBuffer) {
	s.Uniforms[binding] = buf
}

func (s *DescriptorSet) Update() error {
	if err := gpu.ValidateBindings(s.Pipeline.desc.Bindings, s.Views, s.Samplers, s.Uniforms); err != nil {
		return err
	}
	s.Updated = true
	return nil
}

// Fence signals on Submit unless the device hangs fences.
type Fence struct {
	dev      *Device
	Label    string
	signaled bool
	Released bool
}

func (f *Fence) Wait(timeout time.Duration) error {
	f.dev.mu.Lock()
	f.dev.FenceWaits = append(f.dev.FenceWaits, timeout)
	f.dev.mu.Unlock()
	if !f.signaled {
		return &gpu.FenceTimeoutError{Label: f.Label, Timeout: timeout}
	}
	return nil
}

func (f *Fence) Signaled() bool { return f.signaled }
func (f *Fence) Reset()         { f.signaled = false }
func (f *Fence) Release()       { f.Released = true }
