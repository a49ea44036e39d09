// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldevice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepool"
	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/internal/cache"
)

// Errors returned by the adapter.
var (
	// ErrNoRenderTarget is returned by Draw before SetRenderTarget.
	ErrNoRenderTarget = errors.New("haldevice: no render target")

	// ErrForeignResource is returned when a resource created by another
	// device is passed in.
	ErrForeignResource = errors.New("haldevice: resource not created by this device")

	// ErrNoHalProvider is returned by FromProvider when the provider does
	// not expose its hal device and queue.
	ErrNoHalProvider = errors.New("haldevice: provider does not expose hal types")
)

// viewportUniformSize is two vec2<f32>: the target size and padding.
const viewportUniformSize = 16

// submission is a command buffer the queue may still be executing,
// together with the pipelines evicted while it was recorded.
type submission struct {
	index     uint64
	cmd       hal.CommandBuffer
	pipelines []hal.RenderPipeline
}

// Device adapts a hal device and queue to device.Device. Like the renderer
// that drives it, it is owned by the draw goroutine.
type Device struct {
	raw   hal.Device
	queue hal.Queue
	opts  options

	viewportBuf    hal.Buffer
	viewportLayout hal.BindGroupLayout
	viewportGroup  hal.BindGroup
	pipeLayout     hal.PipelineLayout
	modules        map[*gputypes.VertexBufferLayout]hal.ShaderModule
	pipelines      *cache.Cache[pipelineKey, hal.RenderPipeline]

	target       hal.TextureView
	targetFormat gputypes.TextureFormat

	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	passes  int

	inFlight         []submission
	retiredPipelines []hal.RenderPipeline
	closed           bool
}

var _ device.Device = (*Device)(nil)

// New creates an adapter on an open hal device and its queue.
func New(raw hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if raw == nil || queue == nil {
		return nil, errors.New("haldevice: nil device or queue")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		raw:          raw,
		queue:        queue,
		opts:         o,
		modules:      make(map[*gputypes.VertexBufferLayout]hal.ShaderModule),
		targetFormat: o.targetFormat,
	}
	d.pipelines = cache.New[pipelineKey, hal.RenderPipeline](o.pipelines, d.retirePipeline)
	if err := d.init(); err != nil {
		d.destroyShared()
		return nil, err
	}
	framepool.Logger().Info("haldevice: device ready", "label", o.label)
	return d, nil
}

// FromProvider creates an adapter on the device of a host application.
// The provider must expose HalDevice() and HalQueue() returning hal.Device
// and hal.Queue. A surface format reported by the provider becomes the
// initial render target format.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHalProvider
	}
	raw, ok := hp.HalDevice().(hal.Device)
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalProvider)
	}
	if f := p.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithTargetFormat(f)}, opts...)
	}
	return New(raw, queue, opts...)
}

// init creates the viewport uniform and the pipeline layout shared by all
// pipelines.
func (d *Device) init() error {
	var err error
	d.viewportBuf, err = d.raw.CreateBuffer(&hal.BufferDescriptor{
		Label: d.opts.label + "_viewport",
		Size:  viewportUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: viewport uniform: %w", device.ErrAllocation, err)
	}

	d.viewportLayout, err = d.raw.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: d.opts.label + "_viewport_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("haldevice: create viewport layout: %w", err)
	}

	d.viewportGroup, err = d.raw.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  d.opts.label + "_viewport_group",
		Layout: d.viewportLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: d.viewportBuf.NativeHandle(), Offset: 0, Size: viewportUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("haldevice: create viewport bind group: %w", err)
	}

	d.pipeLayout, err = d.raw.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.opts.label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.viewportLayout},
	})
	if err != nil {
		return fmt.Errorf("haldevice: create pipeline layout: %w", err)
	}
	return nil
}

// Raw returns the hal device.
func (d *Device) Raw() hal.Device { return d.raw }

// SetRenderTarget directs subsequent draws to view, a width x height
// texture of the given format. It ends any open render pass; the next draw
// loads the new target unless no pass was opened yet this frame.
func (d *Device) SetRenderTarget(view hal.TextureView, format gputypes.TextureFormat, width, height uint32) error {
	if d.closed {
		return device.ErrDisposed
	}
	d.endPass()
	d.target = view
	d.targetFormat = format

	var u [viewportUniformSize]byte
	binary.LittleEndian.PutUint32(u[0:], math.Float32bits(float32(width)))
	binary.LittleEndian.PutUint32(u[4:], math.Float32bits(float32(height)))
	if err := d.queue.WriteBuffer(d.viewportBuf, 0, u[:]); err != nil {
		return fmt.Errorf("haldevice: write viewport: %w", err)
	}
	return nil
}

// CreateBuffer creates a buffer of size bytes. The hal allocation is rounded
// up to a whole number of words.
func (d *Device) CreateBuffer(size uint64, usage gputypes.BufferUsage) (device.Buffer, error) {
	allocated := alignCopy(size)
	raw, err := d.raw.CreateBuffer(&hal.BufferDescriptor{
		Label: d.opts.label + "_buffer",
		Size:  allocated,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: buffer of %d bytes: %w", device.ErrAllocation, size, err)
	}
	return &Buffer{dev: d, raw: raw, size: size, allocated: allocated, usage: usage}, nil
}

// CreateTexture creates a single-mip 2D texture.
func (d *Device) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	label := desc.Label
	if label == "" {
		label = d.opts.label + "_texture"
	}
	raw, err := d.raw.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %dx%d: %w", device.ErrAllocation, desc.Width, desc.Height, err)
	}
	return &Texture{dev: d, raw: raw, desc: desc}, nil
}

// CreateFence creates an unsignaled fence. It holds no hal object.
func (d *Device) CreateFence() (device.Fence, error) {
	return &Fence{dev: d}, nil
}

// checkAligned reports whether a write of size bytes at offset into a
// buffer of bufSize bytes can be widened to whole words. An unaligned size
// is only allowed when the write ends at bufSize, where the padding lands in
// the allocation slack.
func checkAligned(offset, size, bufSize uint64) error {
	if offset%copyAlignment != 0 {
		return fmt.Errorf("%w: offset %d is not %d-byte aligned", device.ErrOutOfRange, offset, copyAlignment)
	}
	if size%copyAlignment != 0 && offset+size != bufSize {
		return fmt.Errorf("%w: %d bytes at %d is not %d-byte aligned and does not end the buffer",
			device.ErrOutOfRange, size, offset, copyAlignment)
	}
	return nil
}

func (d *Device) buffer(b device.Buffer) (*Buffer, error) {
	hb, ok := b.(*Buffer)
	if !ok || hb.dev != d {
		return nil, ErrForeignResource
	}
	if hb.destroyed {
		return nil, device.ErrDisposed
	}
	return hb, nil
}

func (d *Device) texture(t device.Texture) (*Texture, error) {
	ht, ok := t.(*Texture)
	if !ok || ht.dev != d {
		return nil, ErrForeignResource
	}
	if ht.destroyed {
		return nil, device.ErrDisposed
	}
	return ht, nil
}

// UpdateBuffer writes data into buf at offset through the queue. offset must
// be word aligned, and data must be a whole number of words unless it ends
// the buffer.
func (d *Device) UpdateBuffer(buf device.Buffer, offset uint64, data []byte) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > b.size {
		return device.ErrOutOfRange
	}
	if len(data) == 0 {
		return nil
	}
	if err := checkAligned(offset, uint64(len(data)), b.size); err != nil {
		return err
	}
	if n := alignCopy(uint64(len(data))); n != uint64(len(data)) {
		padded := make([]byte, n)
		copy(padded, data)
		data = padded
	}
	if err := d.queue.WriteBuffer(b.raw, offset, data); err != nil {
		return fmt.Errorf("haldevice: write buffer: %w", err)
	}
	return nil
}

// UpdateTexture writes tightly packed texels into a rectangle of tex through
// the queue.
func (d *Device) UpdateTexture(tex device.Texture, x, y, width, height uint32, data []byte) error {
	t, err := d.texture(tex)
	if err != nil {
		return err
	}
	if x+width > t.desc.Width || y+height > t.desc.Height {
		return device.ErrOutOfRange
	}
	bpp := device.BytesPerPixel(t.desc.Format)
	if bpp == 0 {
		return fmt.Errorf("haldevice: texture format %v cannot be written", t.desc.Format)
	}
	if uint64(len(data)) < uint64(width)*uint64(height)*uint64(bpp) {
		return fmt.Errorf("%w: %d bytes for a %dx%d region", device.ErrOutOfRange, len(data), width, height)
	}
	if width == 0 || height == 0 {
		return nil
	}
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: t.raw,
			Origin:  hal.Origin3D{X: x, Y: y},
			Aspect:  gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{BytesPerRow: width * bpp, RowsPerImage: height},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("haldevice: write texture: %w", err)
	}
	return nil
}

// CopyBuffer records a buffer copy, ending any open render pass. Offsets must
// be word aligned, and size must be a whole number of words unless the copy
// ends dst.
func (d *Device) CopyBuffer(src device.Buffer, srcOffset uint64, dst device.Buffer, dstOffset, size uint64) error {
	s, err := d.buffer(src)
	if err != nil {
		return err
	}
	t, err := d.buffer(dst)
	if err != nil {
		return err
	}
	if srcOffset+size > s.size || dstOffset+size > t.size {
		return device.ErrOutOfRange
	}
	if size == 0 {
		return nil
	}
	if srcOffset%copyAlignment != 0 {
		return fmt.Errorf("%w: source offset %d is not %d-byte aligned", device.ErrOutOfRange, srcOffset, copyAlignment)
	}
	if err := checkAligned(dstOffset, size, t.size); err != nil {
		return err
	}
	// Copies move whole words; the allocations are padded to match.
	n := alignCopy(size)
	if srcOffset+n > s.allocated || dstOffset+n > t.allocated {
		return device.ErrOutOfRange
	}

	enc, err := d.copyEncoder()
	if err != nil {
		return err
	}
	enc.CopyBufferToBuffer(s.raw, t.raw, []hal.BufferCopy{
		{SrcOffset: srcOffset, DstOffset: dstOffset, Size: n},
	})
	return nil
}

// CopyTexture records a texture copy, ending any open render pass.
func (d *Device) CopyTexture(src device.Texture, srcX, srcY uint32, dst device.Texture, dstX, dstY, width, height uint32) error {
	s, err := d.texture(src)
	if err != nil {
		return err
	}
	t, err := d.texture(dst)
	if err != nil {
		return err
	}
	if srcX+width > s.desc.Width || srcY+height > s.desc.Height ||
		dstX+width > t.desc.Width || dstY+height > t.desc.Height {
		return device.ErrOutOfRange
	}
	if width == 0 || height == 0 {
		return nil
	}

	enc, err := d.copyEncoder()
	if err != nil {
		return err
	}
	enc.CopyTextureToTexture(s.raw, t.raw, []hal.TextureCopy{
		{
			SrcBase: hal.ImageCopyTexture{
				Texture: s.raw,
				Origin:  hal.Origin3D{X: srcX, Y: srcY},
				Aspect:  gputypes.TextureAspectAll,
			},
			DstBase: hal.ImageCopyTexture{
				Texture: t.raw,
				Origin:  hal.Origin3D{X: dstX, Y: dstY},
				Aspect:  gputypes.TextureAspectAll,
			},
			Size: hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		},
	})
	return nil
}

// Draw records cmd into the frame's render pass, opening one if needed.
// The first pass of a frame clears the target.
func (d *Device) Draw(cmd device.DrawCommand) error {
	if d.closed {
		return device.ErrDisposed
	}
	vb, err := d.buffer(cmd.Vertices)
	if err != nil {
		return err
	}
	var ib *Buffer
	if cmd.Indices != nil {
		if ib, err = d.buffer(cmd.Indices); err != nil {
			return err
		}
	}
	if cmd.Layout == nil {
		return errors.New("haldevice: draw without vertex layout")
	}
	if d.target == nil {
		return ErrNoRenderTarget
	}
	if cmd.Count == 0 {
		return nil
	}

	p, err := d.pipeline(keyFor(cmd, d.targetFormat))
	if err != nil {
		return err
	}
	pass, err := d.renderPass()
	if err != nil {
		return err
	}
	pass.SetPipeline(p)
	pass.SetVertexBuffer(0, vb.raw, 0)
	if ib != nil {
		pass.SetIndexBuffer(ib.raw, gputypes.IndexFormatUint16, 0)
		pass.DrawIndexed(cmd.Count, 1, cmd.First, 0, 0)
	} else {
		pass.Draw(cmd.Count, 1, cmd.First, 0)
	}
	return nil
}

// Submit ends the frame's encoder and submits it, even when nothing was
// recorded. fence signals once the queue completes the submission.
func (d *Device) Submit(fence device.Fence) error {
	f, ok := fence.(*Fence)
	if !ok || f.dev != d {
		return ErrForeignResource
	}
	if f.destroyed {
		return device.ErrDisposed
	}
	if d.closed {
		return device.ErrDisposed
	}

	// An empty frame still submits so the fence gets an index.
	enc, err := d.ensureEncoder()
	if err != nil {
		return err
	}
	d.endPass()
	cmd, err := enc.EndEncoding()
	d.encoder = nil
	d.passes = 0
	if err != nil {
		return fmt.Errorf("haldevice: end encoding: %w", err)
	}

	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.raw.FreeCommandBuffer(cmd)
		return fmt.Errorf("haldevice: submit: %w", err)
	}
	f.index = index
	d.inFlight = append(d.inFlight, submission{index: index, cmd: cmd, pipelines: d.retiredPipelines})
	d.retiredPipelines = nil

	d.reclaim(d.queue.PollCompleted())
	return nil
}

// WaitIdle blocks until the queue has completed every submission.
func (d *Device) WaitIdle() error {
	if err := d.raw.WaitIdle(); err != nil {
		return fmt.Errorf("haldevice: wait idle: %w", err)
	}
	d.reclaim(d.queue.PollCompleted())
	return nil
}

// Close waits for the device and destroys everything the adapter created.
// Buffers and textures handed out stay owned by their creators. The hal
// device itself is not destroyed.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.encoder != nil {
		d.endPass()
		d.encoder.DiscardEncoding()
		d.encoder = nil
	}
	err := d.raw.WaitIdle()
	if err != nil {
		framepool.Logger().Warn("haldevice: wait idle on close", "err", err)
	}

	d.pipelines.Clear()
	for _, p := range d.retiredPipelines {
		d.raw.DestroyRenderPipeline(p)
	}
	d.retiredPipelines = nil
	d.reclaim(math.MaxUint64)
	d.destroyShared()

	framepool.Logger().Info("haldevice: device closed", "label", d.opts.label)
	if err != nil {
		return fmt.Errorf("haldevice: wait idle: %w", err)
	}
	return nil
}

// destroyShared releases the objects created by init and the shader modules.
func (d *Device) destroyShared() {
	for _, m := range d.modules {
		d.raw.DestroyShaderModule(m)
	}
	d.modules = nil
	if d.pipeLayout != nil {
		d.raw.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.viewportGroup != nil {
		d.raw.DestroyBindGroup(d.viewportGroup)
		d.viewportGroup = nil
	}
	if d.viewportLayout != nil {
		d.raw.DestroyBindGroupLayout(d.viewportLayout)
		d.viewportLayout = nil
	}
	if d.viewportBuf != nil {
		d.raw.DestroyBuffer(d.viewportBuf)
		d.viewportBuf = nil
	}
}

// reclaim frees command buffers and retired pipelines of every submission
// up to and including completed.
func (d *Device) reclaim(completed uint64) {
	kept := d.inFlight[:0]
	for _, s := range d.inFlight {
		if s.index > completed {
			kept = append(kept, s)
			continue
		}
		d.raw.FreeCommandBuffer(s.cmd)
		for _, p := range s.pipelines {
			d.raw.DestroyRenderPipeline(p)
		}
	}
	clear(d.inFlight[len(kept):])
	d.inFlight = kept
}

// ensureEncoder returns the frame's command encoder, starting it if needed.
func (d *Device) ensureEncoder() (hal.CommandEncoder, error) {
	if d.encoder != nil {
		return d.encoder, nil
	}
	enc, err := d.raw.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: d.opts.label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("haldevice: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(d.opts.label + "_frame"); err != nil {
		return nil, fmt.Errorf("haldevice: begin encoding: %w", err)
	}
	d.encoder = enc
	return enc, nil
}

// copyEncoder returns the frame encoder outside of any render pass.
func (d *Device) copyEncoder() (hal.CommandEncoder, error) {
	if d.closed {
		return nil, device.ErrDisposed
	}
	enc, err := d.ensureEncoder()
	if err != nil {
		return nil, err
	}
	d.endPass()
	return enc, nil
}

// renderPass returns the open render pass, beginning one on the render
// target if needed.
func (d *Device) renderPass() (hal.RenderPassEncoder, error) {
	if d.pass != nil {
		return d.pass, nil
	}
	if d.closed {
		return nil, device.ErrDisposed
	}
	enc, err := d.ensureEncoder()
	if err != nil {
		return nil, err
	}

	load := gputypes.LoadOpLoad
	if d.passes == 0 {
		load = gputypes.LoadOpClear
	}
	d.pass = enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: d.opts.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       d.target,
				LoadOp:     load,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: d.opts.clearColor,
			},
		},
	})
	d.pass.SetBindGroup(0, d.viewportGroup, nil)
	d.passes++
	return d.pass, nil
}

func (d *Device) endPass() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass = nil
}
