// Package testdevice provides a recording device.Device for tests.
package testdevice

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/device"
)

// Buffer is an in-memory device.Buffer.
type Buffer struct {
	ID        int
	Data      []byte
	usage     gputypes.BufferUsage
	Destroyed bool
}

func (b *Buffer) Size() uint64                { return uint64(len(b.Data)) }
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }
func (b *Buffer) Destroy()                    { b.Destroyed = true }

// Texture is a device.Texture without storage.
type Texture struct {
	ID        int
	Desc      device.TextureDescriptor
	Destroyed bool
}

func (t *Texture) Width() uint32                  { return t.Desc.Width }
func (t *Texture) Height() uint32                 { return t.Desc.Height }
func (t *Texture) Format() gputypes.TextureFormat { return t.Desc.Format }
func (t *Texture) Destroy()                       { t.Destroyed = true }

// Fence is a manually signaled device.Fence.
type Fence struct {
	ID        int
	signaled  bool
	Resets    int
	ResetErr  error
	Destroyed bool
}

// Signal marks the fence as completed.
func (f *Fence) Signal() { f.signaled = true }

func (f *Fence) Signaled() bool { return f.signaled }
func (f *Fence) Destroy()       { f.Destroyed = true }

func (f *Fence) Reset() error {
	if f.ResetErr != nil {
		return f.ResetErr
	}
	f.Resets++
	f.signaled = false
	return nil
}

// Copy records one CopyBuffer or CopyTexture call.
type Copy struct {
	Src, Dst any
	SrcX     uint64
	SrcY     uint32
	DstX     uint64
	DstY     uint32
	Width    uint64
	Height   uint32
}

// Device records every call it receives.
type Device struct {
	Buffers  []*Buffer
	Textures []*Texture
	Fences   []*Fence

	Draws     []device.DrawCommand
	Copies    []Copy
	Uploads   int
	Submitted []*Fence

	// SignalOnSubmit signals every fence as soon as it is submitted.
	SignalOnSubmit bool
	// FailCreate, when set, is returned by the next Create call.
	FailCreate error

	nextID int
}

// New returns an empty recording device.
func New() *Device {
	return &Device{}
}

var _ device.Device = (*Device)(nil)

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

func (d *Device) takeFailure() error {
	err := d.FailCreate
	d.FailCreate = nil
	if err != nil {
		return fmt.Errorf("%w: %w", device.ErrAllocation, err)
	}
	return nil
}

func (d *Device) CreateBuffer(size uint64, usage gputypes.BufferUsage) (device.Buffer, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	b := &Buffer{ID: d.id(), Data: make([]byte, size), usage: usage}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	t := &Texture{ID: d.id(), Desc: desc}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateFence() (device.Fence, error) {
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	f := &Fence{ID: d.id()}
	d.Fences = append(d.Fences, f)
	return f, nil
}

func (d *Device) UpdateBuffer(buf device.Buffer, offset uint64, data []byte) error {
	b := buf.(*Buffer)
	if b.Destroyed {
		return device.ErrDisposed
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) || !aligned(offset, uint64(len(data)), b.Size()) {
		return device.ErrOutOfRange
	}
	copy(b.Data[offset:], data)
	d.Uploads++
	return nil
}

func (d *Device) UpdateTexture(tex device.Texture, x, y, width, height uint32, _ []byte) error {
	t := tex.(*Texture)
	if t.Destroyed {
		return device.ErrDisposed
	}
	if x+width > t.Desc.Width || y+height > t.Desc.Height {
		return device.ErrOutOfRange
	}
	d.Uploads++
	return nil
}

// aligned applies the device.CopyAlignment rule to a write of size bytes
// at offset into a buffer of bufSize bytes.
func aligned(offset, size, bufSize uint64) bool {
	return offset%device.CopyAlignment == 0 &&
		(size%device.CopyAlignment == 0 || offset+size == bufSize)
}

func (d *Device) CopyBuffer(src device.Buffer, srcOffset uint64, dst device.Buffer, dstOffset, size uint64) error {
	s, t := src.(*Buffer), dst.(*Buffer)
	if s.Destroyed || t.Destroyed {
		return device.ErrDisposed
	}
	if srcOffset+size > s.Size() || dstOffset+size > t.Size() ||
		srcOffset%device.CopyAlignment != 0 || !aligned(dstOffset, size, t.Size()) {
		return device.ErrOutOfRange
	}
	copy(t.Data[dstOffset:dstOffset+size], s.Data[srcOffset:srcOffset+size])
	d.Copies = append(d.Copies, Copy{Src: s, Dst: t, SrcX: srcOffset, DstX: dstOffset, Width: size})
	return nil
}

func (d *Device) CopyTexture(src device.Texture, srcX, srcY uint32, dst device.Texture, dstX, dstY, width, height uint32) error {
	s, t := src.(*Texture), dst.(*Texture)
	if s.Destroyed || t.Destroyed {
		return device.ErrDisposed
	}
	d.Copies = append(d.Copies, Copy{
		Src: s, Dst: t,
		SrcX: uint64(srcX), SrcY: srcY,
		DstX: uint64(dstX), DstY: dstY,
		Width: uint64(width), Height: height,
	})
	return nil
}

func (d *Device) Draw(cmd device.DrawCommand) error {
	if b, ok := cmd.Vertices.(*Buffer); !ok || b.Destroyed {
		return device.ErrDisposed
	}
	d.Draws = append(d.Draws, cmd)
	return nil
}

func (d *Device) Submit(fence device.Fence) error {
	f := fence.(*Fence)
	if f.Destroyed {
		return device.ErrDisposed
	}
	if d.SignalOnSubmit {
		f.Signal()
	}
	d.Submitted = append(d.Submitted, f)
	return nil
}

func (d *Device) WaitIdle() error {
	for _, f := range d.Submitted {
		f.Signal()
	}
	return nil
}

// DrawCounts returns the Count of every recorded draw.
func (d *Device) DrawCounts() []uint32 {
	out := make([]uint32, len(d.Draws))
	for i, cmd := range d.Draws {
		out[i] = cmd.Count
	}
	return out
}

// LiveBuffers returns how many buffers have not been destroyed.
func (d *Device) LiveBuffers() int {
	n := 0
	for _, b := range d.Buffers {
		if !b.Destroyed {
			n++
		}
	}
	return n
}

// LiveTextures returns how many textures have not been destroyed.
func (d *Device) LiveTextures() int {
	n := 0
	for _, t := range d.Textures {
		if !t.Destroyed {
			n++
		}
	}
	return n
}
