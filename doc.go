// Package framepool is a frame-pipelined GPU resource layer for the gogpu
// stack.
//
// # Overview
//
// An update loop produces immutable draw-node snapshots while an
// independently clocked draw loop turns the latest snapshot into device
// commands. GPU objects whose retirement is only known once the device has
// finished with them are recycled through usage-tagged pools:
//
//   - [github.com/gogpu/framepool/pool]: the generic pool and the fence,
//     staging buffer, sub-texture and staging texture pools
//   - [github.com/gogpu/framepool/batch]: vertex buffers and batches with
//     per-node draw deduplication
//   - [github.com/gogpu/framepool/drawnode]: the snapshot hand-off between
//     loops
//   - [github.com/gogpu/framepool/renderer]: frame bookkeeping that ties the
//     pools together
//   - [github.com/gogpu/framepool/loop]: the update and draw goroutines
//
// # Frames
//
// Once per draw frame the reset id advances. Pools tag every resource with the
// reset id of its last use. When a fence reports that the device has finished
// the work of frame N, every pool releases resources used up to N back to its
// available list. Resources that sit unused for longer than the free interval
// are destroyed.
//
// # Device
//
// The core only talks to [github.com/gogpu/framepool/device.Device]. The
// [github.com/gogpu/framepool/device/haldevice] package adapts a
// github.com/gogpu/wgpu hal device and queue to it.
//
// # Logging
//
// framepool is silent by default. See [SetLogger].
package framepool
