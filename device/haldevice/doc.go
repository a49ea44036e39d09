// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package haldevice implements device.Device on a github.com/gogpu/wgpu hal
// device and queue.
//
// The adapter records one command encoder per frame. Copies and draws are
// encoded in call order; a copy ends any open render pass, and the next draw
// opens a new pass on the render target. The first pass of a frame clears
// the target to the clear color, later passes load it.
//
// UpdateBuffer and UpdateTexture go through the queue's immediate write path
// and land before the commands of the next submission. framepool's renderer
// uploads through pooled staging buffers that are never written twice in one
// frame, which keeps that ordering equivalent to call order.
//
// Fences are submission-index fences: Submit stores the index the queue
// returns and a fence is signaled once queue.PollCompleted reaches it.
//
// Vertex positions are in target pixels with the origin at the top left. The
// default shaders map them to clip space through a viewport uniform bound at
// group 0, binding 0. Shaders are WGSL, compiled to SPIR-V with naga.
package haldevice
