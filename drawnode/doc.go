// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package drawnode hands drawable state from the update loop to the draw
// loop.
//
// A Node lives on the update side. Once per frame ApplyState turns it into
// an immutable Snapshot stamped with the node's invalidation id and its
// position in the frame's draw order. A Producer collects the snapshots of
// one traversal into a Frame and publishes it on an Exchange; the draw loop
// takes the latest Frame without ever blocking the update loop, and reuses
// the previous one when the update loop falls behind.
//
// The draw side never reads a Node. Snapshots are the only state the vertex
// batch's reuse decision depends on.
package drawnode
