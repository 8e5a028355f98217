// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Small reusable-buffer and reusable-object pooling: BytePool backs the
// frame codec's close-frame encoding to avoid an allocation per encoded
// frame on the hot outbound path, and the generic SyncPool backs the
// runtime command layer's per-call result channels. Trimmed from the
// teacher's NUMA-aware pooling layer down to the two allocation-free
// primitives a single-socket WebSocket client actually needs.
package pool
