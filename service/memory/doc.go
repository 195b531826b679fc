// Package memory implements the contiguous-memory allocator. It owns the
// partition of a fixed address range into ordered, non-overlapping regions,
// serves first-fit allocations and coalesces adjacent free regions on every
// release. All operations are serialised by a single mutex and never block
// on anything else.
package memory
