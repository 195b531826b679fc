// Package memory defines the value types describing a partitioned address
// space: regions and usage statistics. The allocator that owns them lives in
// service/memory; everything here is a plain copy safe to hand to callers.
package memory
