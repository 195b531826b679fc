// Package tracing wraps OpenTelemetry so that the allocator and scheduler can
// record spans (admission, task execution) without importing the upstream
// packages directly. Tracing is opt-in: until Init is called spans are no-op.
package tracing
