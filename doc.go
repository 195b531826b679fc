// Package simos simulates two resource-management subsystems of an operating
// system kernel: a contiguous-memory allocator partitioning one flat address
// range, and a first-come-first-served process scheduler that reserves
// memory on admission and reclaims it when a process completes.
//
// The root package exposes the Service façade wiring both together:
//
//	srv, _ := simos.New(simos.WithConfig(cfg))
//	_ = srv.Start(ctx)
//	pid, err := srv.CreateProcess(ctx, "editor", 512)
//	...
//	_ = srv.Stop()
//
// Lifecycle events are published to an in-memory queue (see Events) and every
// admitted task is kept in a history store (see Task and Tasks).
package simos
