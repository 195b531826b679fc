// Package executor simulates the work performed by a dispatched task. A
// task "runs" for a uniformly sampled duration and reports liveness at a fixed
// heartbeat; no real computation takes place.
package executor
