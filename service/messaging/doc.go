// Package messaging defines the queue abstraction used to stream scheduler
// lifecycle events to observers.
package messaging
