// Package task defines the unit of work admitted by the scheduler together
// with its lifecycle states (ready, running, finished).
package task
