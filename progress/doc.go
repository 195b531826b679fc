// Package progress defines primitives for reporting and aggregating the
// progress of a scheduler run: how many tasks were admitted or rejected and
// how many are queued, running, finished or cancelled at any moment.
package progress
