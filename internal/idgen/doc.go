// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Run and event identifiers are opaque strings; task ids are minted by the
// scheduler itself and do not come from here.
package idgen
