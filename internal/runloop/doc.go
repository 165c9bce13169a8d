// Package runloop provides the interactive-thread scheduling
// primitives: a single-consumer task queue (Loop), a trigger coalescer
// (Debouncer), and monotonic request identifiers (Requests) used to
// discard stale asynchronous results.
//
// The concurrency model of the whole application hangs off Loop: scans
// run on worker goroutines, but every state mutation they cause is
// posted back here, so the grid, the thumbnail cache, and selection
// state need no locking of their own.
package runloop
