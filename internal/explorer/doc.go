// Package explorer is the application controller. It owns the active
// folder, runs scans in the background, marshals their results onto
// the run loop with request-id supersession, applies the filter
// engine, and emits typed events the presentation layer renders.
package explorer
