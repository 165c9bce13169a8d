// Package index builds and filters the entry collection for a folder
// of PNG images.
//
// The Scanner enumerates files in sorted name order and extracts
// prompt metadata on a bounded worker pool, reporting throttled
// progress as it goes. Completion order never affects result order.
// When a persistent prompt cache is attached, unchanged files are
// served from it without re-reading the PNG.
//
// Filter implements the two search modes: exact substring and
// comma-separated AND of tokens. Both are case-insensitive and
// order-preserving.
package index
