// Package database implements the persistent prompt cache, a small
// SQLite store keyed by file path. A cached row is considered valid
// while the file's size and modification time are unchanged, which
// lets a re-scan of a large folder skip metadata extraction for every
// file the user has not touched.
package database
