// Package settings persists user preferences (startup folder, folder
// presets, grid layout) to a JSON file. Loading never fails: a missing
// or corrupt file yields defaults, and every mutation writes through
// immediately.
package settings
