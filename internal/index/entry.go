package index

import (
	"path/filepath"
	"strings"
)

// Entry is one indexed image file together with its extracted prompt.
// Entries are immutable: scans build complete new slices and the
// controller swaps them in wholesale, so readers never observe a
// partially updated collection.
type Entry struct {
	Path   string
	Prompt string

	promptLower string
}

// NewEntry builds an Entry, caching the lowercased prompt used by the
// filter engine.
func NewEntry(path, prompt string) Entry {
	return Entry{
		Path:        path,
		Prompt:      prompt,
		promptLower: strings.ToLower(prompt),
	}
}

// FileName returns the last path component.
func (e Entry) FileName() string {
	return filepath.Base(e.Path)
}

// PromptLower returns the lowercased prompt. Entries built through
// NewEntry return the cached form; zero-value entries compute it.
func (e Entry) PromptLower() string {
	if e.promptLower == "" && e.Prompt != "" {
		return strings.ToLower(e.Prompt)
	}
	return e.promptLower
}
