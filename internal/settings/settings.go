package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"prompt-explorer/internal/logging"
)

// Settings holds the user preferences persisted between sessions.
type Settings struct {
	DefaultFolder string   `mapstructure:"default_folder"`
	Presets       []string `mapstructure:"presets"`
	Columns       int      `mapstructure:"columns"`
	ThumbSize     int      `mapstructure:"thumb_size"`
}

// Store loads and persists Settings through a JSON file. Mutations
// write through immediately; a failed write is logged and the
// in-memory state keeps going, so preferences degrade to
// session-only rather than blocking the user.
type Store struct {
	v    *viper.Viper
	path string

	current Settings
}

// DefaultPath returns the settings file location under the user's home
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".prompt-explorer", "settings.json")
	}
	return filepath.Join(home, ".prompt-explorer", "settings.json")
}

// Load opens the store at path. A missing or unreadable file is not an
// error: the store starts from defaults and the file appears on the
// first mutation.
func Load(path string) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("default_folder", "")
	v.SetDefault("presets", []string{})
	v.SetDefault("columns", 5)
	v.SetDefault("thumb_size", 160)

	if err := v.ReadInConfig(); err != nil {
		logging.Debug("Settings: starting from defaults (%v)", err)
	}

	s := &Store{v: v, path: path}
	if err := v.Unmarshal(&s.current); err != nil {
		logging.Warn("Settings: unmarshal failed, using defaults: %v", err)
		s.current = Settings{Columns: 5, ThumbSize: 160}
	}
	return s
}

// Current returns a copy of the settings.
func (s *Store) Current() Settings {
	out := s.current
	out.Presets = append([]string(nil), s.current.Presets...)
	return out
}

// SetDefaultFolder sets the folder opened at startup.
func (s *Store) SetDefaultFolder(folder string) {
	s.current.DefaultFolder = filepath.Clean(folder)
	s.save()
}

// AddPreset appends a folder preset, preserving insertion order.
// Duplicates are compared on the cleaned path and suppressed.
func (s *Store) AddPreset(folder string) bool {
	cleaned := filepath.Clean(folder)
	for _, p := range s.current.Presets {
		if filepath.Clean(p) == cleaned {
			return false
		}
	}
	s.current.Presets = append(s.current.Presets, cleaned)
	s.save()
	return true
}

// RemovePreset deletes a preset by cleaned-path comparison and reports
// whether anything was removed.
func (s *Store) RemovePreset(folder string) bool {
	cleaned := filepath.Clean(folder)
	kept := s.current.Presets[:0]
	removed := false
	for _, p := range s.current.Presets {
		if filepath.Clean(p) == cleaned {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if removed {
		s.current.Presets = kept
		s.save()
	}
	return removed
}

// SetColumns persists the grid column count.
func (s *Store) SetColumns(columns int) {
	if columns < 1 {
		columns = 1
	}
	s.current.Columns = columns
	s.save()
}

// SetThumbSize persists the thumbnail pixel size.
func (s *Store) SetThumbSize(px int) {
	s.current.ThumbSize = px
	s.save()
}

func (s *Store) save() {
	s.v.Set("default_folder", s.current.DefaultFolder)
	s.v.Set("presets", s.current.Presets)
	s.v.Set("columns", s.current.Columns)
	s.v.Set("thumb_size", s.current.ThumbSize)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		logging.Warn("Settings: %v", err)
		return
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		logging.Warn("Settings: write failed: %v", err)
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s Settings) String() string {
	return fmt.Sprintf("default=%q presets=%d columns=%d thumb=%d",
		s.DefaultFolder, len(s.Presets), s.Columns, s.ThumbSize)
}
