package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// File is the settings store kept at the top of the games root. The
// leading underscore keeps it from ever being mistaken for a game
// folder.
const File = "_gameshelf.json"

// Settings holds library-wide options editable at runtime.
type Settings struct {
	// DefaultSandboxed decides whether launches without an explicit
	// sandbox choice run inside Sandboxie.
	DefaultSandboxed bool `json:"default_sandboxed"`
}

// Load reads the settings file under root. Fields missing from the
// file keep their defaults, and a missing or unreadable file yields
// the defaults outright so a broken store never blocks the library.
func Load(root string) Settings {
	s := Settings{DefaultSandboxed: true}
	data, err := os.ReadFile(filepath.Join(root, File))
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{DefaultSandboxed: true}
	}
	return s
}

// Save writes the settings file under root.
func Save(root string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, File), data, 0o644)
}
