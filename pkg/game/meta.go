package game

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SandboxMode is a game's sandbox preference. The zero value inherits
// the library-wide default.
type SandboxMode int

const (
	SandboxInherit SandboxMode = iota
	SandboxOn
	SandboxOff
)

// ParseSandboxMode maps the API's "on"/"off" strings onto a mode;
// anything else inherits.
func ParseSandboxMode(s string) SandboxMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "sandboxed":
		return SandboxOn
	case "off", "normal":
		return SandboxOff
	}
	return SandboxInherit
}

// Effective resolves the mode against the library default.
func (m SandboxMode) Effective(globalDefault bool) bool {
	switch m {
	case SandboxOn:
		return true
	case SandboxOff:
		return false
	}
	return globalDefault
}

func (m SandboxMode) String() string {
	switch m {
	case SandboxOn:
		return "on"
	case SandboxOff:
		return "off"
	}
	return "global"
}

// MarshalJSON writes the tri-state the way metadata files have always
// stored it: true, false, or null for inherit.
func (m SandboxMode) MarshalJSON() ([]byte, error) {
	switch m {
	case SandboxOn:
		return []byte("true"), nil
	case SandboxOff:
		return []byte("false"), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts booleans plus the legacy null, "", and
// "global" spellings of inherit. Unknown values inherit rather than
// fail so hand-edited files stay loadable.
func (m *SandboxMode) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		if t {
			*m = SandboxOn
		} else {
			*m = SandboxOff
		}
	case string:
		*m = ParseSandboxMode(t)
	default:
		*m = SandboxInherit
	}
	return nil
}

// Launcher is one configured way to start a game, pointing at a file
// inside the game folder plus optional extra arguments.
type Launcher struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	RelPath string `json:"relpath"`
	Args    string `json:"args"`
}

// Meta is the per-game metadata record stored alongside the game
// files. Command carries the single command string older records used
// before launchers existed; loading migrates it and clears the field.
type Meta struct {
	Title        string      `json:"title"`
	CoverImage   string      `json:"cover_image"`
	Sandboxed    SandboxMode `json:"sandboxed"`
	Launchers    []Launcher  `json:"launchers"`
	LastLauncher string      `json:"last_launcher"`
	Command      string      `json:"command"`
}

// LoadMeta reads the metadata file inside folder. Any read or parse
// problem falls back to a default record titled after the folder, so a
// corrupt file never hides a game.
func LoadMeta(folder, metaFile string) Meta {
	m := defaultMeta(folder)
	data, err := os.ReadFile(filepath.Join(folder, metaFile))
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return defaultMeta(folder)
	}
	m.normalize(filepath.Base(folder))
	return m
}

func defaultMeta(folder string) Meta {
	return Meta{Title: filepath.Base(folder), Launchers: []Launcher{}}
}

func (m *Meta) normalize(defaultTitle string) {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = defaultTitle
	}
	var kept []Launcher
	for _, l := range m.Launchers {
		if l.RelPath == "" {
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.Name == "" {
			l.Name = "Launch"
		}
		kept = append(kept, l)
	}
	m.Launchers = kept
	if len(m.Launchers) == 0 && m.Command != "" {
		m.Launchers = []Launcher{{
			ID:      uuid.NewString(),
			Name:    stemOf(m.Command),
			RelPath: m.Command,
		}}
		m.Command = ""
	}
	if m.Launchers == nil {
		m.Launchers = []Launcher{}
	}
}

// SaveMeta writes the metadata file inside folder.
func SaveMeta(folder, metaFile string, m Meta) error {
	if m.Launchers == nil {
		m.Launchers = []Launcher{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(folder, metaFile), data, 0o644)
}

// LauncherByID finds a configured launcher.
func (m *Meta) LauncherByID(id string) (Launcher, bool) {
	for _, l := range m.Launchers {
		if l.ID == id {
			return l, true
		}
	}
	return Launcher{}, false
}

// ResolveLauncher picks the launcher a launch request refers to:
// explicit id first, then name (case-insensitive), then the remembered
// last launcher, and finally the only one configured.
func (m *Meta) ResolveLauncher(ref string) (Launcher, bool) {
	if ref != "" {
		if l, ok := m.LauncherByID(ref); ok {
			return l, true
		}
		for _, l := range m.Launchers {
			if strings.EqualFold(l.Name, ref) {
				return l, true
			}
		}
		return Launcher{}, false
	}
	if m.LastLauncher != "" {
		if l, ok := m.LauncherByID(m.LastLauncher); ok {
			return l, true
		}
	}
	if len(m.Launchers) == 1 {
		return m.Launchers[0], true
	}
	return Launcher{}, false
}

// AddLauncher appends a launcher for relPath unless one already points
// at it. A blank name defaults to the file's stem.
func (m *Meta) AddLauncher(relPath, name, args string) (Launcher, bool) {
	for _, l := range m.Launchers {
		if l.RelPath == relPath {
			return l, false
		}
	}
	if strings.TrimSpace(name) == "" {
		name = stemOf(relPath)
	}
	l := Launcher{ID: uuid.NewString(), Name: name, RelPath: relPath, Args: args}
	m.Launchers = append(m.Launchers, l)
	return l, true
}

// UpdateLauncher applies a rename or argument change. A nil field is
// left alone; a blank name keeps the old one; args may be cleared.
func (m *Meta) UpdateLauncher(id string, name, args *string) bool {
	for i := range m.Launchers {
		if m.Launchers[i].ID != id {
			continue
		}
		if name != nil && strings.TrimSpace(*name) != "" {
			m.Launchers[i].Name = strings.TrimSpace(*name)
		}
		if args != nil {
			m.Launchers[i].Args = strings.TrimSpace(*args)
		}
		return true
	}
	return false
}

// RemoveLauncher deletes a launcher and clears a dangling
// last-launcher reference.
func (m *Meta) RemoveLauncher(id string) bool {
	var kept []Launcher
	removed := false
	for _, l := range m.Launchers {
		if l.ID == id {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	if !removed {
		return false
	}
	if kept == nil {
		kept = []Launcher{}
	}
	m.Launchers = kept
	if m.LastLauncher == id {
		m.LastLauncher = ""
	}
	return true
}

func stemOf(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return "Launch"
	}
	return stem
}
