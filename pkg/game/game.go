package game

import (
	"os"
	"path/filepath"

	"github.com/sameehj/gameshelf/pkg/cover"
	"github.com/sameehj/gameshelf/pkg/ignore"
	"github.com/sameehj/gameshelf/pkg/scan"
)

// Game couples a folder on disk with its metadata and scan results.
type Game struct {
	Folder string
	Rel    string
	ID     string
	Meta   Meta
	Execs  []string
	Images []string
}

// Library reads games out of a root folder. Every call re-reads the
// disk so external edits to folders, metadata, and ignore rules show
// up without a restart.
type Library struct {
	Root         string
	Scanner      *scan.Scanner
	MetaFile     string
	IgnoreFile   string
	TargetAspect float64
}

// Games lists every game folder directly under the root in name
// order. A missing or unreadable root yields an empty library.
func (lib *Library) Games() []Game {
	entries, err := os.ReadDir(lib.Root)
	if err != nil {
		return nil
	}
	rules := lib.ignoreRules()
	var games []Game
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if ignore.Ignored(entry.Name(), rules) {
			continue
		}
		folder := filepath.Join(lib.Root, entry.Name())
		games = append(games, lib.assemble(folder, entry.Name(), rules))
	}
	return games
}

// Get resolves an encoded game id. Ids that decode outside the root,
// or to anything that is not an existing directory, report
// ErrNotFound.
func (lib *Library) Get(id string) (Game, error) {
	rel, err := DecodeID(id)
	if err != nil {
		return Game{}, ErrNotFound
	}
	folder, relClean, err := resolveFolder(lib.Root, rel)
	if err != nil {
		return Game{}, ErrNotFound
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return Game{}, ErrNotFound
	}
	return lib.assemble(folder, relClean, lib.ignoreRules()), nil
}

// Folder resolves an encoded game id to its directory without
// scanning, for handlers that only need the path.
func (lib *Library) Folder(id string) (string, error) {
	rel, err := DecodeID(id)
	if err != nil {
		return "", ErrNotFound
	}
	folder, _, err := resolveFolder(lib.Root, rel)
	if err != nil {
		return "", ErrNotFound
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return "", ErrNotFound
	}
	return folder, nil
}

func (lib *Library) ignoreRules() []ignore.Rule {
	rules, _ := ignore.Load(filepath.Join(lib.Root, lib.IgnoreFile))
	return rules
}

// assemble loads metadata and scan results for one folder, picking
// and persisting a cover on first sight of an uncovered game.
func (lib *Library) assemble(folder, rel string, rules []ignore.Rule) Game {
	meta := LoadMeta(folder, lib.MetaFile)
	images := lib.Scanner.RootImages(folder)
	execs := lib.Scanner.Executables(folder, lib.Root, rules)
	if meta.CoverImage == "" && len(images) > 0 {
		if chosen, ok := cover.Pick(folder, images, lib.TargetAspect); ok {
			meta.CoverImage = chosen
			// Best effort: a read-only folder still gets the cover
			// for this response, it just will not stick.
			_ = SaveMeta(folder, lib.MetaFile, meta)
		}
	}
	return Game{
		Folder: folder,
		Rel:    rel,
		ID:     EncodeID(rel),
		Meta:   meta,
		Execs:  execs,
		Images: images,
	}
}
