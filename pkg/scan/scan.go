package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sameehj/gameshelf/pkg/ignore"
)

// Scanner discovers cover images and launchable files inside a game
// folder. Extension sets carry the leading dot and are matched
// case-insensitively.
type Scanner struct {
	ImageExts []string
	ExecExts  []string
	MaxDepth  int
}

// RootImages lists image files directly inside dir, sorted
// case-insensitively. Unreadable directories yield no results.
func (s *Scanner) RootImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if hasExt(entry.Name(), s.ImageExts) {
			names = append(names, entry.Name())
		}
	}
	sortFolded(names)
	return names
}

// Executables walks dir breadth-first looking for launchable files and
// returns their paths relative to dir in slash form, sorted
// case-insensitively.
//
// The walk locks onto the first depth where any executable shows up:
// only files at exactly that depth are collected, directories that
// contain hits are not descended into, and nothing deeper is enqueued
// once the lock is set. Depth s.MaxDepth itself is still collectible.
// Directories other than dir itself are skipped when the ignore rules
// match their path relative to scanRoot; unreadable directories are
// skipped silently.
func (s *Scanner) Executables(dir, scanRoot string, rules []ignore.Rule) []string {
	type frame struct {
		dir   string
		depth int
	}

	queue := []frame{{dir: dir, depth: 0}}
	foundDepth := -1
	var results []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > s.MaxDepth {
			continue
		}
		if cur.dir != dir {
			rel, err := filepath.Rel(scanRoot, cur.dir)
			if err == nil && ignore.Ignored(filepath.ToSlash(rel), rules) {
				continue
			}
		}

		entries, err := os.ReadDir(cur.dir)
		if err != nil {
			continue
		}

		var files, dirs []string
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, entry.Name())
				continue
			}
			if hasExt(entry.Name(), s.ExecExts) {
				files = append(files, entry.Name())
			}
		}

		if len(files) > 0 {
			if foundDepth < 0 {
				foundDepth = cur.depth
			}
			if cur.depth == foundDepth {
				for _, name := range files {
					rel, err := filepath.Rel(dir, filepath.Join(cur.dir, name))
					if err != nil {
						continue
					}
					results = append(results, filepath.ToSlash(rel))
				}
			}
			continue
		}

		if foundDepth < 0 {
			for _, name := range dirs {
				queue = append(queue, frame{dir: filepath.Join(cur.dir, name), depth: cur.depth + 1})
			}
		}
	}

	sortFolded(results)
	return results
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func sortFolded(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
}
