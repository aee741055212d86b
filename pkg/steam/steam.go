package steam

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/andygrunwald/vdf"
)

// Library is one Steam library folder plus the app ids installed in
// it.
type Library struct {
	Path string
	Apps []string
}

// Libraries lists the library folders configured in the local Steam
// client. A host without Steam yields nil and no error; only a
// present-but-unreadable manifest is reported.
func Libraries() ([]Library, error) {
	root := steamRoot()
	if root == "" {
		return nil, nil
	}
	return librariesFrom(filepath.Join(root, "steamapps", "libraryfolders.vdf"))
}

// librariesFrom parses a libraryfolders.vdf manifest. Both the modern
// per-folder object format and the old flat index-to-path format are
// understood.
func librariesFrom(path string) ([]Library, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	parsed, err := vdf.NewParser(f).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	folders, ok := parsed["libraryfolders"].(map[string]interface{})
	if !ok {
		folders, ok = parsed["LibraryFolders"].(map[string]interface{})
	}
	if !ok {
		return nil, nil
	}

	var libs []Library
	for _, key := range numericKeys(folders) {
		switch entry := folders[key].(type) {
		case string:
			libs = append(libs, Library{Path: entry})
		case map[string]interface{}:
			folderPath, _ := entry["path"].(string)
			if folderPath == "" {
				continue
			}
			lib := Library{Path: folderPath}
			if apps, ok := entry["apps"].(map[string]interface{}); ok {
				for id := range apps {
					lib.Apps = append(lib.Apps, id)
				}
				sort.Strings(lib.Apps)
			}
			libs = append(libs, lib)
		}
	}
	return libs, nil
}

// numericKeys returns the folder index keys in order, skipping
// bookkeeping entries like TimeNextStatsReport.
func numericKeys(m map[string]interface{}) []string {
	type indexed struct {
		key string
		n   int
	}
	var keys []indexed
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		keys = append(keys, indexed{key: k, n: n})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].n < keys[j].n })
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.key
	}
	return out
}
