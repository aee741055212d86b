package game

import (
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
)

// ErrNotFound reports a game id that does not resolve to a directory
// inside the games root.
var ErrNotFound = errors.New("game not found")

// EncodeID turns a root-relative folder path into a URL-safe game id.
func EncodeID(rel string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rel))
}

// DecodeID reverses EncodeID. Padded ids are accepted for
// compatibility with external encoders.
func DecodeID(id string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(id, "="))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// resolveFolder maps a decoded relative path onto the games root and
// rejects anything that climbs out of it. It returns the absolute
// folder path plus the cleaned root-relative path in slash form.
func resolveFolder(root, rel string) (folder, relClean string, err error) {
	if rel == "" || strings.HasPrefix(rel, "/") || filepath.IsAbs(filepath.FromSlash(rel)) {
		return "", "", ErrNotFound
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", "", err
	}
	folder = filepath.Join(rootAbs, filepath.FromSlash(rel))
	inside, err := filepath.Rel(rootAbs, folder)
	if err != nil {
		return "", "", ErrNotFound
	}
	if inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", "", ErrNotFound
	}
	return folder, filepath.ToSlash(inside), nil
}
