package game

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sameehj/gameshelf/pkg/scan"
)

func testLibrary(root string) *Library {
	return &Library{
		Root: root,
		Scanner: &scan.Scanner{
			ImageExts: []string{".png", ".jpg", ".jpeg", ".webp"},
			ExecExts:  []string{".exe", ".bat", ".cmd", ".com", ".sh", ".py"},
			MaxDepth:  3,
		},
		MetaFile:     "game.json",
		IgnoreFile:   ".gameshelfignore",
		TargetAspect: 0.75,
	}
}

func mkGame(t *testing.T, root, name string, files ...string) string {
	t.Helper()
	folder := filepath.Join(root, name)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, f := range files {
		path := filepath.Join(folder, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return folder
}

func mkPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestEncodeDecodeID(t *testing.T) {
	for _, rel := range []string{"Alpha", "with space", "nested/path", "ünïcode"} {
		id := EncodeID(rel)
		got, err := DecodeID(id)
		if err != nil {
			t.Fatalf("decode %q: %v", id, err)
		}
		if got != rel {
			t.Fatalf("round trip %q = %q", rel, got)
		}
	}
	// Padded ids from external encoders decode too.
	if got, err := DecodeID(EncodeID("ab") + "=="); err != nil || got != "ab" {
		t.Fatalf("padded decode = %q, %v", got, err)
	}
}

func TestGetRejectsEscapingIDs(t *testing.T) {
	root := t.TempDir()
	mkGame(t, root, "Legit")
	lib := testLibrary(root)

	for _, rel := range []string{"../evil", "Legit/../../evil", "/etc", ""} {
		if _, err := lib.Get(EncodeID(rel)); err != ErrNotFound {
			t.Fatalf("Get(%q) err = %v, want ErrNotFound", rel, err)
		}
	}
	if _, err := lib.Get("!!!not base64!!!"); err != ErrNotFound {
		t.Fatalf("Get of junk id err = %v, want ErrNotFound", err)
	}
}

func TestGetMissingGame(t *testing.T) {
	lib := testLibrary(t.TempDir())
	if _, err := lib.Get(EncodeID("Absent")); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetAssemblesGame(t *testing.T) {
	root := t.TempDir()
	mkGame(t, root, "Quest", "bin/run.exe", "readme.txt")
	lib := testLibrary(root)

	g, err := lib.Get(EncodeID("Quest"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.Rel != "Quest" || g.ID != EncodeID("Quest") {
		t.Fatalf("rel/id = %q/%q", g.Rel, g.ID)
	}
	if g.Meta.Title != "Quest" {
		t.Fatalf("title = %q", g.Meta.Title)
	}
	if len(g.Execs) != 1 || g.Execs[0] != "bin/run.exe" {
		t.Fatalf("execs = %v", g.Execs)
	}
}

func TestGamesListsFoldersInOrder(t *testing.T) {
	root := t.TempDir()
	mkGame(t, root, "Beta")
	mkGame(t, root, "Alpha")
	if err := os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	games := testLibrary(root).Games()
	if len(games) != 2 || games[0].Rel != "Alpha" || games[1].Rel != "Beta" {
		t.Fatalf("games = %+v", games)
	}
}

func TestGamesMissingRoot(t *testing.T) {
	lib := testLibrary(filepath.Join(t.TempDir(), "absent"))
	if games := lib.Games(); len(games) != 0 {
		t.Fatalf("games = %+v, want none", games)
	}
}

func TestGamesSkipsIgnoredFolders(t *testing.T) {
	root := t.TempDir()
	mkGame(t, root, "Keep")
	mkGame(t, root, "Hidden")
	if err := os.WriteFile(filepath.Join(root, ".gameshelfignore"), []byte("Hidden/\n"), 0o644); err != nil {
		t.Fatalf("write ignore: %v", err)
	}

	games := testLibrary(root).Games()
	if len(games) != 1 || games[0].Rel != "Keep" {
		t.Fatalf("games = %+v", games)
	}
}

func TestGamesAutoPicksAndPersistsCover(t *testing.T) {
	root := t.TempDir()
	folder := mkGame(t, root, "Covered")
	mkPNG(t, filepath.Join(folder, "square.png"), 200, 200)
	mkPNG(t, filepath.Join(folder, "portrait.png"), 150, 200)

	lib := testLibrary(root)
	games := lib.Games()
	if len(games) != 1 {
		t.Fatalf("games = %+v", games)
	}
	if games[0].Meta.CoverImage != "portrait.png" {
		t.Fatalf("cover = %q, want portrait.png", games[0].Meta.CoverImage)
	}

	// The pick is persisted and survives a rescan.
	saved := LoadMeta(folder, "game.json")
	if saved.CoverImage != "portrait.png" {
		t.Fatalf("persisted cover = %q", saved.CoverImage)
	}
	if again := lib.Games(); again[0].Meta.CoverImage != "portrait.png" {
		t.Fatalf("rescan cover = %q", again[0].Meta.CoverImage)
	}
}

func TestGamesKeepsExplicitCover(t *testing.T) {
	root := t.TempDir()
	folder := mkGame(t, root, "Chosen")
	mkPNG(t, filepath.Join(folder, "portrait.png"), 150, 200)
	mkPNG(t, filepath.Join(folder, "square.png"), 200, 200)
	writeMeta(t, folder, `{"cover_image": "square.png"}`)

	games := testLibrary(root).Games()
	if games[0].Meta.CoverImage != "square.png" {
		t.Fatalf("cover = %q, want the configured square.png", games[0].Meta.CoverImage)
	}
}
