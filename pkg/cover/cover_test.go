package cover

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
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

func TestPickPrefersTargetAspect(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "wide.png"), 200, 100)
	writePNG(t, filepath.Join(dir, "portrait.png"), 150, 200)
	writePNG(t, filepath.Join(dir, "square.png"), 200, 200)

	name, ok := Pick(dir, []string{"wide.png", "portrait.png", "square.png"}, 0.75)
	if !ok || name != "portrait.png" {
		t.Fatalf("pick = %q, %v, want portrait.png", name, ok)
	}
}

func TestPickTieBreaksOnArea(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "small.png"), 75, 100)
	writePNG(t, filepath.Join(dir, "large.png"), 150, 200)

	name, ok := Pick(dir, []string{"small.png", "large.png"}, 0.75)
	if !ok || name != "large.png" {
		t.Fatalf("pick = %q, %v, want large.png", name, ok)
	}

	// Order of candidates must not change the outcome.
	name, ok = Pick(dir, []string{"large.png", "small.png"}, 0.75)
	if !ok || name != "large.png" {
		t.Fatalf("pick reversed = %q, %v, want large.png", name, ok)
	}
}

func TestPickSkipsUndecodable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	writePNG(t, filepath.Join(dir, "good.png"), 90, 120)

	name, ok := Pick(dir, []string{"broken.png", "good.png", "missing.png"}, 0.75)
	if !ok || name != "good.png" {
		t.Fatalf("pick = %q, %v, want good.png", name, ok)
	}
}

func TestPickNothingUsable(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Pick(dir, nil, 0.75); ok {
		t.Fatal("pick of no candidates reported ok")
	}
	if _, ok := Pick(dir, []string{"absent.png"}, 0.75); ok {
		t.Fatal("pick of missing candidates reported ok")
	}
}
