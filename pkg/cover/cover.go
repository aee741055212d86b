package cover

import (
	"image"
	"math"
	"os"
	"path/filepath"

	// Register decoders for every format the scanner can be configured
	// to collect.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// epsilon bounds how close two aspect scores must be before the
// larger image wins the tie.
const epsilon = 1e-6

// Pick chooses the candidate image inside dir whose aspect ratio sits
// closest to targetAspect (width divided by height). When two
// candidates score within epsilon of each other the one covering more
// pixels wins. Candidates that fail to decode or report a degenerate
// size are skipped. ok is false when nothing usable remains.
func Pick(dir string, candidates []string, targetAspect float64) (name string, ok bool) {
	bestScore := 0.0
	bestArea := 0
	for _, cand := range candidates {
		w, h, err := imageSize(filepath.Join(dir, cand))
		if err != nil || w <= 0 || h <= 0 {
			continue
		}
		score := math.Abs(float64(w)/float64(h) - targetAspect)
		area := w * h
		if !ok || score < bestScore || (math.Abs(score-bestScore) < epsilon && area > bestArea) {
			name = cand
			bestScore = score
			bestArea = area
			ok = true
		}
	}
	return name, ok
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
