package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nfnt/resize"

	// Cover thumbnails decode whatever the scanner can be configured
	// to collect.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/sameehj/gameshelf/pkg/game"
	"github.com/sameehj/gameshelf/pkg/launch"
	"github.com/sameehj/gameshelf/pkg/settings"
	"github.com/sameehj/gameshelf/pkg/system"
	"github.com/sameehj/gameshelf/pkg/track"
)

type gameView struct {
	ID             string            `json:"id"`
	Rel            string            `json:"rel"`
	Title          string            `json:"title"`
	CoverImage     string            `json:"cover_image"`
	Sandboxed      string            `json:"sandboxed"`
	Launchers      []game.Launcher   `json:"launchers"`
	LastLauncher   string            `json:"last_launcher"`
	DetectedExecs  []string          `json:"detected_execs"`
	DetectedImages []string          `json:"detected_images"`
	Running        bool              `json:"running"`
	LastExit       *track.ExitRecord `json:"last_exit,omitempty"`
}

func (s *Server) view(g game.Game) gameView {
	v := gameView{
		ID:             g.ID,
		Rel:            g.Rel,
		Title:          g.Meta.Title,
		CoverImage:     g.Meta.CoverImage,
		Sandboxed:      g.Meta.Sandboxed.String(),
		Launchers:      g.Meta.Launchers,
		LastLauncher:   g.Meta.LastLauncher,
		DetectedExecs:  orEmpty(g.Execs),
		DetectedImages: orEmpty(g.Images),
		Running:        track.Running(g.Folder),
	}
	if rec, ok := track.ReadExit(g.Folder); ok {
		v.LastExit = &rec
	}
	return v
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	views := []gameView{}
	for _, g := range s.library.Games() {
		views = append(views, s.view(g))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"games": views})
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(g))
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) (game.Game, bool) {
	g, err := s.library.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "game not found")
		return game.Game{}, false
	}
	return g, true
}

type gameUpdate struct {
	Title      *string `json:"title"`
	Sandboxed  *string `json:"sandboxed"`
	CoverImage *string `json:"cover_image"`
}

func (s *Server) handleGameUpdate(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	var upd gameUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid game payload")
		return
	}

	if upd.Title != nil && strings.TrimSpace(*upd.Title) != "" {
		g.Meta.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Sandboxed != nil {
		g.Meta.Sandboxed = game.ParseSandboxMode(*upd.Sandboxed)
	}
	if upd.CoverImage != nil && *upd.CoverImage != "" {
		candidate := filepath.Join(g.Folder, filepath.FromSlash(*upd.CoverImage))
		if _, err := os.Stat(candidate); err == nil {
			g.Meta.CoverImage = *upd.CoverImage
		} else {
			s.logWarn("cover_choice_missing", "game", g.Rel, "cover", *upd.CoverImage)
		}
	}

	if err := game.SaveMeta(g.Folder, s.cfg.Scan.MetaFile, g.Meta); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save metadata: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(g))
}

func (s *Server) handleLauncherAdd(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	var body struct {
		RelPath string `json:"relpath"`
		Name    string `json:"name"`
		Args    string `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid launcher payload")
		return
	}
	rel := strings.TrimSpace(body.RelPath)
	if rel == "" {
		s.writeError(w, http.StatusBadRequest, "relpath is required")
		return
	}

	l, created := g.Meta.AddLauncher(rel, body.Name, body.Args)
	if created {
		if err := game.SaveMeta(g.Folder, s.cfg.Scan.MetaFile, g.Meta); err != nil {
			s.writeError(w, http.StatusInternalServerError, "save metadata: "+err.Error())
			return
		}
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, map[string]any{"launcher": l, "created": created})
}

func (s *Server) handleLauncherUpdate(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	var body struct {
		Name *string `json:"name"`
		Args *string `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid launcher payload")
		return
	}

	id := r.PathValue("lid")
	if !g.Meta.UpdateLauncher(id, body.Name, body.Args) {
		s.writeError(w, http.StatusNotFound, "launcher not found")
		return
	}
	if err := game.SaveMeta(g.Folder, s.cfg.Scan.MetaFile, g.Meta); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save metadata: "+err.Error())
		return
	}
	l, _ := g.Meta.LauncherByID(id)
	s.writeJSON(w, http.StatusOK, map[string]any{"launcher": l})
}

func (s *Server) handleLauncherRemove(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	if !g.Meta.RemoveLauncher(r.PathValue("lid")) {
		s.writeError(w, http.StatusNotFound, "launcher not found")
		return
	}
	if err := game.SaveMeta(g.Folder, s.cfg.Scan.MetaFile, g.Meta); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save metadata: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type launchRequest struct {
	LauncherID string `json:"launcher_id"`
	Mode       string `json:"mode"`
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	var body launchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid launch payload")
		return
	}
	if body.LauncherID == "" {
		s.writeError(w, http.StatusBadRequest, "launcher_id is required")
		return
	}
	l, ok := g.Meta.LauncherByID(body.LauncherID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid launcher selection")
		return
	}
	s.launchAndRespond(w, g, l, body.Mode)
}

// handleRun is the one-click launch: it only fires when the choice is
// unambiguous and otherwise reports the options.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid launch payload")
		return
	}

	switch len(g.Meta.Launchers) {
	case 0:
		s.writeError(w, http.StatusBadRequest, "no launch options configured")
	case 1:
		s.launchAndRespond(w, g, g.Meta.Launchers[0], body.Mode)
	default:
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "multiple launchers configured",
			"launchers": g.Meta.Launchers,
		})
	}
}

func (s *Server) launchAndRespond(w http.ResponseWriter, g game.Game, l game.Launcher, mode string) {
	sandbox := s.resolveSandbox(g.Meta, mode)
	res := s.resolver().Launch(launch.Request{
		Folder:  g.Folder,
		RelPath: l.RelPath,
		Args:    l.Args,
		Sandbox: sandbox,
	})
	if !res.OK {
		s.logWarn("launch_failed", "game", g.Rel, "launcher", l.ID, "error", res.Message)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": res.Message})
		return
	}

	g.Meta.LastLauncher = l.ID
	if err := game.SaveMeta(g.Folder, s.cfg.Scan.MetaFile, g.Meta); err != nil {
		s.logWarn("meta_save_failed", "game", g.Rel, "error", err)
	}
	s.logInfo("game_launched", "game", g.Rel, "launcher", l.ID, "sandbox", sandbox)
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": res.Message})
}

// resolveSandbox maps an explicit mode onto a sandbox decision,
// falling back to the game's preference and then the library default.
func (s *Server) resolveSandbox(m game.Meta, mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "sandboxed":
		return true
	case "normal":
		return false
	}
	st := settings.Load(s.cfg.GamesRoot)
	return m.Sandboxed.Effective(st.DefaultSandboxed)
}

// resolver probes the host fresh for every launch so helpers
// installed while the server runs are picked up.
func (s *Server) resolver() *launch.Resolver {
	return &launch.Resolver{
		Profile: system.Detect(),
		Box:     s.cfg.Sandbox.Box,
		Spawner: s.spawner,
		Logger:  s.logger,
	}
}

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="600" height="600">
  <rect width="100%%" height="100%%" fill="#1f2630"/>
  <text x="50%%" y="50%%" fill="#e0e6ee" font-size="28" text-anchor="middle" dominant-baseline="middle">%s</text>
</svg>
`

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	g, ok := s.getGame(w, r)
	if !ok {
		return
	}
	if g.Meta.CoverImage != "" {
		path := filepath.Join(g.Folder, filepath.FromSlash(g.Meta.CoverImage))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			if width := thumbWidth(r); width > 0 && s.serveThumb(w, path, width) {
				return
			}
			http.ServeFile(w, r, path)
			return
		}
	}

	title := []rune(g.Meta.Title)
	if len(title) > 32 {
		title = title[:32]
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	fmt.Fprintf(w, placeholderSVG, html.EscapeString(string(title)))
}

func thumbWidth(r *http.Request) int {
	raw := r.URL.Query().Get("w")
	if raw == "" {
		return 0
	}
	width, err := strconv.Atoi(raw)
	if err != nil || width <= 0 {
		return 0
	}
	if width < 16 {
		width = 16
	}
	if width > 2048 {
		width = 2048
	}
	return width
}

// serveThumb streams a JPEG thumbnail of the cover. Undecodable
// covers report false so the caller can fall back to the original
// file.
func (s *Server) serveThumb(w http.ResponseWriter, path string, width int) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		s.logWarn("thumb_decode_failed", "path", path, "error", err)
		return false
	}
	thumb := resize.Resize(uint(width), 0, img, resize.Lanczos3)
	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: 85}); err != nil {
		s.logWarn("thumb_encode_failed", "path", path, "error", err)
	}
	return true
}

// handleFile serves a detected image from inside the game folder.
// Only image extensions are allowed and the path must stay inside the
// folder.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	folder, err := s.library.Folder(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}

	name := filepath.Clean(filepath.FromSlash(r.PathValue("name")))
	if name == "." || filepath.IsAbs(name) ||
		name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	full := filepath.Join(folder, name)
	if !s.imageExt(full) {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, full)
}

func (s *Server) imageExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range s.cfg.Scan.ImageExts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
