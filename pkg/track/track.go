package track

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Files dropped into a game folder around a run. The marker exists
// while the process is alive; the exit record replaces it afterwards.
const (
	MarkerFile = ".gameshelf-running.json"
	ExitFile   = ".gameshelf-last-exit.json"
)

// RunMarker is written when a tracked process starts.
type RunMarker struct {
	Started float64 `json:"started"`
}

// ExitRecord is written when a tracked process ends. Exit is nil when
// no status could be collected.
type ExitRecord struct {
	Ended float64 `json:"ended"`
	Exit  *int    `json:"exit"`
}

// Invocation is a fully resolved command ready to spawn. Line plus
// Shell runs through the system shell; otherwise Argv is executed
// directly. TrackDir, when set, names the folder that receives the
// marker and exit files.
type Invocation struct {
	Argv        []string
	Line        string
	Shell       bool
	Dir         string
	Env         []string // nil inherits the parent environment
	HideConsole bool
	TrackDir    string
}

// Spawner starts an invocation without waiting for it to finish.
type Spawner interface {
	Spawn(inv Invocation) error
}

// Supervisor spawns processes and maintains run markers for them.
type Supervisor struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Spawn starts the invocation and tracks it in the background: the
// marker file appears at start and is swapped for an exit record when
// the process ends. Marker writes are best effort so a read-only game
// folder never blocks a launch.
func (s *Supervisor) Spawn(inv Invocation) error {
	cmd, err := buildCmd(inv)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.logInfo("process_started", "dir", inv.Dir, "pid", cmd.Process.Pid)

	if inv.TrackDir != "" {
		writeMarker(inv.TrackDir)
		s.wg.Add(1)
		go s.watch(cmd, inv.TrackDir)
	}
	return nil
}

// Wait blocks until every tracked process has exited. Used by tests
// and by shutdown paths that want exit records flushed.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) watch(cmd *exec.Cmd, folder string) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logError("tracker_panic", "recovered", r)
		}
	}()

	err := cmd.Wait()
	code := exitCode(err)

	_ = os.Remove(filepath.Join(folder, MarkerFile))
	if data, merr := json.Marshal(ExitRecord{Ended: unixNow(), Exit: code}); merr == nil {
		_ = os.WriteFile(filepath.Join(folder, ExitFile), data, 0o644)
	}

	if code != nil {
		s.logInfo("process_exited", "dir", folder, "exit", *code)
	} else {
		s.logWarn("process_exited_unknown", "dir", folder, "error", err)
	}
}

// exitCode maps a Wait result to an exit status: 0 on success, the
// process status when it exited, nil when nothing could be collected.
func exitCode(err error) *int {
	if err == nil {
		zero := 0
		return &zero
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return &code
	}
	return nil
}

func writeMarker(folder string) {
	data, err := json.Marshal(RunMarker{Started: unixNow()})
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(folder, MarkerFile), data, 0o644)
}

// Running reports whether folder carries a live run marker.
func Running(folder string) bool {
	_, err := os.Stat(filepath.Join(folder, MarkerFile))
	return err == nil
}

// ReadExit returns folder's last exit record, if one was written.
func ReadExit(folder string) (ExitRecord, bool) {
	data, err := os.ReadFile(filepath.Join(folder, ExitFile))
	if err != nil {
		return ExitRecord{}, false
	}
	var rec ExitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ExitRecord{}, false
	}
	return rec, true
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func (s *Supervisor) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Supervisor) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Supervisor) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
