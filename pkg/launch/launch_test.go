package launch

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/sameehj/gameshelf/pkg/system"
	"github.com/sameehj/gameshelf/pkg/track"
)

type fakeSpawner struct {
	invocations []track.Invocation
	err         error
}

func (f *fakeSpawner) Spawn(inv track.Invocation) error {
	if f.err != nil {
		return f.err
	}
	f.invocations = append(f.invocations, inv)
	return nil
}

func windowsProfile() *system.Profile {
	return &system.Profile{
		OS:           "windows",
		WSL:          true,
		GitBash:      `C:\Program Files\Git\bin\bash.exe`,
		Sandboxie:    `C:\Program Files\Sandboxie-Plus\Start.exe`,
		ShellWrapper: `C:\tools\run-wsl.ps1`,
	}
}

func newResolver(p *system.Profile, sp track.Spawner) *Resolver {
	return &Resolver{Profile: p, Box: "TestBox", Spawner: sp}
}

func envValue(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix), true
		}
	}
	return "", false
}

func touchFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScriptPrefersWrapper(t *testing.T) {
	folder := t.TempDir()
	sp := &fakeSpawner{}
	res := newResolver(windowsProfile(), sp).Launch(Request{Folder: folder, RelPath: "run.sh"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	if len(sp.invocations) != 1 {
		t.Fatalf("invocations = %+v", sp.invocations)
	}
	inv := sp.invocations[0]
	if inv.Argv[0] != "powershell.exe" || inv.Argv[len(inv.Argv)-1] != `C:\tools\run-wsl.ps1` {
		t.Fatalf("argv = %v", inv.Argv)
	}
	if cwd, ok := envValue(inv.Env, "GAMESHELF_WRAPPER_CWD"); !ok || cwd != folder {
		t.Fatalf("wrapper cwd = %q, %v", cwd, ok)
	}
	if cmd, ok := envValue(inv.Env, "GAMESHELF_WRAPPER_CMD"); !ok || cmd != "./run.sh" {
		t.Fatalf("wrapper cmd = %q, %v", cmd, ok)
	}
	if !inv.HideConsole || inv.TrackDir != folder {
		t.Fatalf("invocation = %+v", inv)
	}
}

func TestScriptWSLWhenNoWrapper(t *testing.T) {
	p := windowsProfile()
	p.ShellWrapper = ""
	sp := &fakeSpawner{}
	res := newResolver(p, sp).Launch(Request{Folder: t.TempDir(), RelPath: "run.sh"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	if inv.Argv[0] != "wsl.exe" || inv.Argv[1] != "bash" || inv.Argv[2] != "-lc" {
		t.Fatalf("argv = %v", inv.Argv)
	}
	if !strings.Contains(inv.Argv[3], "wslpath") || !strings.Contains(inv.Argv[3], "./run.sh") {
		t.Fatalf("bash line = %q", inv.Argv[3])
	}
}

func TestScriptGitBashLast(t *testing.T) {
	p := windowsProfile()
	p.ShellWrapper = ""
	p.WSL = false
	folder := t.TempDir()
	sp := &fakeSpawner{}
	res := newResolver(p, sp).Launch(Request{Folder: folder, RelPath: "run.sh"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	if inv.Argv[0] != p.GitBash {
		t.Fatalf("argv = %v", inv.Argv)
	}
	if !strings.Contains(inv.Argv[2], folder) || !strings.Contains(inv.Argv[2], "./run.sh") {
		t.Fatalf("bash line = %q", inv.Argv[2])
	}
}

func TestScriptNoRunnerFails(t *testing.T) {
	p := windowsProfile()
	p.ShellWrapper = ""
	p.WSL = false
	p.GitBash = ""
	sp := &fakeSpawner{}
	res := newResolver(p, sp).Launch(Request{Folder: t.TempDir(), RelPath: "run.sh"})
	if res.OK {
		t.Fatal("launch reported success with no script runner")
	}
	if !strings.Contains(res.Message, "Git Bash") {
		t.Fatalf("message = %q", res.Message)
	}
	if len(sp.invocations) != 0 {
		t.Fatalf("unexpected invocations: %+v", sp.invocations)
	}
}

func TestScriptKeepsSubdirPath(t *testing.T) {
	sp := &fakeSpawner{}
	res := newResolver(windowsProfile(), sp).Launch(Request{Folder: t.TempDir(), RelPath: "scripts/run.sh"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	if cmd, _ := envValue(sp.invocations[0].Env, "GAMESHELF_WRAPPER_CMD"); cmd != "scripts/run.sh" {
		t.Fatalf("wrapper cmd = %q, want the path untouched", cmd)
	}
}

func TestSandboxedLaunch(t *testing.T) {
	folder := t.TempDir()
	touchFile(t, filepath.Join(folder, "game.exe"))
	sp := &fakeSpawner{}
	res := newResolver(windowsProfile(), sp).Launch(Request{Folder: folder, RelPath: "game.exe", Sandbox: true})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	want := []string{
		`C:\Program Files\Sandboxie-Plus\Start.exe`,
		"/box:TestBox", "/wait", "/silent",
		filepath.Join(folder, "game.exe"),
	}
	if len(inv.Argv) != len(want) {
		t.Fatalf("argv = %v", inv.Argv)
	}
	for i := range want {
		if inv.Argv[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q", i, inv.Argv[i], want[i])
		}
	}
	if inv.Shell {
		t.Fatal("sandboxed launch went through the shell")
	}
}

func TestSandboxMissingFallsBack(t *testing.T) {
	p := windowsProfile()
	p.Sandboxie = ""
	folder := t.TempDir()
	touchFile(t, filepath.Join(folder, "game.exe"))
	sp := &fakeSpawner{}
	res := newResolver(p, sp).Launch(Request{Folder: folder, RelPath: "game.exe", Sandbox: true})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	if !inv.Shell || inv.Line != filepath.Join(folder, "game.exe") {
		t.Fatalf("invocation = %+v, want a native shell launch", inv)
	}
}

func TestWindowsNativeMaterializes(t *testing.T) {
	folder := t.TempDir()
	touchFile(t, filepath.Join(folder, "game.exe"))
	sp := &fakeSpawner{}
	res := newResolver(windowsProfile(), sp).Launch(Request{Folder: folder, RelPath: "game.exe", Args: "--fast"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	wantLine := filepath.Join(folder, "game.exe") + " --fast"
	if !inv.Shell || inv.Line != wantLine {
		t.Fatalf("line = %q, want %q", inv.Line, wantLine)
	}
	if inv.TrackDir != folder || inv.Dir != folder {
		t.Fatalf("invocation dirs = %+v", inv)
	}
}

func TestUnixNativeArgv(t *testing.T) {
	folder := t.TempDir()
	touchFile(t, filepath.Join(folder, "run"))
	sp := &fakeSpawner{}
	p := &system.Profile{OS: "linux"}
	res := newResolver(p, sp).Launch(Request{Folder: folder, RelPath: "run", Args: "--level 2"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	want := []string{filepath.Join(folder, "run"), "--level", "2"}
	if len(inv.Argv) != len(want) {
		t.Fatalf("argv = %v", inv.Argv)
	}
	for i := range want {
		if inv.Argv[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q", i, inv.Argv[i], want[i])
		}
	}
	if inv.Shell {
		t.Fatal("unix launch went through the shell")
	}
}

func TestUnixLegacyCommandString(t *testing.T) {
	folder := t.TempDir()
	touchFile(t, filepath.Join(folder, "bin", "game"))
	sp := &fakeSpawner{}
	p := &system.Profile{OS: "linux"}
	res := newResolver(p, sp).Launch(Request{Folder: folder, RelPath: "bin/game --opt"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	inv := sp.invocations[0]
	if len(inv.Argv) != 2 || inv.Argv[0] != filepath.Join(folder, "bin", "game") || inv.Argv[1] != "--opt" {
		t.Fatalf("argv = %v", inv.Argv)
	}
}

func TestNothingToLaunch(t *testing.T) {
	sp := &fakeSpawner{}
	res := newResolver(windowsProfile(), sp).Launch(Request{Folder: t.TempDir()})
	if res.OK || res.Message != "Nothing to launch." {
		t.Fatalf("result = %+v", res)
	}
}

func TestBadArgsString(t *testing.T) {
	sp := &fakeSpawner{}
	res := newResolver(windowsProfile(), sp).Launch(Request{Folder: t.TempDir(), RelPath: "game.exe", Args: `"unclosed`})
	if res.OK || !strings.Contains(res.Message, "parse args") {
		t.Fatalf("result = %+v", res)
	}
}

func TestSpawnerErrorPropagates(t *testing.T) {
	sp := &fakeSpawner{err: errors.New("boom")}
	res := newResolver(&system.Profile{OS: "linux"}, sp).Launch(Request{Folder: t.TempDir(), RelPath: "run"})
	if res.OK || res.Message != "boom" {
		t.Fatalf("result = %+v", res)
	}
}

func TestShellQuote(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "''"},
		{"plain", "plain"},
		{"./run.sh", "./run.sh"},
		{"two words", "'two words'"},
		{"it's", `'it'"'"'s'`},
	}
	for _, tc := range cases {
		if got := shellQuote(tc.in); got != tc.want {
			t.Fatalf("shellQuote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLaunchRealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a shebang script")
	}
	folder := t.TempDir()
	script := filepath.Join(folder, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	sup := track.NewSupervisor(nil)
	r := &Resolver{Profile: &system.Profile{OS: runtime.GOOS}, Box: "TestBox", Spawner: sup}
	res := r.Launch(Request{Folder: folder, RelPath: "run.sh"})
	if !res.OK {
		t.Fatalf("launch failed: %s", res.Message)
	}
	sup.Wait()

	if track.Running(folder) {
		t.Fatal("marker still present after exit")
	}
	rec, ok := track.ReadExit(folder)
	if !ok || rec.Exit == nil || *rec.Exit != 0 {
		t.Fatalf("exit record = %+v, %v", rec, ok)
	}
}
