package launch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/sameehj/gameshelf/pkg/system"
	"github.com/sameehj/gameshelf/pkg/track"
)

// Resolver turns launch requests into spawned processes, picking the
// right strategy for the host profile.
type Resolver struct {
	Profile *system.Profile
	Box     string
	Spawner track.Spawner
	Logger  *slog.Logger
}

// Request names what to launch. RelPath is the stored launcher path
// and may be a legacy whole-command string; Args is an extra
// shell-style argument string.
type Request struct {
	Folder  string
	RelPath string
	Args    string
	Sandbox bool
}

// Result reports how a launch went.
type Result struct {
	OK      bool
	Message string
}

// Launch resolves and spawns a game process:
//
//   - shell scripts on Windows go through the wrapper script, then
//     WSL, then Git Bash, whichever is present first
//   - sandboxed launches on Windows are wrapped in Sandboxie Start.exe
//     when it is installed, falling back to a native launch otherwise
//   - everything else is spawned directly, through the system shell on
//     Windows
//
// The spawned process runs with the game folder as its working
// directory and leaves run tracking files there.
func (r *Resolver) Launch(req Request) Result {
	rel := strings.Trim(strings.TrimSpace(req.RelPath), `"`)
	var tokens []string
	if rel != "" {
		tokens = append(tokens, rel)
	}
	if req.Args != "" {
		parsed, err := shlex.Split(req.Args)
		if err != nil {
			return Result{Message: fmt.Sprintf("parse args: %v", err)}
		}
		tokens = append(tokens, parsed...)
	}
	if len(tokens) == 0 {
		return Result{Message: "Nothing to launch."}
	}

	if r.Profile.Windows() && isShellScript(tokens[0]) {
		return r.launchScript(req.Folder, tokens)
	}

	if r.Profile.Windows() && req.Sandbox {
		if r.Profile.Sandboxie != "" {
			return r.launchSandboxed(req.Folder, tokens)
		}
		r.logWarn("sandboxie_missing", "folder", req.Folder)
	}

	return r.launchNative(req.Folder, tokens)
}

// launchScript runs a .sh entry on Windows via the first working
// shell runner. Bare script names get a ./ prefix so the script
// resolves against the game folder instead of PATH.
func (r *Resolver) launchScript(folder string, tokens []string) Result {
	tokens[0] = stripOuterQuotes(tokens[0])
	if !strings.Contains(tokens[0], "/") {
		tokens[0] = "./" + tokens[0]
	}

	if res := r.wrapperLaunch(folder, tokens); res.OK {
		return res
	}
	if res := r.wslLaunch(folder, tokens); res.OK {
		return res
	}
	if res := r.gitBashLaunch(folder, tokens); res.OK {
		return res
	}
	return Result{Message: "No shell wrapper, WSL, or Git Bash found to run this script."}
}

// wrapperLaunch invokes the user-provided PowerShell wrapper. The
// wrapper takes no parameters; the work arrives in environment
// variables only.
func (r *Resolver) wrapperLaunch(folder string, tokens []string) Result {
	script := r.Profile.ShellWrapper
	if script == "" {
		return Result{Message: "shell wrapper not configured"}
	}
	line := quoteTokens(tokens)
	env := append(os.Environ(),
		"GAMESHELF_WRAPPER_CWD="+folder,
		"GAMESHELF_WRAPPER_CMD="+line,
	)
	return r.spawn(track.Invocation{
		Argv:        []string{"powershell.exe", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", script},
		Dir:         folder,
		Env:         env,
		HideConsole: true,
		TrackDir:    folder,
	}, "wrapper")
}

func (r *Resolver) wslLaunch(folder string, tokens []string) Result {
	if !r.Profile.WSL {
		return Result{Message: "WSL not available"}
	}
	line := fmt.Sprintf(`cd "$(wslpath -a "%s")" && %s`, folder, quoteTokens(tokens))
	return r.spawn(track.Invocation{
		Argv:        []string{"wsl.exe", "bash", "-lc", line},
		Dir:         folder,
		HideConsole: true,
		TrackDir:    folder,
	}, "wsl")
}

func (r *Resolver) gitBashLaunch(folder string, tokens []string) Result {
	bash := r.Profile.GitBash
	if bash == "" {
		return Result{Message: "Git Bash not found"}
	}
	line := fmt.Sprintf(`cd "%s" && %s`, folder, quoteTokens(tokens))
	return r.spawn(track.Invocation{
		Argv:        []string{bash, "-lc", line},
		Dir:         folder,
		HideConsole: true,
		TrackDir:    folder,
	}, "gitbash")
}

func (r *Resolver) launchSandboxed(folder string, tokens []string) Result {
	tokens, _ = materializeFirst(tokens, folder)
	argv := append([]string{r.Profile.Sandboxie, "/box:" + r.Box, "/wait", "/silent"}, tokens...)
	return r.spawn(track.Invocation{
		Argv:     argv,
		Dir:      folder,
		TrackDir: folder,
	}, "sandboxie")
}

func (r *Resolver) launchNative(folder string, tokens []string) Result {
	if r.Profile.Windows() {
		tokens, replaced := materializeFirst(tokens, folder)
		var line string
		switch {
		case len(tokens) == 1 && replaced && strings.ContainsAny(tokens[0], " \t"):
			line = `"` + tokens[0] + `"`
		case len(tokens) == 1:
			// Legacy whole-command strings reach the shell verbatim.
			line = tokens[0]
		default:
			line = joinWindows(tokens)
		}
		return r.spawn(track.Invocation{
			Line:     line,
			Shell:    true,
			Dir:      folder,
			TrackDir: folder,
		}, "shell")
	}

	argv := tokens
	if len(argv) == 1 {
		// Legacy single-string commands carry embedded arguments.
		if split, err := shlex.Split(argv[0]); err == nil && len(split) > 0 {
			argv = split
		}
	}
	argv, _ = materializeFirst(argv, folder)
	return r.spawn(track.Invocation{
		Argv:     argv,
		Dir:      folder,
		TrackDir: folder,
	}, "exec")
}

func (r *Resolver) spawn(inv track.Invocation, strategy string) Result {
	if err := r.Spawner.Spawn(inv); err != nil {
		r.logWarn("launch_failed", "strategy", strategy, "dir", inv.Dir, "error", err)
		return Result{Message: err.Error()}
	}
	r.logInfo("launch_started", "strategy", strategy, "dir", inv.Dir)
	return Result{OK: true, Message: "Launched."}
}

// materializeFirst replaces the first token with an absolute path when
// it names a file inside cwd. Child processes resolve relative
// program paths against their own lookup rules, not the working
// directory, so the expansion is what makes folder-relative launchers
// work.
func materializeFirst(tokens []string, cwd string) ([]string, bool) {
	if len(tokens) == 0 {
		return tokens, false
	}
	first := stripOuterQuotes(tokens[0])
	full := filepath.Join(cwd, filepath.FromSlash(first))
	if _, err := os.Stat(full); err == nil {
		tokens[0] = full
		return tokens, true
	}
	return tokens, false
}

func isShellScript(token string) bool {
	t := stripOuterQuotes(token)
	return strings.EqualFold(filepath.Ext(filepath.FromSlash(t)), ".sh")
}

func stripOuterQuotes(s string) string {
	if len(s) >= 2 && s[0] == s[len(s)-1] && (s[0] == '\'' || s[0] == '"') {
		return s[1 : len(s)-1]
	}
	return s
}

// quoteTokens builds a bash-safe command line.
func quoteTokens(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = shellQuote(t)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func shellSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			return false
		}
	}
	return true
}

// joinWindows quotes tokens with spaces for cmd.exe.
func joinWindows(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		if t != "" && !strings.ContainsAny(t, " \t\"") {
			quoted[i] = t
			continue
		}
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, " ")
}

func (r *Resolver) logInfo(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Info(msg, args...)
	}
}

func (r *Resolver) logWarn(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Warn(msg, args...)
	}
}
