//go:build windows

package track

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// buildCmd prepares a command for Windows. Shell invocations are
// handed to cmd.exe verbatim via the raw command line so quoting in
// Line reaches the shell untouched.
func buildCmd(inv Invocation) (*exec.Cmd, error) {
	if inv.Shell {
		if inv.Line == "" {
			return nil, errors.New("empty command line")
		}
		comSpec := os.Getenv("ComSpec")
		if comSpec == "" {
			comSpec = `C:\Windows\System32\cmd.exe`
		}
		cmd := exec.Command(comSpec)
		cmd.Dir = inv.Dir
		cmd.Env = inv.Env
		cmd.SysProcAttr = &syscall.SysProcAttr{
			CmdLine:    fmt.Sprintf(`"%s" /C %s`, comSpec, inv.Line),
			HideWindow: inv.HideConsole,
		}
		return cmd, nil
	}

	if len(inv.Argv) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.Command(inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	if inv.HideConsole {
		cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	}
	return cmd, nil
}
