//go:build !windows

package track

import (
	"errors"
	"os/exec"
)

func buildCmd(inv Invocation) (*exec.Cmd, error) {
	argv := inv.Argv
	if inv.Shell {
		if inv.Line == "" {
			return nil, errors.New("empty command line")
		}
		argv = []string{"/bin/sh", "-c", inv.Line}
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	return cmd, nil
}
