//go:build !windows

package shellexec

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so Kill can
// target the whole group instead of just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Kill terminates a running command's process group by sending SIGKILL to
// the whole group started by setProcessGroup.
func Kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Kill()
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}
