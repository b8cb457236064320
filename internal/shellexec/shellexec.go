// Package shellexec runs a test's command line through the configured
// shell in a suite's workspace, with process-group kill support so an
// interrupt can terminate a command's descendants.
package shellexec

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/andreasjansson/cctr/internal/cctrerr"
)

// Shell identifies which interpreter runs a test's command.
type Shell string

const (
	Bash       Shell = "bash"
	PowerShell Shell = "powershell"
	Cmd        Shell = "cmd"
	Sh         Shell = "sh"
)

// DefaultShell returns the platform default: bash on Unix, powershell on
// Windows.
func DefaultShell(goos string) Shell {
	if goos == "windows" {
		return PowerShell
	}
	return Bash
}

// Result is the outcome of running one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes command using shell in dir with the given extra environment
// additions appended to the inherited process environment. cmd-shell
// commands must be single-line; a multi-line command under cmd produces a
// warning string in warn but is still executed as a joined line.
func Run(ctx context.Context, shell Shell, dir, command string, env []string) (Result, string, error) {
	return RunStreaming(ctx, shell, dir, command, env, nil)
}

// RunStreaming is Run plus a live collaborator: when stream is non-nil,
// stdout and stderr are tee'd to it as the child produces them, for -vv's
// "stream child output live" requirement (spec.md §6).
func RunStreaming(ctx context.Context, shell Shell, dir, command string, env []string, stream io.Writer) (Result, string, error) {
	var warn string
	var cmd *exec.Cmd

	switch shell {
	case Bash:
		cmd = exec.CommandContext(ctx, "bash", "-c", command)
	case Sh:
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	case PowerShell:
		cmd = exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", command)
	case Cmd:
		line := command
		if strings.Contains(strings.TrimRight(command, "\n"), "\n") {
			warn = "cmd shell only supports single-line commands; joining with '&'"
			line = strings.Join(strings.Split(command, "\n"), " & ")
		}
		cmd = exec.CommandContext(ctx, "cmd", "/C", line)
	default:
		return Result{}, "", &cctrerr.ExecutionError{Shell: string(shell), Msg: "unknown shell"}
	}

	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return Kill(cmd) }
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	if stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, stream)
		cmd.Stderr = io.MultiWriter(&stderr, stream)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err == nil {
		result.ExitCode = 0
		return result, warn, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, warn, nil
	}
	return result, warn, &cctrerr.ExecutionError{Shell: string(shell), Msg: err.Error()}
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}
