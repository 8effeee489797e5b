//go:build windows

package executor

import (
	"os/exec"
	"syscall"
)

// configureShell sets a platform-appropriate shell mode on Windows
// because the vendor distribution of the matcher may be a wrapper
// batch/PowerShell script rather than a native executable.
func configureShell(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}

// terminateGracefully has no clean "send SIGTERM" equivalent on
// Windows; Kill is the only reliable stop signal available via
// os/exec, so the grace period collapses to an immediate kill.
func terminateGracefully(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
