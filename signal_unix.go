//go:build unix

package linerun

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ConfigureTermination places the child in its own process group and arranges
// graceful shutdown: when the command's context is cancelled the whole group
// receives SIGTERM, and grace later the process is killed outright via
// WaitDelay. Must be called before the command is started.
func ConfigureTermination(cmd *exec.Cmd, grace time.Duration) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative pid signals the whole process group.
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = grace
}
