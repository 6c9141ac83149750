//go:build !unix

package linerun

import (
	"os/exec"
	"time"
)

// ConfigureTermination arranges shutdown on platforms without unix process
// groups: cancelling the command's context kills the process directly, and
// WaitDelay bounds how long Wait may block afterwards.
func ConfigureTermination(cmd *exec.Cmd, grace time.Duration) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = grace
}
