package commandrunner

import (
	"os/exec"

	"github.com/sa6mwa/linerun/port"
)

// DefaultRunner starts and waits on commands using os/exec directly.
type DefaultRunner struct{}

var _ port.CommandRunner = DefaultRunner{}

// Start begins execution of the command without waiting for it.
func (DefaultRunner) Start(cmd *exec.Cmd) error {
	return cmd.Start()
}

// Wait blocks until the command exits and releases its resources.
func (DefaultRunner) Wait(cmd *exec.Cmd) error {
	return cmd.Wait()
}

// Default is a shared instance of DefaultRunner.
var Default port.CommandRunner = DefaultRunner{}
