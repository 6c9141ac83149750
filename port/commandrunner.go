package port

import (
	"os/exec"
)

// CommandRunner abstracts starting and reaping an exec.Cmd so runners can be
// plugged in across packages without depending on a specific adapter
// implementation. Production code delegates to adapters/commandrunner; tests
// inject adapters/mockrunner.
type CommandRunner interface {
	Start(cmd *exec.Cmd) error
	Wait(cmd *exec.Cmd) error
}
