package mockrunner

import (
	"os/exec"
	"slices"
	"sync"

	"github.com/sa6mwa/linerun/port"
)

// Behavior represents a single Start or Wait outcome for the mock runner.
type Behavior func(cmd *exec.Cmd) error

// Runner is a thread-safe mock implementation of port.CommandRunner. Each
// Start or Wait call consumes the next queued behavior; calls beyond the
// queue return nil. Call metadata is recorded for assertions.
type Runner struct {
	mu        sync.Mutex
	behaviors []Behavior
	Calls     int
	Ops       []string
	Paths     []string
}

var _ port.CommandRunner = (*Runner)(nil)

// New constructs a Runner that will invoke behaviors sequentially for each
// Start and Wait call, in call order.
func New(behaviors ...Behavior) *Runner {
	return &Runner{behaviors: slices.Clone(behaviors)}
}

// Start records the call and dispatches to the next behavior.
func (r *Runner) Start(cmd *exec.Cmd) error {
	return r.dispatch("start", cmd)
}

// Wait records the call and dispatches to the next behavior.
func (r *Runner) Wait(cmd *exec.Cmd) error {
	return r.dispatch("wait", cmd)
}

func (r *Runner) dispatch(op string, cmd *exec.Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls++
	r.Ops = append(r.Ops, op)
	r.Paths = append(r.Paths, cmd.Path)

	if len(r.behaviors) == 0 {
		return nil
	}
	behavior := r.behaviors[0]
	r.behaviors = r.behaviors[1:]
	return behavior(cmd)
}

// Remaining returns the number of queued behaviors that have not yet been consumed.
func (r *Runner) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.behaviors)
}
