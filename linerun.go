// Package linerun executes a child process with its standard output and
// standard error merged into a single stream, forwards that stream to a
// caller-supplied sink one line at a time while the child is still running,
// and folds every chunk into a transcript returned alongside the exit code.
// A non-zero exit code is data, not an error: callers inspect
// Result.ExitCode the way shells and automation tooling do. Errors are
// reserved for commands that could not be launched, output that violates the
// decoding policy, and cancelled contexts.
//
// The companion package splitrun exposes the same surface but keeps the two
// streams separate, for callers that need an error-only transcript.
package linerun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/sa6mwa/linerun/adapters/commandrunner"
	"github.com/sa6mwa/linerun/adapters/transcript"
	"github.com/sa6mwa/linerun/port"
)

// DefaultGracePeriod is the SIGTERM to SIGKILL window applied when a
// Request does not set one.
const DefaultGracePeriod = 5 * time.Second

// Sink receives one decoded chunk per call, synchronously, in read order.
// The concatenation of every chunk passed to the sink equals the final
// Result.Output.
type Sink func(chunk string)

// StdoutSink writes the chunk to the calling process's standard output.
// os.Stdout is unbuffered, so the write is also the flush.
func StdoutSink(chunk string) {
	_, _ = os.Stdout.WriteString(chunk)
}

// StderrSink writes the chunk to the calling process's standard error.
func StderrSink(chunk string) {
	_, _ = os.Stderr.WriteString(chunk)
}

// DiscardSink drops the chunk. Output is still accumulated in the Result.
func DiscardSink(string) {}

// Request describes one subprocess execution.
type Request struct {
	// Command is the argv: program followed by its arguments. Must be
	// non-empty. The program is resolved via exec.LookPath when not an
	// absolute path.
	Command []string
	// Dir is the working directory. Empty means inherit the current one.
	// When set it must exist and be a directory or Execute fails with a
	// LaunchError.
	Dir string
	// Env is the child's environment as "key=value" entries. nil inherits
	// the parent environment; non-nil fully replaces it, no merging.
	Env []string
	// Stdin provides input to the child. nil leaves stdin unconnected.
	Stdin io.Reader
	// Sink receives each chunk as it is read. nil selects StdoutSink.
	Sink Sink
	// ReplaceInvalidUTF8 switches the decoding policy from strict (an
	// invalid chunk aborts the call with a DecodeError) to lossy (invalid
	// byte sequences become U+FFFD).
	ReplaceInvalidUTF8 bool
	// GracePeriod is how long to wait after SIGTERM before SIGKILL when the
	// context is cancelled or the call aborts. Defaults to DefaultGracePeriod.
	GracePeriod time.Duration
}

// Result holds the outcome of a completed execution.
type Result struct {
	// ExitCode is the child's exit code. -1 when the process was killed
	// before exiting or never produced a state.
	ExitCode int
	// Output is the order-preserving concatenation of every chunk read from
	// the merged stream.
	Output []byte
	// Error carries the failure when a Result is delivered through a
	// Background handle. Execute reports failures through its error return
	// instead and leaves this nil.
	Error error
}

// Execute runs the request to completion: spawn, stream, fold, wait. It does
// not return until the child has terminated and the merged stream has been
// fully drained. Launch failures, decoding failures, and context
// cancellation return a nil Result; a non-zero exit code does not.
//
//	res, err := linerun.Execute(ctx, linerun.Request{
//		Command: []string{"make", "-j8"},
//		Dir:     workdir,
//	})
//	if err != nil {
//		return err
//	}
//	if res.ExitCode != 0 {
//		// inspect res.Output
//	}
func Execute(ctx context.Context, req Request) (*Result, error) {
	return ExecuteWith(ctx, commandrunner.Default, req)
}

// ExecuteWith is Execute with an explicit port.CommandRunner, letting tests
// script process lifecycle failures without touching the operating system.
func ExecuteWith(ctx context.Context, runner port.CommandRunner, req Request) (*Result, error) {
	r, err := launch(ctx, runner, req)
	if err != nil {
		return nil, err
	}
	defer r.cancel()
	return r.finish(ctx)
}

// Run is a convenience for Execute with the default sink: live output echoes
// to the caller's stdout while being captured.
func Run(ctx context.Context, name string, arg ...string) (*Result, error) {
	return Execute(ctx, Request{Command: append([]string{name}, arg...)})
}

// RunQuiet captures output without echoing it anywhere.
func RunQuiet(ctx context.Context, name string, arg ...string) (*Result, error) {
	return Execute(ctx, Request{
		Command: append([]string{name}, arg...),
		Sink:    DiscardSink,
	})
}

// Do runs an inline shell script through /bin/sh -c with the default sink.
// Intended for one-liners in automation code:
//
//	res, err := linerun.Do(ctx, "uname -a && df -h /")
func Do(ctx context.Context, script string) (*Result, error) {
	return Execute(ctx, Request{Command: []string{"/bin/sh", "-c", script}})
}

// run is one in-flight execution: a started command, the read end of its
// merged pipe, and the fold destination.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	runner port.CommandRunner
	cmd    *exec.Cmd
	out    *os.File
	sink   Sink
	tr     port.Transcript
	lossy  bool
}

// launch validates the request, consults the context execution policy, and
// starts the child with stdout and stderr merged into one pipe. The returned
// run must be completed with finish.
func launch(ctx context.Context, runner port.CommandRunner, req Request) (*run, error) {
	if runner == nil {
		runner = commandrunner.Default
	}
	if len(req.Command) == 0 {
		return nil, ErrEmptyCommand
	}
	argv := slices.Clone(req.Command)
	path := argv[0]
	if !filepath.IsAbs(path) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, &LaunchError{Path: path, Err: err}
		}
		path = resolved
	}
	if req.Dir != "" {
		fi, err := os.Stat(req.Dir)
		if err != nil {
			return nil, &LaunchError{Path: path, Err: fmt.Errorf("working directory: %w", err)}
		}
		if !fi.IsDir() {
			return nil, &LaunchError{Path: path, Err: fmt.Errorf("working directory %s: not a directory", req.Dir)}
		}
	}
	if err := CheckPolicy(ctx, path); err != nil {
		return nil, err
	}

	grace := req.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	sink := req.Sink
	if sink == nil {
		sink = StdoutSink
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, path)
	cmd.Args = argv
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	cmd.Stdin = req.Stdin
	cmd.Stdout = pw
	cmd.Stderr = pw
	ConfigureTermination(cmd, grace)

	if err := runner.Start(cmd); err != nil {
		pr.Close()
		pw.Close()
		cancel()
		return nil, &LaunchError{Path: path, Err: err}
	}
	// The child holds the write end now; keeping ours open would prevent EOF.
	pw.Close()

	return &run{
		ctx:    runCtx,
		cancel: cancel,
		runner: runner,
		cmd:    cmd,
		out:    pr,
		sink:   sink,
		tr:     transcript.New(),
		lossy:  req.ReplaceInvalidUTF8,
	}, nil
}

// finish drains the merged stream to EOF, reaps the child, and assembles the
// Result. A decoding failure cancels the run context, which SIGTERMs the
// child's process group and SIGKILLs it after the grace period, so the child
// is always reaped before finish returns. The run context is otherwise left
// to the caller to cancel once the Result has been delivered.
func (r *run) finish(ctx context.Context) (*Result, error) {
	foldErr := FoldLines(r.out, r.sink, r.tr, r.lossy)
	if foldErr != nil {
		r.cancel()
	}
	r.out.Close()
	res := WaitProcess(r.runner, r.cmd, r.tr)

	// A child that exited on its own produced a valid Result; context
	// cancellation matters only when it is what terminated the child.
	exited := r.cmd.ProcessState != nil && r.cmd.ProcessState.Exited()
	if !exited {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("linerun: killed by context: %w", err)
		}
	}
	if foldErr != nil {
		return nil, foldErr
	}
	if res.Error != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(res.Error, &exitErr):
			// Non-zero exit is data, not an error.
			res.Error = nil
		case exited && (errors.Is(res.Error, context.Canceled) || errors.Is(res.Error, context.DeadlineExceeded)):
			// Cancellation raced with a clean exit; the exit wins.
			res.Error = nil
		default:
			return nil, fmt.Errorf("linerun: wait: %w", res.Error)
		}
	}
	return &res, nil
}
