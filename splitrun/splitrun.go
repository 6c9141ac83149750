// The linerun companion package splitrun exposes the same execution surface
// as linerun but keeps standard output and standard error separate: each
// stream is line-chunked, forwarded to its own sink, and folded into its own
// transcript. Interleaving across the two streams is not ordered (they are
// independent pipes); within each stream read order is preserved. Callers
// that want the shell-like merged transcript should import linerun instead.
package splitrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sa6mwa/linerun"
	"github.com/sa6mwa/linerun/adapters/commandrunner"
	"github.com/sa6mwa/linerun/adapters/transcript"
	"github.com/sa6mwa/linerun/port"
)

// Request describes one subprocess execution with separated streams. Field
// semantics match linerun.Request except for the two sinks.
type Request struct {
	Command []string
	Dir     string
	Env     []string
	Stdin   io.Reader
	// OutSink receives stdout chunks; nil selects linerun.StdoutSink.
	OutSink linerun.Sink
	// ErrSink receives stderr chunks; nil selects linerun.StderrSink.
	ErrSink            linerun.Sink
	ReplaceInvalidUTF8 bool
	GracePeriod        time.Duration
}

// Result holds the outcome of a completed execution with both transcripts.
type Result struct {
	ExitCode int
	Output   []byte
	Errout   []byte
	Error    error
}

// Execute runs the request to completion, draining both streams before
// returning. Error semantics match linerun.Execute: a non-zero exit code is
// data, launch and decode failures return a nil Result.
func Execute(ctx context.Context, req Request) (*Result, error) {
	return ExecuteWith(ctx, commandrunner.Default, req)
}

// ExecuteWith is Execute with an explicit port.CommandRunner.
func ExecuteWith(ctx context.Context, runner port.CommandRunner, req Request) (*Result, error) {
	if runner == nil {
		runner = commandrunner.Default
	}
	if len(req.Command) == 0 {
		return nil, linerun.ErrEmptyCommand
	}
	argv := slices.Clone(req.Command)
	path := argv[0]
	if !filepath.IsAbs(path) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, &linerun.LaunchError{Path: path, Err: err}
		}
		path = resolved
	}
	if req.Dir != "" {
		fi, err := os.Stat(req.Dir)
		if err != nil {
			return nil, &linerun.LaunchError{Path: path, Err: fmt.Errorf("working directory: %w", err)}
		}
		if !fi.IsDir() {
			return nil, &linerun.LaunchError{Path: path, Err: fmt.Errorf("working directory %s: not a directory", req.Dir)}
		}
	}
	if err := linerun.CheckPolicy(ctx, path); err != nil {
		return nil, err
	}

	grace := req.GracePeriod
	if grace <= 0 {
		grace = linerun.DefaultGracePeriod
	}
	outSink := req.OutSink
	if outSink == nil {
		outSink = linerun.StdoutSink
	}
	errSink := req.ErrSink
	if errSink == nil {
		errSink = linerun.StderrSink
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &linerun.LaunchError{Path: path, Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, &linerun.LaunchError{Path: path, Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmd := exec.CommandContext(runCtx, path)
	cmd.Args = argv
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	cmd.Stdin = req.Stdin
	cmd.Stdout = outW
	cmd.Stderr = errW
	linerun.ConfigureTermination(cmd, grace)

	if err := runner.Start(cmd); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return nil, &linerun.LaunchError{Path: path, Err: err}
	}
	outW.Close()
	errW.Close()

	outTr := transcript.New()
	errTr := transcript.New()
	var wg sync.WaitGroup
	var outFoldErr, errFoldErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		outFoldErr = linerun.FoldLines(outR, outSink, outTr, req.ReplaceInvalidUTF8)
		if outFoldErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		errFoldErr = linerun.FoldLines(errR, errSink, errTr, req.ReplaceInvalidUTF8)
		if errFoldErr != nil {
			cancel()
		}
	}()
	wg.Wait()
	outR.Close()
	errR.Close()

	res := linerun.WaitProcess(runner, cmd, nil)

	// A child that exited on its own produced a valid Result even if the
	// context was cancelled after the exit.
	exited := cmd.ProcessState != nil && cmd.ProcessState.Exited()
	if !exited {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("splitrun: killed by context: %w", err)
		}
	}
	if outFoldErr != nil {
		return nil, outFoldErr
	}
	if errFoldErr != nil {
		return nil, errFoldErr
	}
	if res.Error != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(res.Error, &exitErr):
		case exited && (errors.Is(res.Error, context.Canceled) || errors.Is(res.Error, context.DeadlineExceeded)):
		default:
			return nil, fmt.Errorf("splitrun: wait: %w", res.Error)
		}
	}
	return &Result{
		ExitCode: res.ExitCode,
		Output:   outTr.Bytes(),
		Errout:   errTr.Bytes(),
	}, nil
}

// Run is a convenience for Execute with the default sinks: stdout echoes to
// the caller's stdout, stderr to the caller's stderr, both captured.
func Run(ctx context.Context, name string, arg ...string) (*Result, error) {
	return Execute(ctx, Request{Command: append([]string{name}, arg...)})
}

// RunQuiet captures both streams without echoing them anywhere.
func RunQuiet(ctx context.Context, name string, arg ...string) (*Result, error) {
	return Execute(ctx, Request{
		Command: append([]string{name}, arg...),
		OutSink: linerun.DiscardSink,
		ErrSink: linerun.DiscardSink,
	})
}
