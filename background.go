package linerun

import (
	"context"

	"github.com/sa6mwa/linerun/adapters/commandrunner"
	"github.com/sa6mwa/linerun/port"
)

// Background is the handle for an execution streaming in a goroutine. Done
// delivers exactly one Result; Cancel SIGTERMs the child's process group
// (SIGKILL after the grace period).
type Background struct {
	Context context.Context
	Cancel  context.CancelFunc
	Done    <-chan Result
}

// Wait blocks until the background command finishes or the stored context is
// cancelled. It returns the underlying Result; if the stored context is nil
// it behaves like WaitWithContext(context.Background()).
func (bg *Background) Wait() Result {
	if bg == nil {
		return Result{}
	}
	ctx := bg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return bg.WaitWithContext(ctx)
}

// WaitWithContext blocks until the background command completes or ctx is
// cancelled. Cancellation returns a Result whose Error is ctx.Err().
func (bg *Background) WaitWithContext(ctx context.Context) Result {
	if bg == nil {
		return Result{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if bg.Done == nil {
		return Result{}
	}
	// A finished run has its Result buffered on Done before the run context
	// is cancelled; take it in preference to reporting cancellation.
	select {
	case res, ok := <-bg.Done:
		if !ok {
			return Result{}
		}
		return res
	default:
	}
	select {
	case res, ok := <-bg.Done:
		if !ok {
			return Result{}
		}
		return res
	case <-ctx.Done():
		return Result{Error: ctx.Err()}
	}
}

// Start launches the request and returns immediately; streaming, folding,
// and reaping continue in a goroutine. Launch failures are reported
// synchronously. Stream and decode failures arrive in Result.Error on Done,
// with ExitCode -1.
//
//	bg, err := linerun.Start(ctx, req)
//	if err != nil {
//		return err
//	}
//	defer bg.Cancel()
//	res := bg.Wait()
func Start(ctx context.Context, req Request) (*Background, error) {
	return StartWith(ctx, commandrunner.Default, req)
}

// StartWith is Start with an explicit port.CommandRunner.
func StartWith(ctx context.Context, runner port.CommandRunner, req Request) (*Background, error) {
	r, err := launch(ctx, runner, req)
	if err != nil {
		return nil, err
	}
	done := make(chan Result, 1)
	go func() {
		res, ferr := r.finish(ctx)
		if ferr != nil {
			done <- Result{ExitCode: -1, Error: ferr}
		} else {
			done <- *res
		}
		close(done)
		// Cancel only after the Result is on the channel, so a Wait racing
		// completion sees the Result rather than the cancelled run context.
		r.cancel()
	}()
	return &Background{
		Context: r.ctx,
		Cancel:  r.cancel,
		Done:    done,
	}, nil
}
