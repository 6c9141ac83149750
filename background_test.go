package linerun

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackgroundWaitReturnsResult(t *testing.T) {
	done := make(chan Result, 1)
	want := Result{ExitCode: 42}
	done <- want
	bg := &Background{Done: done}
	got := bg.Wait()
	if got.ExitCode != want.ExitCode {
		t.Fatalf("unexpected exit code: got %d want %d", got.ExitCode, want.ExitCode)
	}
}

func TestBackgroundWaitNilReceiver(t *testing.T) {
	var bg *Background
	got := bg.Wait()
	if got.ExitCode != 0 || got.Error != nil || len(got.Output) != 0 {
		t.Fatalf("expected zero result, got %#v", got)
	}
}

func TestBackgroundWaitRespectsStoredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bg := &Background{Context: ctx, Done: make(chan Result)}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := bg.Wait()
	if !errors.Is(res.Error, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", res.Error)
	}
}

func TestBackgroundWaitWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bg := &Background{Done: make(chan Result)}
	cancel()
	res := bg.WaitWithContext(ctx)
	if !errors.Is(res.Error, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", res.Error)
	}
}

func TestBackgroundWaitPrefersDeliveredResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan Result, 1)
	done <- Result{ExitCode: 7}
	bg := &Background{Context: ctx, Done: done}
	res := bg.Wait()
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res.ExitCode != 7 {
		t.Fatalf("unexpected exit code: got %d want 7", res.ExitCode)
	}
}

func TestWaitAfterRunAlreadyFinished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 20; i++ {
		bg, err := Start(ctx, Request{Command: []string{"true"}, Sink: DiscardSink})
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		// Let the run complete, including the run context teardown, before
		// asking for the result.
		time.Sleep(50 * time.Millisecond)
		res := bg.Wait()
		if res.Error != nil {
			t.Fatalf("run %d: unexpected error: %v", i, res.Error)
		}
		if res.ExitCode != 0 {
			t.Fatalf("run %d: unexpected exit code: %d", i, res.ExitCode)
		}
	}
}

func TestStartStreamsInBackground(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bg, err := Start(ctx, Request{
		Command: []string{"sh", "-c", `printf 'bg:1\nbg:2\n'`},
		Sink:    DiscardSink,
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer bg.Cancel()

	res := bg.Wait()
	if res.Error != nil {
		t.Fatalf("unexpected background error: %v", res.Error)
	}
	if res.ExitCode != 0 {
		t.Fatalf("unexpected exit code: %d", res.ExitCode)
	}
	if string(res.Output) != "bg:1\nbg:2\n" {
		t.Fatalf("unexpected output: %q", res.Output)
	}
}

func TestStartReportsLaunchErrorSynchronously(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bg, err := Start(ctx, Request{
		Command: []string{"/definitely/not/here"},
		Sink:    DiscardSink,
	})
	if bg != nil {
		t.Fatalf("expected nil handle, got %+v", bg)
	}
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
}

func TestStartCancelTerminatesChild(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bg, err := Start(ctx, Request{
		Command:     []string{"sleep", "10"},
		Sink:        DiscardSink,
		GracePeriod: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	start := time.Now()
	bg.Cancel()
	res := bg.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("child took too long to die: %v", elapsed)
	}
	if res.Error == nil && res.ExitCode == 0 {
		t.Fatalf("expected a non-zero outcome after cancel, got %#v", res)
	}
}
