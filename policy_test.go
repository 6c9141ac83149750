package linerun

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestPolicyAllowsKnownProgramAndDeniesUnknown(t *testing.T) {
	shPath, err := exec.LookPath("sh")
	if err != nil {
		t.Fatalf("lookpath sh: %v", err)
	}

	ctx := WithPolicy(context.Background(), DENY)
	ctx = WithRule(ctx, ALLOW, "sh")

	if err := CheckPolicy(ctx, shPath); err != nil {
		t.Fatalf("expected sh to be allowed, got %v", err)
	}

	other := "/definitely/not/installed"
	err = CheckPolicy(ctx, other)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied for unknown program, got %v", err)
	}
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PolicyError, got %T", err)
	}
	if policyErr.Path != other {
		t.Fatalf("unexpected path on PolicyError: got %q want %q", policyErr.Path, other)
	}
}

func TestPolicyDenyRuleOverridesDefaultAllow(t *testing.T) {
	ctx := WithRule(context.Background(), DENY, "sh")
	shPath, err := exec.LookPath("sh")
	if err != nil {
		t.Fatalf("lookpath sh: %v", err)
	}
	if err := CheckPolicy(ctx, shPath); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	// Unlisted programs still fall through to the default verdict.
	if err := CheckPolicy(ctx, "/usr/bin/env"); err != nil {
		t.Fatalf("expected default allow, got %v", err)
	}
}

func TestPolicyLastRuleWins(t *testing.T) {
	ctx := WithRule(context.Background(), DENY, "sh")
	ctx = WithRule(ctx, ALLOW, "sh")
	shPath, err := exec.LookPath("sh")
	if err != nil {
		t.Fatalf("lookpath sh: %v", err)
	}
	if err := CheckPolicy(ctx, shPath); err != nil {
		t.Fatalf("expected sh to be allowed after re-ruling, got %v", err)
	}
}

func TestWithRuleCatchErrorRejectsUnresolvableProgram(t *testing.T) {
	if _, err := WithRuleCatchError(context.Background(), ALLOW, "no-such-program-linerun-test"); err == nil {
		t.Fatalf("expected error for unresolvable program")
	}
}

func TestWithRulePanicsOnUnresolvableProgram(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic")
		}
	}()
	_ = WithRule(context.Background(), ALLOW, "no-such-program-linerun-test")
}

func TestNoPolicyAllowsEverything(t *testing.T) {
	if err := CheckPolicy(context.Background(), "/anything/at/all"); err != nil {
		t.Fatalf("expected nil without a policy, got %v", err)
	}
}

func TestExecuteHonorsDenyPolicy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	denied := WithPolicy(ctx, DENY)
	res, err := Execute(denied, Request{
		Command: []string{"echo", "hi"},
		Sink:    DiscardSink,
	})
	if res != nil {
		t.Fatalf("expected nil result, got %+v", res)
	}
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}

	allowed := WithRule(denied, ALLOW, "echo")
	res, err = Execute(allowed, Request{
		Command: []string{"echo", "hi"},
		Sink:    DiscardSink,
	})
	if err != nil {
		t.Fatalf("expected allowed execution, got %v", err)
	}
	if string(res.Output) != "hi\n" {
		t.Fatalf("unexpected output: %q", res.Output)
	}
}
