package linerun

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

type Verdict int

const (
	ALLOW Verdict = iota
	DENY
)

var ErrDenied = errors.New("linerun: execution denied by policy")

// PolicyError reports the verdict and the resolved program path that
// triggered it. Satisfies errors.Is(err, ErrDenied).
type PolicyError struct {
	Verdict Verdict
	Path    string
}

func (e *PolicyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("linerun: %s %s", e.Verdict.String(), e.Path)
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrDenied
}

func (v Verdict) String() string {
	switch v {
	case ALLOW:
		return "allow"
	case DENY:
		return "deny"
	default:
		return fmt.Sprintf("verdict(%d)", v)
	}
}

type policyKey struct{}

type executionPolicy struct {
	defaultVerdict Verdict
	allow          map[string]struct{}
	deny           map[string]struct{}
}

func newExecutionPolicy() *executionPolicy {
	return &executionPolicy{
		defaultVerdict: ALLOW,
		allow:          make(map[string]struct{}),
		deny:           make(map[string]struct{}),
	}
}

func (p *executionPolicy) clone() *executionPolicy {
	if p == nil {
		return newExecutionPolicy()
	}
	clone := newExecutionPolicy()
	clone.defaultVerdict = p.defaultVerdict
	for k := range p.allow {
		clone.allow[k] = struct{}{}
	}
	for k := range p.deny {
		clone.deny[k] = struct{}{}
	}
	return clone
}

func policyFromContext(ctx context.Context) *executionPolicy {
	if ctx == nil {
		return nil
	}
	if existing, ok := ctx.Value(policyKey{}).(*executionPolicy); ok {
		return existing
	}
	return nil
}

// WithPolicy returns a derived context that sets the default verdict
// consulted when no explicit allow/deny rule matches a resolved program
// path.
//
//	ctx := linerun.WithPolicy(context.Background(), linerun.DENY)
//	ctx = linerun.WithRule(ctx, linerun.ALLOW, "/usr/bin/make")
//	res, err := linerun.Execute(ctx, req)
func WithPolicy(ctx context.Context, verdict Verdict) context.Context {
	policy := policyFromContext(ctx).clone()
	policy.defaultVerdict = verdict
	return context.WithValue(ctx, policyKey{}, policy)
}

// WithRule returns a derived context containing explicit allow/deny entries
// for the given programs. Entries that are not absolute paths are resolved
// via exec.LookPath; symlinks are resolved so a rule matches the program a
// child would actually run. WithRule must succeed - unresolvable input
// causes a panic.
//
//	ctx := linerun.WithPolicy(ctx, linerun.DENY)
//	ctx = linerun.WithRule(ctx, linerun.ALLOW, "sh", "/usr/bin/rsync")
func WithRule(ctx context.Context, rule Verdict, programs ...string) context.Context {
	ctx, err := WithRuleCatchError(ctx, rule, programs...)
	if err != nil {
		panic(err)
	}
	return ctx
}

// WithRuleCatchError mirrors WithRule but returns an error instead of
// panicking when a program cannot be resolved or an unsupported verdict is
// supplied.
func WithRuleCatchError(ctx context.Context, rule Verdict, programs ...string) (context.Context, error) {
	if len(programs) == 0 {
		return ctx, nil
	}
	policy := policyFromContext(ctx).clone()
	for _, program := range programs {
		path, err := normalizeProgram(program)
		if err != nil {
			return ctx, err
		}
		switch rule {
		case ALLOW:
			policy.allow[path] = struct{}{}
			delete(policy.deny, path)
		case DENY:
			policy.deny[path] = struct{}{}
			delete(policy.allow, path)
		default:
			return ctx, fmt.Errorf("unsupported verdict %d", rule)
		}
	}
	return context.WithValue(ctx, policyKey{}, policy), nil
}

func normalizeProgram(program string) (string, error) {
	if program == "" {
		return "", fmt.Errorf("empty program in policy rule")
	}
	path := program
	if !filepath.IsAbs(path) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve policy rule %q: %w", program, err)
		}
		path = resolved
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return filepath.Clean(path), nil
}

// CheckPolicy inspects the context policy and returns ErrDenied if the
// resolved program path violates the configured rules. Execute calls this
// before spawning; it is exported so callers can pre-validate.
func CheckPolicy(ctx context.Context, path string) error {
	policy := policyFromContext(ctx)
	if policy == nil {
		return nil
	}
	normalized := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		normalized = resolved
	}
	normalized = filepath.Clean(normalized)
	if policy.evaluate(normalized) == DENY {
		return &PolicyError{Verdict: DENY, Path: normalized}
	}
	return nil
}

func (p *executionPolicy) evaluate(path string) Verdict {
	if p == nil {
		return ALLOW
	}
	if _, denied := p.deny[path]; denied {
		return DENY
	}
	if _, allowed := p.allow[path]; allowed {
		return ALLOW
	}
	return p.defaultVerdict
}
