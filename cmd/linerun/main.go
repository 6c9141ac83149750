// Command linerun runs a program, echoes its merged stdout/stderr line by
// line to the caller's stdout while capturing it, and exits with the child's
// exit code. Launch failures exit 127, policy denials 126, usage errors 2.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/sa6mwa/linerun"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("linerun", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: linerun [flags] -- command [args...]\n")
		fs.PrintDefaults()
	}
	var (
		configPath = fs.String("config", "", "path to TOML config file")
		dir        = fs.String("C", "", "working directory for the command")
		envFile    = fs.String("env-file", "", "dotenv file appended to the inherited environment")
		quiet      = fs.Bool("quiet", false, "capture output without echoing it")
		grace      = fs.Duration("grace", 0, "SIGTERM to SIGKILL grace period on interrupt")
		logLevel   = fs.String("log-level", "", "log level (trace..panic, default info)")
		logFormat  = fs.String("log-format", "", "log format: console or json")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "linerun: %v\n", err)
			return 2
		}
		cfg = loaded
	}
	// Flags set on the command line win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "env-file":
			cfg.EnvFile = *envFile
		case "quiet":
			cfg.Quiet = *quiet
		case "grace":
			cfg.GracePeriod = *grace
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})

	argv := fs.Args()
	if len(argv) == 0 {
		fs.Usage()
		return 2
	}

	logger := newLogger(cfg)
	runID := uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, err := applyPolicy(ctx, cfg)
	if err != nil {
		logger.Error().Str("run_id", runID).Err(err).Msg("invalid policy rule")
		return 2
	}

	env, err := buildEnv(cfg.EnvFile)
	if err != nil {
		logger.Error().Str("run_id", runID).Err(err).Msg("unable to load env file")
		return 2
	}

	var sink linerun.Sink
	if cfg.Quiet {
		sink = linerun.DiscardSink
	}

	logger.Info().
		Str("run_id", runID).
		Str("program", argv[0]).
		Int("args", len(argv)-1).
		Str("dir", *dir).
		Msg("starting command")
	start := time.Now()

	res, err := linerun.Execute(ctx, linerun.Request{
		Command:     argv,
		Dir:         *dir,
		Env:         env,
		Sink:        sink,
		GracePeriod: cfg.GracePeriod,
	})
	if err != nil {
		evt := logger.Error().Str("run_id", runID).Err(err).Dur("duration", time.Since(start))
		switch {
		case errors.Is(err, linerun.ErrDenied):
			evt.Msg("command denied by policy")
			return 126
		case errors.Is(err, linerun.ErrLaunch):
			evt.Msg("unable to launch command")
			return 127
		default:
			evt.Msg("command aborted")
			return 1
		}
	}

	logger.Info().
		Str("run_id", runID).
		Int("exit_code", res.ExitCode).
		Dur("duration", time.Since(start)).
		Msg("command finished")
	return res.ExitCode
}

func newLogger(cfg config) zerolog.Logger {
	// Logs go to stderr; stdout belongs to the child's output.
	var out io.Writer = os.Stderr
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("app", "linerun").Logger()
}

func applyPolicy(ctx context.Context, cfg config) (context.Context, error) {
	if cfg.DenyByDefault {
		ctx = linerun.WithPolicy(ctx, linerun.DENY)
	}
	var err error
	if len(cfg.Allow) > 0 {
		ctx, err = linerun.WithRuleCatchError(ctx, linerun.ALLOW, cfg.Allow...)
		if err != nil {
			return ctx, err
		}
	}
	if len(cfg.Deny) > 0 {
		ctx, err = linerun.WithRuleCatchError(ctx, linerun.DENY, cfg.Deny...)
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// buildEnv returns nil (inherit) when no env file is configured; otherwise
// it constructs the full replacement environment explicitly: the parent
// environment plus the dotenv entries, in sorted key order.
func buildEnv(envFile string) ([]string, error) {
	if envFile == "" {
		return nil, nil
	}
	vals, err := godotenv.Read(envFile)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+vals[k])
	}
	return env, nil
}
