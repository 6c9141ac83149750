package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sa6mwa/linerun"
)

type fileConfig struct {
	GracePeriod    string   `toml:"grace_period"`
	DefaultVerdict string   `toml:"default_verdict"`
	Allow          []string `toml:"allow"`
	Deny           []string `toml:"deny"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
	EnvFile        string   `toml:"env_file"`
	Quiet          bool     `toml:"quiet"`
}

type config struct {
	GracePeriod   time.Duration
	DenyByDefault bool
	Allow         []string
	Deny          []string
	LogLevel      string
	LogFormat     string
	EnvFile       string
	Quiet         bool
}

func defaultConfig() config {
	return config{
		GracePeriod: linerun.DefaultGracePeriod,
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("grace_period") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.GracePeriod))
		if err != nil {
			return config{}, fmt.Errorf("parse grace_period: %w", err)
		}
		cfg.GracePeriod = d
	}

	if meta.IsDefined("default_verdict") {
		switch strings.ToLower(strings.TrimSpace(raw.DefaultVerdict)) {
		case "allow":
			cfg.DenyByDefault = false
		case "deny":
			cfg.DenyByDefault = true
		default:
			return config{}, fmt.Errorf("parse default_verdict: expected allow or deny, got %q", raw.DefaultVerdict)
		}
	}

	if meta.IsDefined("allow") {
		cfg.Allow = trimAll(raw.Allow)
	}
	if meta.IsDefined("deny") {
		cfg.Deny = trimAll(raw.Deny)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_format") {
		cfg.LogFormat = strings.TrimSpace(raw.LogFormat)
	}
	if meta.IsDefined("env_file") {
		cfg.EnvFile = strings.TrimSpace(raw.EnvFile)
	}
	if meta.IsDefined("quiet") {
		cfg.Quiet = raw.Quiet
	}

	return cfg, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
