// Package config parses the flat set of command-line flags respd
// needs into a Config value. pflag is used directly; there is no
// subcommand tree to justify a full cobra command.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Config holds every tunable respd reads from the command line.
type Config struct {
	// ListenAddr is the RESP TCP listen address.
	ListenAddr string
	// MetricsAddr is the Prometheus /metrics HTTP listen address.
	// Empty disables the metrics listener.
	MetricsAddr string
	// ExecutorCapacity bounds the Executor's submission channel.
	ExecutorCapacity int
	// LogLevel is a logrus level name ("debug", "info", "warn",
	// "error").
	LogLevel string
}

// Parse builds a Config from args (typically os.Args[1:]).
func Parse(args []string) (Config, error) {
	fs := pflag.NewFlagSet("respd", pflag.ContinueOnError)

	cfg := Config{}
	fs.StringVar(&cfg.ListenAddr, "addr", "127.0.0.1:6379", "RESP listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9121", "Prometheus metrics listen address, empty to disable")
	fs.IntVar(&cfg.ExecutorCapacity, "executor-capacity", 100, "capacity of the executor's request submission channel")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.ExecutorCapacity <= 0 {
		return Config{}, fmt.Errorf("executor-capacity must be positive, got %d", cfg.ExecutorCapacity)
	}
	return cfg, nil
}
