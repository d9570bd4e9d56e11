package cmd

import (
	"github.com/spf13/cobra"

	"github.com/scienceol/recovery/internal/config"
)

type configFlags struct {
	config.Flags
	factor  float64
	retries int
}

func (f *configFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.ConfigPath, "config", "", "Config file (default: ~/.recovery/config.yaml)")
	pf.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&f.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	pf.StringVar(&f.MinDelay, "min-delay", "", "Delay before the first attempt (e.g. \"500 ms\")")
	pf.StringVar(&f.MaxDelay, "max-delay", "", "Upper bound on any delay (e.g. \"1 minute\", \"infinity\")")
	pf.StringVar(&f.AttemptTimeout, "attempt-timeout", "", "Deadline for a single attempt (e.g. \"30 seconds\")")
	pf.Float64Var(&f.factor, "factor", 0, "Exponential backoff factor (>= 1)")
	pf.IntVar(&f.retries, "max-retries", 0, "Attempts before giving up")
}

// load resolves the configuration, taking numeric flags into account only
// when they were given.
func (f *configFlags) load(cmd *cobra.Command) (*config.Config, error) {
	resolved := f.Flags
	if cmd.Flags().Changed("factor") {
		resolved.Factor = &f.factor
	}
	if cmd.Flags().Changed("max-retries") {
		resolved.MaxRetries = &f.retries
	}
	return config.Load(resolved)
}
