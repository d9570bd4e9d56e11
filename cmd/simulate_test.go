package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scienceol/recovery/internal/recovery"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestSimulateSucceeds(t *testing.T) {
	err := runCLI(t, "simulate",
		"--fail-rate", "0",
		"--min-delay", "1 ms",
		"--max-delay", "10 ms",
		"--attempt-timeout", "1 second",
		"--hang-rate", "0",
		"--latency", "0s",
	)
	assert.NoError(t, err)
}

func TestSimulateGivesUp(t *testing.T) {
	err := runCLI(t, "simulate",
		"--fail-rate", "1",
		"--max-retries", "2",
		"--min-delay", "1 ms",
		"--max-delay", "10 ms",
		"--attempt-timeout", "1 second",
		"--hang-rate", "0",
		"--latency", "0s",
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, recovery.ErrRecoveryExhausted)
}

func TestSimulateRejectsRates(t *testing.T) {
	err := runCLI(t, "simulate", "--fail-rate", "0.8", "--hang-rate", "0.5")
	assert.ErrorContains(t, err, "hang-rate")
}

func TestConnectRequiresURL(t *testing.T) {
	t.Setenv("RECOVERY_URL", "")
	err := runCLI(t, "connect")
	assert.ErrorContains(t, err, "URL is required")
}
