package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recovery",
	Short: "recovery — keep a connection alive with randomized exponential backoff",
	Long: `recovery drives reconnection attempts with randomized exponential backoff,
bounded by a maximum delay and a maximum number of retries, and gives every
attempt a deadline.

Settings are read from ~/.recovery/config.yaml, then RECOVERY_* environment
variables, then command line flags.`,
	SilenceUsage: true,
}

var flags configFlags

func init() {
	flags.register(rootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
