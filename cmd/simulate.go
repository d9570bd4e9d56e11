package cmd

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scienceol/recovery/internal/recovery"
	"github.com/scienceol/recovery/internal/ui"
)

var (
	flagFailRate float64
	flagHangRate float64
	flagLatency  time.Duration
)

func init() {
	simulateCmd.Flags().Float64Var(&flagFailRate, "fail-rate", 0.5, "Probability that an attempt fails")
	simulateCmd.Flags().Float64Var(&flagHangRate, "hang-rate", 0, "Probability that an attempt never answers")
	simulateCmd.Flags().DurationVar(&flagLatency, "latency", 50*time.Millisecond, "How long each attempt takes to answer")
	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a recovery cycle against a simulated flaky service",
	Long: `Runs one recovery cycle without touching the network. Each attempt fails,
hangs until its timeout or succeeds according to the given rates, which is
useful to see how a set of backoff settings behaves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFailRate < 0 || flagHangRate < 0 || flagFailRate+flagHangRate > 1 {
			return errors.New("fail-rate and hang-rate must be non-negative and add up to at most 1")
		}

		ui.Banner(version)
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Fprintln(os.Stderr)
		a.showSettings()
		ui.Separator()

		done := make(chan error, 1)
		onAttempt := func(at recovery.Attempt) {
			go func() {
				time.Sleep(flagLatency)
				switch r := rand.Float64(); {
				case r < flagHangRate:
				case r < flagHangRate+flagFailRate:
					a.ctrl.Failed(fmt.Errorf("simulated failure on attempt %d", at.Number))
				default:
					a.ctrl.Succeeded()
				}
			}()
		}
		if err := a.bus.Subscribe(recovery.EventAttempt, onAttempt); err != nil {
			return err
		}
		// A cycle ends exactly once, with either event.
		if err := a.bus.SubscribeOnce(recovery.EventSuccess, func(recovery.Attempt) { done <- nil }); err != nil {
			return err
		}
		if err := a.bus.SubscribeOnce(recovery.EventPermanentFailure, func(err error, _ recovery.Attempt) { done <- err }); err != nil {
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		a.ctrl.Reconnect()

		select {
		case err := <-done:
			return err
		case <-sigCh:
			fmt.Fprintln(os.Stderr)
			ui.Warn("Interrupted")
			return nil
		}
	},
}
