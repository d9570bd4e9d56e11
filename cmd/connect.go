package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scienceol/recovery/internal/client"
	"github.com/scienceol/recovery/internal/ui"
)

var flagURL string

func init() {
	connectCmd.Flags().StringVar(&flagURL, "url", "", "WebSocket URL (e.g. wss://example.com/ws)")
	rootCmd.AddCommand(connectCmd)
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Hold a WebSocket connection open, reconnecting with backoff",
	Long: `Establishes a persistent WebSocket connection to the given URL.

When the connection drops, a recovery cycle starts: attempts are spaced with
randomized exponential backoff until one succeeds or the retries run out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.Banner(version)

		if flagURL != "" {
			flags.URL = flagURL
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.URL == "" {
			return errors.New("server URL is required (--url, RECOVERY_URL, or config file)")
		}

		fmt.Fprintln(os.Stderr)
		ui.KeyValue("Endpoint", a.cfg.URL)
		a.showSettings()
		ui.Separator()

		c := client.New(a.cfg.URL, a.ctrl, a.bus, a.log.Named("client"))
		c.OnMessage = func(_ int, data []byte) {
			a.log.Debug("message", zap.ByteString("data", data))
		}

		// Handle graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		go func() {
			<-sigCh
			fmt.Fprintln(os.Stderr)
			ui.Warn("Shutting down...")
			c.Stop()
		}()

		return c.Run()
	},
}
