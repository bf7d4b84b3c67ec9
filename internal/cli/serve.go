package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/location"
	"github.com/evcraddock/field-visits/internal/logging"
	"github.com/evcraddock/field-visits/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		hostBridge bool
		dev        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Start an HTTP server for the mobile web UI.

By default each browser supplies its own position. With --host-bridge (or
FV_HOST_BRIDGE=true) positions come from a native host shell speaking
newline-delimited JSON on stdin/stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port, hostBridge, dev)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().BoolVar(&hostBridge, "host-bridge", false, "take positions from a host shell on stdin/stdout")
	cmd.Flags().BoolVar(&dev, "dev", false, "human-readable debug logging")

	return cmd
}

func runServe(cmd *cobra.Command, port int, hostBridge, dev bool) error {
	logging.Setup(dev || isDevMode())

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	cfg := web.Config{
		Repo:          c,
		Resolver:      newResolver(),
		SessionSecret: []byte(os.Getenv("FV_SESSION_SECRET")),
	}

	mode := location.Probe(os.Getenv, hostBridge)
	if mode == location.ModeHostBridge {
		bridge := location.NewHostBridge(os.Stdin, os.Stdout)
		defer func() {
			if err := bridge.Close(); err != nil {
				slog.Warn("closing host bridge", "error", err)
			}
		}()
		cfg.Bridge = bridge
	}
	slog.Info("location mode", "mode", string(mode), "api", c.BaseURL())

	srv, err := web.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			slog.Warn("closing sessions", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, port)
}
