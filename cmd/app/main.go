package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ScanDesk/internal/di"
	"ScanDesk/internal/domain/models"
	"ScanDesk/pkg/config"
	"ScanDesk/pkg/server"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	tab        string
	timeframe  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "scandesk",
		Short:        "Licensed live stock signal scanner",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "config file path")
	root.PersistentFlags().StringVar(&opts.tab, "tab", "", "visible tab: call|put (ce|pe)")
	root.PersistentFlags().StringVar(&opts.timeframe, "timeframe", "", "scan timeframe: 1m|2m|3m|5m|15m")

	root.AddCommand(
		runCmd(opts),
		scanCmd(opts),
		activateCmd(opts),
		deviceCmd(opts),
		snapshotCmd(opts),
	)
	return root
}

// loadConfig reads the config file and applies the command line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if opts.tab != "" {
		cfg.Scan.Tab = opts.tab
	}
	if opts.timeframe != "" {
		cfg.Scan.Timeframe = opts.timeframe
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the dashboard: license check, scans, scheduler, API and websocket feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log.Printf("env=%s journal=%s storage=%s", cfg.Environment, cfg.Journal.Backend, cfg.Storage.Backend)

			// Wire DI: Initialize all dependencies
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			log.Printf("dashboard api: http://%s remote=%s", cfg.Addr(), cfg.Remote.BaseURL)

			// Run application (blocks until signal)
			return app.Run()
		},
	}
}

// consoleApp builds an App that prints to out. Logs go to stderr so they do
// not interleave with the command output.
func consoleApp(opts *options, out io.Writer) (*server.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	cfg.Scan.AutoRefresh = false
	app, err := di.InitializeConsole(cfg, out)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// waitLatest blocks until the most recent scan session ends.
func waitLatest(ctx context.Context, app *server.App) (models.ScanSummary, bool) {
	h, ok := app.Dashboard().LatestScan()
	if !ok {
		return models.ScanSummary{}, false
	}
	select {
	case <-h.Done():
		return h.Summary()
	case <-ctx.Done():
		return models.ScanSummary{}, false
	}
}

func scanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one streamed scan and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := consoleApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			defer func() { _ = app.Shutdown(context.Background()) }()

			if err := app.Start(ctx); err != nil {
				return err
			}
			summary, ok := waitLatest(ctx, app)
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("no scan started: license not active")
			}
			if summary.State == models.SessionClosedError {
				return fmt.Errorf("scan failed: %s", summary.Error)
			}
			return nil
		},
	}
}

func activateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <license-key>",
		Short: "Validate and store a license key, then run the first scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := consoleApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			defer func() { _ = app.Shutdown(context.Background()) }()

			if err := app.Serve(ctx); err != nil {
				return err
			}
			decision, err := app.Dashboard().Activate(ctx, args[0])
			if err != nil {
				return err
			}
			if decision.Skipped {
				return errors.New("license key is empty")
			}
			if !decision.Authorized {
				return fmt.Errorf("activation failed: %s", decision.Message)
			}
			waitLatest(ctx, app)
			return nil
		},
	}
}

func deviceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print this installation's device id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := consoleApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() { _ = app.Shutdown(context.Background()) }()

			st, err := app.Dashboard().Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.DeviceID)
			return nil
		},
	}
}

func snapshotCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Load the server's snapshot batch and print the visible tab",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := consoleApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			defer func() { _ = app.Shutdown(context.Background()) }()

			if err := app.Serve(ctx); err != nil {
				return err
			}
			snap, err := app.Dashboard().LoadSnapshot(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot: %d signals, %d scanned\n", len(snap.Signals), snap.Total())
			return nil
		},
	}
}
