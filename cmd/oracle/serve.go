package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tianji-hq/oracle/pkg/cli"
	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/server"
	"tianji-hq/oracle/pkg/telemetry/logging"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Oracle gateway",
	Long: `Start the Oracle gateway with the specified configuration.

The gateway accepts WebSocket sessions on the stream path and interpretation
requests on /api/interpret/bazi, and records each generation in the ledger.
Changes to the configuration file are applied without a restart where
possible.

Examples:
  # Start with default config
  oracle serve

  # Start with custom config
  oracle serve --config /etc/oracle/config.yaml

  # Override listen address
  oracle serve --listen 0.0.0.0:8080

  # Validate config without starting the gateway
  oracle serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", true, "reload the config file when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Flag overrides go through the environment so they survive reloads.
	if serveFlags.listenAddress != "" {
		os.Setenv(config.EnvPrefix+"SERVER_LISTEN_ADDRESS", serveFlags.listenAddress)
	}
	if serveFlags.logLevel != "" {
		os.Setenv(config.EnvPrefix+"TELEMETRY_LOGGING_LEVEL", serveFlags.logLevel)
	}

	store, err := loadStore()
	if err != nil {
		return err
	}
	cfg := store.Get()

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	if verbose {
		_ = logger.SetLevel("debug")
	}
	slog.SetDefault(logger.Logger)

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		cli.Check(out, "Configuration valid")
		return nil
	}

	printBanner(out, cfg)

	srv, err := server.New(server.Options{
		Store:  store,
		Logger: logger,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer srv.Close()

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if serveFlags.watch {
		watcher := config.NewWatcher(store, 0)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	cli.Check(out, "Listening on %s", cfg.Server.ListenAddress)
	if err := g.Wait(); err != nil {
		return cli.NewCommandError("serve", err)
	}
	cli.Check(out, "Shutdown complete")
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Oracle %s\n", Version)
	cli.Check(w, "Configuration loaded (%s)", cfgFile)
	cli.Check(w, "Providers configured (%d, default %q)", len(cfg.Providers.Entries), cfg.Providers.Default)
	cli.Check(w, "Stream path %s (%d allowed origins)", cfg.Stream.Path, len(cfg.Stream.AllowedOrigins))
	if cfg.Admission.Enabled {
		cli.Check(w, "Admission enforced")
	} else {
		cli.Warn(w, "Admission disabled")
	}
	if cfg.Ledger.Enabled {
		cli.Check(w, "Ledger enabled (%s)", cfg.Ledger.Driver)
	} else {
		cli.Warn(w, "Ledger disabled")
	}
	if cfg.Server.TLS.Enabled {
		cli.Check(w, "TLS enabled (minimum %s)", cfg.Server.TLS.MinVersion)
	}
}
