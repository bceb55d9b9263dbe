package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tianji-hq/oracle/pkg/cli"
	"tianji-hq/oracle/pkg/ledger/storage"
	"tianji-hq/oracle/pkg/security/tls"
)

var validateFlags struct {
	connect bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the gateway.

The file is parsed, defaulted, overridden from ORACLE_* environment
variables and validated. Secret references are resolved. With --connect the
ledger database is opened and pinged and the TLS certificate is loaded.

Examples:
  # Validate the default config.yaml
  oracle validate

  # Validate and check external resources
  oracle validate --config /etc/oracle/config.yaml --connect`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.connect, "connect", false, "open the ledger and load TLS certificates")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	store, err := loadStore()
	if err != nil {
		return err
	}
	cfg := store.Get()
	cli.Check(out, "Configuration valid (%s)", cfgFile)

	if verbose {
		fmt.Fprintf(out, "  listen:    %s\n", cfg.Server.ListenAddress)
		fmt.Fprintf(out, "  stream:    %s\n", cfg.Stream.Path)
		fmt.Fprintf(out, "  providers: %d (default %q)\n", len(cfg.Providers.Entries), cfg.Providers.Default)
		fmt.Fprintf(out, "  tokens:    %d\n", len(cfg.Auth.Tokens))
	}

	if !validateFlags.connect {
		return nil
	}

	if cfg.Ledger.Enabled {
		ledgerStore, err := storage.Open(cfg.Ledger)
		if err != nil {
			return cli.NewCommandError("validate", fmt.Errorf("failed to open ledger: %w", err))
		}
		defer ledgerStore.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := ledgerStore.Ping(ctx); err != nil {
			return cli.NewCommandError("validate", fmt.Errorf("ledger ping failed: %w", err))
		}
		cli.Check(out, "Ledger reachable (%s)", cfg.Ledger.Driver)
	}

	if cfg.Server.TLS.Enabled {
		reloader, err := tls.NewCertificateReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, nil)
		if err != nil {
			return cli.NewCommandError("validate", err)
		}
		if _, err := tls.ServerConfig(cfg.Server.TLS, reloader); err != nil {
			return cli.NewConfigError("server.tls", err.Error())
		}
		cli.Check(out, "TLS certificate loaded")
	}
	return nil
}
