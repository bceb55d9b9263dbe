/*
Package cli provides helpers shared by the oracle command.

Errors:

ConfigError and CommandError distinguish a bad configuration from a command
that failed while running. ExitCode maps them to process exit statuses:

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

Output:

Commands report progress with Check and print ledger listings with
TableWriter:

	cli.Check(os.Stdout, "Ledger opened (%s)", cfg.Ledger.Driver)

	tw := cli.NewTableWriter(os.Stdout, "STARTED", "USER", "PROVIDER")
	tw.Row(started, user, provider)
	tw.Flush()

Signals:

SignalContext returns a context cancelled on SIGINT or SIGTERM. A second
signal exits the process immediately.

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
