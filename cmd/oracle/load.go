package main

import (
	"fmt"
	"log/slog"

	"tianji-hq/oracle/pkg/cli"
	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/security/secrets"
)

// loadStore opens the configuration file named by --config. Secret
// references are resolved on this load and on every reload.
func loadStore() (*config.Store, error) {
	store, err := config.OpenStore(cfgFile, config.WithResolver(secrets.ConfigResolver(slog.Default())))
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return store, nil
}
