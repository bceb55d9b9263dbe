// Package config provides configuration management for the Oracle gateway.
//
// Configuration is read from a YAML file, decoded on top of the defaults in
// defaults.go, overridden by environment variables, and validated.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ORACLE_SECTION_FIELD:
//
//   - ORACLE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ORACLE_PROVIDERS_OPENAI_API_KEY overrides providers.entries.openai.api_key
//   - ORACLE_ADMISSION_ENABLED overrides admission.enabled
//
// # Hot Reload
//
// A Store holds the live configuration. Watcher reloads it when the file
// changes and Store.OnChange subscribers apply the parts that may change at
// runtime. A reload that fails validation leaves the previous configuration
// in place.
package config
