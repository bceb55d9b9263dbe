package server

import (
	"reflect"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/security/auth"
)

// apply pushes a reloaded configuration into the running components.
// Sections that are wired at startup only are reported and ignored.
func (s *Server) apply(old, cfg *config.Config) {
	s.guard.SetEnabled(cfg.Admission.Enabled)
	s.guard.SetMaxInFlight(cfg.Admission.MaxInFlight)
	s.dispatcher.SetDeniedMessage(cfg.Admission.DeniedMessage)
	s.interpret.SetDeniedMessage(cfg.Admission.DeniedMessage)
	s.dispatcher.SetCancelOnDisconnect(cfg.Stream.CancelOnDisconnect)
	s.negotiator.SetAllowedOrigins(cfg.Stream.AllowedOrigins)
	s.authorizer.Replace(auth.TokensFromConfig(cfg.Auth))

	if err := s.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
		s.log.Warn("invalid log level in reloaded configuration", "level", cfg.Telemetry.Logging.Level, "error", err)
	}

	if !reflect.DeepEqual(old.Providers, cfg.Providers) || old.Stream.MockChunkDelay != cfg.Stream.MockChunkDelay {
		if err := s.manager.LoadFromConfig(cfg); err != nil {
			s.log.Error("failed to reload providers", "error", err)
		}
	}

	s.applySecrets(cfg)

	if restart := restartRequired(old, cfg); len(restart) > 0 {
		s.log.Warn("configuration changes require a restart", "sections", restart)
	}
	s.log.Info("configuration reloaded")
}

// applySecrets registers every credential in cfg with the log redactor.
func (s *Server) applySecrets(cfg *config.Config) {
	redactor := s.logger.Redactor()
	if redactor == nil {
		return
	}
	var secrets []string
	for _, p := range cfg.Providers.Entries {
		if p.APIKey != "" {
			secrets = append(secrets, p.APIKey)
		}
	}
	for _, t := range cfg.Auth.Tokens {
		if t.Token != "" {
			secrets = append(secrets, t.Token)
		}
	}
	redactor.SetSecrets(secrets)
}

func restartRequired(old, cfg *config.Config) []string {
	var sections []string
	if !reflect.DeepEqual(old.Server, cfg.Server) {
		sections = append(sections, "server")
	}
	if old.Stream.Path != cfg.Stream.Path ||
		old.Stream.MaxURLLength != cfg.Stream.MaxURLLength ||
		old.Stream.MaxPayloadBytes != cfg.Stream.MaxPayloadBytes ||
		old.Stream.StreamTimeout != cfg.Stream.StreamTimeout {
		sections = append(sections, "stream")
	}
	if !reflect.DeepEqual(old.Ledger, cfg.Ledger) {
		sections = append(sections, "ledger")
	}
	if !reflect.DeepEqual(old.Telemetry.Metrics, cfg.Telemetry.Metrics) ||
		!reflect.DeepEqual(old.Telemetry.Tracing, cfg.Telemetry.Tracing) {
		sections = append(sections, "telemetry")
	}
	return sections
}
