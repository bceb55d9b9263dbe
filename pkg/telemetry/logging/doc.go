// Package logging builds the process logger: a log/slog logger whose
// handler adds request-scoped fields from the context and redacts
// credentials before anything is written.
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "interpretation served", "token", tok)
//	// {"msg":"interpretation served","token":"tok-***","request_id":"req-123"}
//
// # Redaction
//
// Values under sensitive keys (token, api_key, authorization, secret,
// password) are masked, keeping a four character prefix. String values
// under any key are scanned for bearer tokens and sk- style API keys.
// Literal secrets registered with Redactor.AddSecret, such as configured
// auth tokens and provider keys, are masked wherever they appear.
//
// # Levels
//
// The level can be changed at runtime with SetLevel. The config watcher
// uses it to apply telemetry.logging.level without a restart.
package logging
