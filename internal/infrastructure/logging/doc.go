// Package logging provides structured logging for the beamline service.
//
// It wraps log/slog with default fields (service, version), JSON or text
// output and level filtering. Packages that log declare a small Logger
// interface (Debug/Info/Warn/Error) which *Logger satisfies.
//
// Configuration in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("creating devices", "count", len(table))
package logging
