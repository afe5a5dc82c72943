// Package logger provides structured logging for boorudl.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can substitute NewTestLogger or
// NewNopLogger.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("page", 3).Info("listing fetched")
//	logger.WithError(err).Error("download failed")
//
// Structured logs go to stderr (or the configured file). The operator-facing
// progress lines ([page], [ok], ...) are printed by package ui.
package logger
