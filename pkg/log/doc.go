// Package log provides structured logging for Strata using zerolog.
//
// The package wraps zerolog behind a global logger initialized once via
// Init, plus helpers that derive child loggers carrying the component,
// node, or operation the log line belongs to. Console output is the
// default for interactive runs; JSON output is available for automation
// that scrapes the orchestration log.
package log
