// Package logging provides the structured logging setup shared by the daemon
// and CLI. It wraps log/slog with a console handler for interactive use, a
// JSON handler for machine consumption, attribute helpers with standardized
// field names, and context-derived loggers that stamp job and stage
// identifiers on every record.
package logging
