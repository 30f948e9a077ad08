// Package services defines shared utilities consumed by the worker stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures for
//     retry classification (temporary vs permanent vs conflict).
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
package services
