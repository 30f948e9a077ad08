// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and CLI. Load applies defaults first, then overlays
// the config file, expands every path field, and rejects configurations the
// pipeline cannot run with.
package config
