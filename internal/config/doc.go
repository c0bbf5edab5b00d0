// Package config loads, normalizes, and validates the TOML configuration for
// spool. Load resolves the config path (explicit flag, then
// ~/.config/spool/config.toml, then ./spool.toml), applies defaults for
// missing values, expands ~ in paths, and honors the PORT environment
// variable for the listen port.
package config
