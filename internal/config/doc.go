// Package config loads, normalizes, and validates metaview configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// METAVIEW_LOG_LEVEL. The Config type centralizes the decoder switches,
// history and watch settings the CLI needs, allowing them to be discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
