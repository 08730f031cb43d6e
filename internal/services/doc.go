// Package services defines shared utilities consumed by the extraction
// pipeline and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp source names, pipeline stages, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and ExitCode which turns
//     those markers into process exit statuses.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform.
package services
