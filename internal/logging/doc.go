// Package logging builds the slog loggers used across clipforge.
//
// Two output formats are supported: a human-oriented console format for
// interactive use and JSON for ingestion. Attribute helpers keep field names
// consistent between the orchestrator, the sweeper, and the CLI.
package logging
