// Package cmd implements the command-line interface for arc-messenger.
//
// This package provides the following commands:
//   - serve: Start the HTTP API server backing the messenger frontend
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
