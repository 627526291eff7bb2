// Package cmd implements the command-line interface of otick. It provides
// commands for talking to an opentick server and for running an in-memory
// loopback server that speaks the same wire protocol.
//
// The package is organized into several subpackages:
//
//   - query: exec, shell and perf, the client side commands
//   - serve: the loopback server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See otick -help for a list of all commands.
package cmd
