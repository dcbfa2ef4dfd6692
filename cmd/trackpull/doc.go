// Package main hosts the trackpull CLI entrypoint and command graph.
//
// Commands fetch a single track, run a manifest as a bounded batch, serve the
// HTTP surface, and expose diagnostics, history, and scratch maintenance.
// Configuration loading, logger construction, and pipeline wiring are shared
// through commandContext so each subcommand only handles presentation.
package main
