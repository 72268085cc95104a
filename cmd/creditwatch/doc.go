// Package main hosts the creditwatch CLI entrypoint and command graph.
//
// The Cobra command tree runs the credits detector against a directory of
// replayed frames, inspects and clears persisted season records, prints the
// detection ledger, and scaffolds configuration. Configuration resolution and
// logger construction live in commandContext so subcommands stay small.
//
// New behaviour belongs in the internal packages first; commands here only
// parse flags and render results.
package main
