// Package main hosts the vidqueue CLI entrypoint and command graph.
//
// Queue commands (add, start, stop, list, delete, clear, history) translate
// into JSON-RPC calls against the daemon socket. The daemon subcommands
// launch, stop, or run the daemon process itself, and config scaffolds a
// sample configuration file.
package main
