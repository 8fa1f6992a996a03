// Package main hosts the polyscribe CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP server, transcribes local files
// through the same pipeline the server uses, watches a drop directory, lists
// the transcription history, and scaffolds configuration. It centralizes
// configuration resolution and logging setup so subcommands can focus on
// output instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
