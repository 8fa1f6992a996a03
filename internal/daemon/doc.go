// Package daemon runs the long-lived polyscribe HTTP server.
//
// It wires configuration, the transcription runner, and the history store into
// a single lifecycle with flock-based locking to prevent multiple instances on
// the same state directory. The HTTP boundary accepts multipart uploads,
// stages each upload to a temporary file that is removed on every exit path,
// and maps request-level problems to client errors. Transcription itself never
// fails at this layer: degraded runs still answer 200 with a fallback outcome.
package daemon
