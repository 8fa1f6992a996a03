// Package workflow runs one transcription job end to end.
//
// The Runner is shared by every entry point (the HTTP boundary, the watch
// directory, and the CLI): it assigns a request id when the caller has none,
// runs the pipeline, records the outcome in the history log, and reports a
// one-line summary. Recording failures are logged and never change the
// outcome returned to the caller.
package workflow
