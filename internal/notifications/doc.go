// Package notifications publishes transcription events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Messages are built from an Event and a
// flat Payload of display strings.
package notifications
