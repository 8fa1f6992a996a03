// Package services defines shared utilities consumed by the transcription
// pipeline, the speech-engine adapters, and the HTTP boundary.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation identifiers and pass
//     names for logging.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable with errors.Is, and StatusCode which maps them onto HTTP
//     responses at the boundary.
//
// Use these helpers when wiring new engine adapters so operational behaviour
// (error handling, observability, retries) stays uniform across the service.
package services
