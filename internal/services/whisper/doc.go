// Package whisper talks to an OpenAI-compatible speech-to-text endpoint.
//
// The client uploads one audio source per call as multipart form data,
// requests verbose JSON with zero-temperature decoding, and retries
// transient failures (408, 429, 5xx, network timeouts) with capped
// exponential backoff. Every terminal error is tagged with a services
// sentinel so callers can classify it without string matching.
package whisper
