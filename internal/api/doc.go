// Package api defines wire-format types and converters for the HTTP boundary
// and the CLI's structured output. It translates pipeline outcomes and history
// records into transport-friendly DTOs without exposing internal types to
// consumers.
//
// # Key Types
//
// TranscriptionResponse: the response for one transcription, carrying the
// chosen text and languages, a debug block with the script analysis, and the
// full outcome under transcriptionDetails.enhanced.
//
// TranscriptionEntry: one row of the transcription history.
//
// # Converters
//
// FromOutcome: transcribe.Outcome -> TranscriptionResponse. The text analysis
// is computed from the final text.
//
// TranscriptionResponse.Outcome: the reverse direction, used by clients and
// tests to recover the outcome from a decoded response.
//
// FromRecord: history.Record -> TranscriptionEntry.
//
// # Design Notes
//
// Field names are a compatibility surface shared with existing consumers and
// mix snake_case and camelCase exactly as those consumers expect. Slices are
// never nil so that empty lists encode as [] rather than null.
package api
