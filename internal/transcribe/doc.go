// Package transcribe runs the two-pass language-selection pipeline.
//
// A neutral engine pass runs first. When its transcript is confidently Latin
// with no Han characters at all the pipeline stops there; otherwise a hinted
// pass (secondary language hint, "do not translate" prompt) runs and the
// selector picks between the two with a fixed bias toward the neutral pass.
//
// The flow is an explicit state machine (see State) so short-circuiting,
// speculative cancellation, and deadline handling can be tested on their
// own. Engine failures are absorbed per pass, and Pipeline.Run never returns
// an error: every path yields a complete Outcome, falling back to a fixed
// outcome tagged pipeline_fallback when nothing usable was produced.
package transcribe
