// Package language normalizes the language labels reported by speech engines.
//
// Engines disagree on how they name a language: ISO 639-1 codes, ISO 639-2
// codes, BCP-47 tags with script or region subtags, or full English words
// ("chinese"). Everything is folded to a lower-case ISO 639-1 code here so
// the pipeline and the HTTP boundary see one vocabulary.
package language
