// Package script classifies transcript text by the writing systems it contains.
//
// Two scripts are tracked: Latin letters and Han ideographs. Classify counts
// codepoints of each script over the non-whitespace characters of a string and
// turns the ratios into a Profile with a dominant script, the set of scripts
// present, and a heuristic confidence in [0, 1].
//
// The thresholds are fixed heuristics inherited from the product and are not
// tuned from data. Classify is pure and safe for concurrent use.
package script
