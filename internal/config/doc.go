// Package config loads, normalizes, and validates polyscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY. The Config type centralizes every knob the server, the CLI,
// and the transcription pipeline need so engine credentials and the default
// rendering language are injected explicitly rather than read from globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
