// Package history keeps a local log of completed transcriptions in SQLite.
//
// Each pipeline run that reaches an outcome is stored with its strategy,
// languages, engine call count and the serialized outcome. Rows older than the
// configured retention are pruned when the store is opened.
package history
