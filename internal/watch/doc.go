// Package watch transcribes audio files dropped into a directory.
//
// Files are picked up from fsnotify events, with a periodic directory scan as
// a fallback for filesystems that do not deliver events. A file is handed to
// the handler only after its size has stopped changing, then moved into the
// processed/ or failed/ subdirectory so it is never handled twice.
package watch
