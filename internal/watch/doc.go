// Package watch feeds image files into a session as they change on disk.
//
// A Watcher observes files and directories through fsnotify, filters events
// down to supported image extensions, and debounces bursts of writes so that
// only the most recent change is handed to the session. Because the session
// discards stale completions, a rapid sequence of saves always settles on the
// metadata of the last file written.
package watch
