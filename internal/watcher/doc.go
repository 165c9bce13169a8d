// Package watcher monitors the open folder for PNG file changes using
// fsnotify and triggers a reload once events settle. Watching is flat;
// the browser never descends into subfolders.
package watcher
