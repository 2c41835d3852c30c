// Command chansync keeps local media directories in step with remote
// channel catalogs: it lists each configured channel, reconciles the
// catalog against the files on disk, downloads what is missing, and
// maintains per-channel playlists.
package main
