// Package ytdlp shells out to the yt-dlp binary for both catalog listing
// (flat-playlist JSON probe) and per-item downloads. Command execution is
// abstracted behind Executor so tests can script subprocess behavior.
package ytdlp
