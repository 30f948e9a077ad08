// Package ffmpeg wraps the ffmpeg and ffprobe binaries for stem inspection,
// sample extraction, and loudness measurement. Everything here shells out
// with a bounded context; callers own timeout policy.
package ffmpeg
