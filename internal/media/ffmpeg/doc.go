// Package ffmpeg builds and runs the ffmpeg invocations used to merge
// separately fetched streams and to extract audio-only downloads.
package ffmpeg
