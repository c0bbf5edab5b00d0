// Package merge implements the workflow stage that combines fetched streams
// into the published container with ffmpeg.
package merge
