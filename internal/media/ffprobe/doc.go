// Package ffprobe inspects finished media containers so the pipeline can
// validate stream layout before publishing a download.
package ffprobe
