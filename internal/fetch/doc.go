// Package fetch implements the workflow stage that downloads the selected
// video, audio, and subtitle streams with yt-dlp.
package fetch
