// Package analysis turns raw yt-dlp metadata into the quality, audio, and
// subtitle choices clients pick from before requesting a download.
package analysis
