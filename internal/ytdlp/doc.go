// Package ytdlp wraps the yt-dlp command line tool: metadata extraction via
// the JSON dump, stream downloads with parsed progress lines, and
// subtitle-only fetches. Command execution sits behind an Executor interface
// so stages can be tested without the binary.
package ytdlp
