package ytdlp

import (
	"strconv"
	"strings"
)

// ProgressUpdate captures yt-dlp download progress output.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// parseProgress extracts a percentage from a `--newline` progress line:
//
//	[download]  42.3% of 10.52MiB at 1.21MiB/s ETA 00:05
//	[download] 100% of 10.52MiB in 00:09
//
// Lines without a percentage (destination announcements, merge notices) are
// ignored.
func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return ProgressUpdate{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ProgressUpdate{}, false
	}
	first := fields[0]
	if !strings.HasSuffix(first, "%") {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(first, "%"), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return ProgressUpdate{Percent: percent, Message: rest}, true
}
