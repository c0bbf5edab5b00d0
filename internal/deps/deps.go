// Package deps verifies that the external tools the daemon shells out to are
// installed before work begins.
package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"spool/internal/config"
)

// Status reports whether one external tool requirement is satisfied.
type Status struct {
	Name      string
	Command   string
	Available bool
	Path      string
	Detail    string
}

// Check inspects the configured external tools and reports availability.
func Check(cfg *config.Config) []Status {
	return []Status{
		checkBinary("yt-dlp", cfg.YtdlpBinary()),
		checkBinary("ffmpeg", cfg.FFmpegBinary()),
		checkBinary("ffprobe", cfg.FFprobeBinary()),
	}
}

// FirstMissing returns an error naming the first unmet requirement, or nil
// when everything resolved.
func FirstMissing(statuses []Status) error {
	for _, status := range statuses {
		if !status.Available {
			return fmt.Errorf("required tool %s not found (%s)", status.Name, status.Detail)
		}
	}
	return nil
}

func checkBinary(name, command string) Status {
	status := Status{Name: name, Command: command}
	command = strings.TrimSpace(command)
	if command == "" {
		status.Detail = "no binary configured"
		return status
	}
	if filepath.IsAbs(command) {
		resolved, err := exec.LookPath(command)
		if err != nil {
			status.Detail = err.Error()
			return status
		}
		status.Available = true
		status.Path = resolved
		return status
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		status.Detail = fmt.Sprintf("%s not on PATH", command)
		return status
	}
	status.Available = true
	status.Path = resolved
	return status
}
