package config

import (
	"fmt"
	"net"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeTools()
	c.normalizeDownloads()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	// Deployment platforms inject PORT rather than editing the config.
	if port, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(port) != "" {
		host, _, err := net.SplitHostPort(c.Server.Bind)
		if err != nil {
			host = ""
		}
		c.Server.Bind = net.JoinHostPort(host, strings.TrimSpace(port))
	}
	c.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
}

func (c *Config) normalizeTools() {
	c.Tools.YtdlpBinary = strings.TrimSpace(c.Tools.YtdlpBinary)
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	if c.Tools.AnalyzeTimeout <= 0 {
		c.Tools.AnalyzeTimeout = defaultAnalyzeTimeout
	}
	if c.Tools.DownloadTimeout <= 0 {
		c.Tools.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Tools.MergeTimeout <= 0 {
		c.Tools.MergeTimeout = defaultMergeTimeout
	}
}

func (c *Config) normalizeDownloads() {
	c.Downloads.AudioQuality = strings.TrimSpace(c.Downloads.AudioQuality)
	if c.Downloads.AudioQuality == "" {
		c.Downloads.AudioQuality = defaultAudioQuality
	}
	if c.Downloads.MaxAttempts <= 0 {
		c.Downloads.MaxAttempts = defaultMaxAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
