package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Fetcher defines the behaviour the fetch stage requires from this package.
type Fetcher interface {
	Analyze(ctx context.Context, url string) (*Info, error)
	Download(ctx context.Context, req DownloadRequest) error
	DownloadSubtitles(ctx context.Context, url string, langs []string, outputTemplate string) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithFFmpegLocation points yt-dlp at a specific ffmpeg binary instead of PATH.
func WithFFmpegLocation(path string) Option {
	return func(c *Client) {
		c.ffmpegLocation = strings.TrimSpace(path)
	}
}

// WithTimeouts overrides the analyze and download timeouts.
func WithTimeouts(analyze, download time.Duration) Option {
	return func(c *Client) {
		if analyze > 0 {
			c.analyzeTimeout = analyze
		}
		if download > 0 {
			c.downloadTimeout = download
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary          string
	ffmpegLocation  string
	analyzeTimeout  time.Duration
	downloadTimeout time.Duration
	exec            Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:          binary,
		analyzeTimeout:  2 * time.Minute,
		downloadTimeout: time.Hour,
		exec:            commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Analyze extracts metadata for a single video without downloading it.
func (c *Client) Analyze(ctx context.Context, url string) (*Info, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("url required")
	}

	analyzeCtx := ctx
	if c.analyzeTimeout > 0 {
		var cancel context.CancelFunc
		analyzeCtx, cancel = context.WithTimeout(ctx, c.analyzeTimeout)
		defer cancel()
	}

	args := []string{"--dump-single-json", "--no-playlist", "--no-warnings", "--", url}
	output, err := c.exec.Output(analyzeCtx, c.binary, args)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp analyze: %w", err)
	}

	var info Info
	if err := json.Unmarshal(bytes.TrimSpace(output), &info); err != nil {
		return nil, fmt.Errorf("yt-dlp analyze: decode metadata: %w", err)
	}
	return &info, nil
}

// DownloadRequest describes one stream download.
type DownloadRequest struct {
	URL            string
	Format         string
	OutputTemplate string
	Progress       func(ProgressUpdate)
}

// Download fetches a single stream selected by the request's format expression,
// writing to the output template. Progress callbacks fire for each parsed
// percentage line.
func (c *Client) Download(ctx context.Context, req DownloadRequest) error {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return errors.New("url required")
	}
	if strings.TrimSpace(req.OutputTemplate) == "" {
		return errors.New("output template required")
	}

	dlCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	args := []string{"--newline", "--no-playlist", "--no-warnings"}
	if format := strings.TrimSpace(req.Format); format != "" {
		args = append(args, "-f", format)
	}
	if c.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegLocation)
	}
	args = append(args, "-o", req.OutputTemplate, "--", url)

	if err := c.exec.Run(dlCtx, c.binary, args, func(line string) {
		if req.Progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			req.Progress(update)
		}
	}); err != nil {
		return fmt.Errorf("yt-dlp download: %w", err)
	}
	return nil
}

// DownloadSubtitles fetches subtitle files for the requested languages without
// downloading the media itself.
func (c *Client) DownloadSubtitles(ctx context.Context, url string, langs []string, outputTemplate string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("url required")
	}
	if len(langs) == 0 {
		return nil
	}

	dlCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	args := []string{
		"--newline", "--no-playlist", "--no-warnings",
		"--skip-download", "--write-subs",
		"--sub-langs", strings.Join(langs, ","),
		"-o", outputTemplate,
		"--", url,
	}
	if err := c.exec.Run(dlCtx, c.binary, args, nil); err != nil {
		return fmt.Errorf("yt-dlp subtitles: %w", err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return output, nil
}
