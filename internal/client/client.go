// Package client provides the HTTP client the CLI uses to talk to a running
// spool daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New constructs a client for the given base URL, e.g. "http://127.0.0.1:10000".
func New(baseURL, token string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("daemon address required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid daemon address: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// AnalyzeResponse mirrors the analyze endpoint payload.
type AnalyzeResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Channel   string  `json:"channel"`
	Duration  float64 `json:"duration"`
	Qualities []struct {
		FormatID string `json:"format_id"`
		Height   int    `json:"height"`
		Label    string `json:"quality"`
		Ext      string `json:"ext"`
		Size     string `json:"filesize"`
	} `json:"qualities"`
	AudioTracks []struct {
		Language string `json:"lang"`
		Name     string `json:"name"`
	} `json:"audio_tracks"`
	Subtitles []string `json:"subtitles"`
}

// DownloadParams selects what to fetch.
type DownloadParams struct {
	URL           string   `json:"url"`
	Kind          string   `json:"kind,omitempty"`
	FormatID      string   `json:"format_id,omitempty"`
	AudioLangs    []string `json:"audio_langs,omitempty"`
	SubtitleLangs []string `json:"subtitle_langs,omitempty"`
}

// Progress mirrors the progress endpoint payload.
type Progress struct {
	JobID       string  `json:"job_id"`
	Status      string  `json:"status"`
	Percentage  float64 `json:"percentage"`
	Message     string  `json:"message"`
	Title       string  `json:"title"`
	Filename    string  `json:"filename"`
	DownloadURL string  `json:"download_url"`
	Error       string  `json:"error"`
	UpdatedAt   string  `json:"updated_at"`
}

// Job mirrors the admin job view payload.
type Job struct {
	ID              int64    `json:"id"`
	JobID           string   `json:"job_id"`
	URL             string   `json:"url"`
	Kind            string   `json:"kind"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	Error           string   `json:"error"`
	Attempts        int      `json:"attempts"`
	ProgressPercent float64  `json:"progress"`
	ProgressMessage string   `json:"progress_message"`
	OutputFile      string   `json:"output_file"`
	DownloadURL     string   `json:"download_url"`
	AudioLangs      []string `json:"audio_langs"`
	SubtitleLangs   []string `json:"subtitle_langs"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// DaemonStatus mirrors the admin status payload.
type DaemonStatus struct {
	Running     bool           `json:"running"`
	Bind        string         `json:"bind"`
	QueueStats  map[string]int `json:"queue_stats"`
	StageHealth []struct {
		Name   string `json:"name"`
		Ready  bool   `json:"ready"`
		Detail string `json:"detail"`
	} `json:"stage_health"`
	Dependencies []struct {
		Name      string `json:"name"`
		Command   string `json:"command"`
		Available bool   `json:"available"`
		Path      string `json:"path"`
		Detail    string `json:"detail"`
	} `json:"dependencies"`
	LastError    string `json:"last_error"`
	QueueDBPath  string `json:"queue_db_path"`
	LockFilePath string `json:"lock_file_path"`
}

// Analyze asks the daemon to inspect a URL.
func (c *Client) Analyze(ctx context.Context, mediaURL string) (*AnalyzeResponse, error) {
	var out AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/api/analyze", map[string]string{"url": mediaURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download enqueues a download job and returns its public job ID.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/download", params, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// Progress fetches the current progress of a job by its public ID.
func (c *Client) Progress(ctx context.Context, jobID string) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, "/api/progress/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches daemon diagnostics.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var out DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Jobs lists queued jobs, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Describe fetches one job by its internal numeric ID.
func (c *Client) Describe(ctx context.Context, id int64) (*Job, error) {
	var out struct {
		Job Job `json:"job"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/jobs/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// Retry requeues failed jobs; with no IDs every failed job is retried.
func (c *Client) Retry(ctx context.Context, ids ...int64) (int64, error) {
	var out map[string]int64
	payload := map[string][]int64{"ids": ids}
	if err := c.do(ctx, http.MethodPost, "/api/jobs/retry", payload, &out); err != nil {
		return 0, err
	}
	return out["retried"], nil
}

// Clear removes jobs within the given scope: completed, failed, or all.
func (c *Client) Clear(ctx context.Context, scope string) (int64, error) {
	var out map[string]int64
	path := "/api/jobs/clear"
	if scope = strings.TrimSpace(scope); scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return 0, err
	}
	return out["removed"], nil
}

// Reset returns stuck in-flight jobs to pending.
func (c *Client) Reset(ctx context.Context) (int64, error) {
	var out map[string]int64
	if err := c.do(ctx, http.MethodPost, "/api/jobs/reset", nil, &out); err != nil {
		return 0, err
	}
	return out["reset"], nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
