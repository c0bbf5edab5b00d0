package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/testsupport"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

type stubFetcher struct {
	info       *ytdlp.Info
	analyzeErr error
}

func (f *stubFetcher) Analyze(ctx context.Context, url string) (*ytdlp.Info, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	if f.info != nil {
		return f.info, nil
	}
	return &ytdlp.Info{ID: "abc", Title: "Sample Video"}, nil
}

func (f *stubFetcher) Download(ctx context.Context, req ytdlp.DownloadRequest) error {
	return nil
}

func (f *stubFetcher) DownloadSubtitles(ctx context.Context, url string, langs []string, outputTemplate string) error {
	return nil
}

func newTestServer(t *testing.T, fetcher ytdlp.Fetcher, opts ...testsupport.ConfigOption) (*Daemon, *httptest.Server) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, nil)

	if fetcher == nil {
		fetcher = &stubFetcher{}
	}
	d, err := New(cfg, store, logger, manager, fetcher)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	server := httptest.NewServer(d.api.server.Handler)
	t.Cleanup(server.Close)
	return d, server
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url string, payload any, out any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestRootBanner(t *testing.T) {
	_, server := newTestServer(t, nil)

	var banner map[string]string
	resp := getJSON(t, server.URL+"/", &banner)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if banner["service"] != "spool" || banner["status"] != "online" {
		t.Errorf("banner = %v", banner)
	}
	if banner["version"] == "" {
		t.Error("banner missing version")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, server := newTestServer(t, &stubFetcher{info: &ytdlp.Info{ID: "v1", Title: "Conference Talk"}})

	var summary struct {
		Title string `json:"title"`
	}
	resp := postJSON(t, server.URL+"/api/analyze", map[string]string{"url": "https://example.com/v"}, &summary)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if summary.Title != "Conference Talk" {
		t.Errorf("title = %q", summary.Title)
	}
}

func TestAnalyzeRequiresURL(t *testing.T) {
	_, server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/analyze", map[string]string{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAnalyzeReportsUpstreamFailure(t *testing.T) {
	_, server := newTestServer(t, &stubFetcher{analyzeErr: errors.New("extractor broke")})

	resp := postJSON(t, server.URL+"/api/analyze", map[string]string{"url": "https://example.com/v"}, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDownloadQueuesJob(t *testing.T) {
	d, server := newTestServer(t, nil)

	var queued struct {
		JobID string `json:"job_id"`
	}
	resp := postJSON(t, server.URL+"/api/download", map[string]any{
		"url":  "https://example.com/watch?v=abc",
		"kind": "mp4",
	}, &queued)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if queued.JobID == "" {
		t.Fatal("empty job id")
	}

	job, err := d.store.GetByToken(context.Background(), queued.JobID)
	if err != nil || job == nil {
		t.Fatalf("queued job not found: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Errorf("status = %s", job.Status)
	}
}

func TestDownloadAcceptsLegacyFieldNames(t *testing.T) {
	d, server := newTestServer(t, nil)

	var queued struct {
		JobID string `json:"job_id"`
	}
	resp := postJSON(t, server.URL+"/api/download", map[string]any{
		"url":      "https://example.com/watch?v=abc",
		"type":     "mp3",
		"quality":  "140",
		"audio":    []string{"en"},
		"subtitle": []string{"de"},
	}, &queued)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	job, err := d.store.GetByToken(context.Background(), queued.JobID)
	if err != nil || job == nil {
		t.Fatalf("queued job not found: %v", err)
	}
	if job.Kind != queue.KindMP3 || job.FormatID != "140" {
		t.Errorf("job = kind %s format %q", job.Kind, job.FormatID)
	}
	if len(job.AudioLangs) != 1 || job.AudioLangs[0] != "en" {
		t.Errorf("audio langs = %v", job.AudioLangs)
	}
	if len(job.SubtitleLangs) != 1 || job.SubtitleLangs[0] != "de" {
		t.Errorf("subtitle langs = %v", job.SubtitleLangs)
	}
}

func TestDownloadRejectsUnknownKind(t *testing.T) {
	_, server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/download", map[string]any{
		"url":  "https://example.com/watch?v=abc",
		"kind": "flac",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestProgressEndpoint(t *testing.T) {
	d, server := newTestServer(t, nil)
	job := testsupport.MustNewJob(t, d.store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})

	job.SetProgress("Fetching", "Downloading video", 42)
	if err := d.store.Update(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	var progress map[string]any
	resp := getJSON(t, server.URL+"/api/progress/"+job.Token, &progress)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if progress["job_id"] != job.Token || progress["status"] != "pending" {
		t.Errorf("progress = %+v", progress)
	}
	if pct, ok := progress["percentage"].(float64); !ok || pct != 42 {
		t.Errorf("percentage = %v", progress["percentage"])
	}
	if _, ok := progress["updated_at"]; !ok {
		t.Error("missing updated_at")
	}
	if _, ok := progress["download_url"]; ok {
		t.Error("pending job should not expose download url")
	}
}

func TestProgressIncludesDownloadURLWhenCompleted(t *testing.T) {
	d, server := newTestServer(t, nil)
	job := testsupport.MustNewJob(t, d.store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})
	job.Status = queue.StatusCompleted
	job.OutputFile = "download_" + job.Token + ".mp4"
	job.DownloadURL = "/files/" + job.OutputFile
	if err := d.store.Update(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	var progress struct {
		DownloadURL string `json:"download_url"`
	}
	getJSON(t, server.URL+"/api/progress/"+job.Token, &progress)
	if !strings.HasPrefix(progress.DownloadURL, "http://") {
		t.Errorf("download url not absolute: %q", progress.DownloadURL)
	}
	if !strings.HasSuffix(progress.DownloadURL, job.DownloadURL) {
		t.Errorf("download url = %q, want suffix %q", progress.DownloadURL, job.DownloadURL)
	}
}

func TestProgressUnknownToken(t *testing.T) {
	_, server := newTestServer(t, nil)

	resp := getJSON(t, server.URL+"/api/progress/no-such-token", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestFileServing(t *testing.T) {
	d, server := newTestServer(t, nil)
	testsupport.WriteFile(t, filepath.Join(d.cfg.Paths.DownloadDir, "download_tok.mp4"), 64)

	for _, prefix := range []string{"/files/", "/downloads/"} {
		resp := getJSON(t, server.URL+prefix+"download_tok.mp4", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status = %d", prefix, resp.StatusCode)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
			t.Errorf("Content-Disposition = %q", cd)
		}
	}
}

func TestFileServingRejectsUnsafeNames(t *testing.T) {
	_, server := newTestServer(t, nil)

	for _, name := range []string{".hidden", "..%2Fjobs.db", "nope.mp4"} {
		resp := getJSON(t, server.URL+"/files/"+name, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want 404", name, resp.StatusCode)
		}
	}
}

func TestFileServingOutlivesWriteTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, nil)
	d, err := New(cfg, store, logger, manager, &stubFetcher{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	server := httptest.NewUnstartedServer(d.api.server.Handler)
	server.Config.WriteTimeout = 100 * time.Millisecond
	server.Start()
	t.Cleanup(server.Close)

	const size = 32 << 20
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DownloadDir, "download_big.mp4"), size)

	resp, err := http.Get(server.URL + "/files/download_big.mp4")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// Read a little, stall past the write timeout, then drain the rest.
	chunk := make([]byte, 1024)
	if _, err := io.ReadFull(resp.Body, chunk); err != nil {
		t.Fatalf("initial read: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	rest, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read after stall: %v", err)
	}
	if got := int64(len(chunk) + len(rest)); got != size {
		t.Fatalf("received %d bytes, want %d", got, size)
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	_, server := newTestServer(t, nil, testsupport.WithAPIToken("sekrit"))

	resp := getJSON(t, server.URL+"/api/jobs", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/jobs", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer sekrit")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d", authed.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	denied, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", denied.StatusCode)
	}
}

func TestJobsListAndFilter(t *testing.T) {
	d, server := newTestServer(t, nil)
	testsupport.MustNewJob(t, d.store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})
	failed := testsupport.MustNewJob(t, d.store, queue.NewJobParams{
		URL: "https://example.com/watch?v=def",
	})
	failed.SetFailed("boom")
	if err := d.store.Update(context.Background(), failed); err != nil {
		t.Fatal(err)
	}

	var list struct {
		Jobs []struct {
			JobID  string `json:"job_id"`
			Status string `json:"status"`
		} `json:"jobs"`
	}
	getJSON(t, server.URL+"/api/jobs", &list)
	if len(list.Jobs) != 2 {
		t.Fatalf("jobs = %d", len(list.Jobs))
	}

	list.Jobs = nil
	getJSON(t, server.URL+"/api/jobs?status=failed", &list)
	if len(list.Jobs) != 1 || list.Jobs[0].JobID != failed.Token {
		t.Fatalf("filtered jobs = %+v", list.Jobs)
	}
}

func TestRetryClearResetActions(t *testing.T) {
	d, server := newTestServer(t, nil)
	failed := testsupport.MustNewJob(t, d.store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})
	failed.SetFailed("boom")
	if err := d.store.Update(context.Background(), failed); err != nil {
		t.Fatal(err)
	}

	var retried map[string]int64
	resp := postJSON(t, server.URL+"/api/jobs/retry", map[string]any{}, &retried)
	if resp.StatusCode != http.StatusOK || retried["retried"] != 1 {
		t.Fatalf("retry status = %d, payload = %v", resp.StatusCode, retried)
	}

	resp = postJSON(t, server.URL+"/api/jobs/clear?scope=bogus", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus scope status = %d", resp.StatusCode)
	}

	var reset map[string]int64
	resp = postJSON(t, server.URL+"/api/jobs/reset", nil, &reset)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, server := newTestServer(t, nil)

	var status struct {
		Running bool           `json:"running"`
		Stats   map[string]int `json:"queue_stats"`
	}
	resp := getJSON(t, server.URL+"/api/status", &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if status.Running {
		t.Error("daemon not started, should not report running")
	}
}

func TestPreflightRequests(t *testing.T) {
	_, server := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/download", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing preflight methods header")
	}
}
