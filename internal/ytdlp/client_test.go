package ytdlp_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"spool/internal/ytdlp"
)

type stubExecutor struct {
	runs    [][]string
	outputs map[string][]byte
	lines   []string
	runErr  error
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.runs = append(s.runs, append([]string{binary}, args...))
	if onStdout != nil {
		for _, line := range s.lines {
			onStdout(line)
		}
	}
	return s.runErr
}

func (s *stubExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	s.runs = append(s.runs, append([]string{binary}, args...))
	if s.outputs == nil {
		return nil, errors.New("no output configured")
	}
	return s.outputs[binary], nil
}

func TestAnalyzeDecodesMetadata(t *testing.T) {
	exec := &stubExecutor{outputs: map[string][]byte{
		"yt-dlp": []byte(`{
			"id": "abc",
			"title": "Sample Video",
			"duration": 62.5,
			"formats": [
				{"format_id": "137", "ext": "mp4", "height": 1080, "vcodec": "avc1", "acodec": "none", "filesize": 1048576}
			],
			"subtitles": {"en": [{"ext": "vtt"}]}
		}`),
	}}
	client, err := ytdlp.New("yt-dlp", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	info, err := client.Analyze(context.Background(), "https://example.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if info.Title != "Sample Video" || info.ID != "abc" {
		t.Fatalf("unexpected info: %#v", info)
	}
	if len(info.Formats) != 1 || !info.Formats[0].HasVideo() || info.Formats[0].HasAudio() {
		t.Fatalf("unexpected formats: %#v", info.Formats)
	}
	if info.Formats[0].SizeBytes() != 1048576 {
		t.Fatalf("unexpected size: %d", info.Formats[0].SizeBytes())
	}

	args := strings.Join(exec.runs[0], " ")
	if !strings.Contains(args, "--dump-single-json") || !strings.Contains(args, "--no-playlist") {
		t.Fatalf("unexpected analyze args: %s", args)
	}
}

func TestAnalyzeRequiresURL(t *testing.T) {
	client, err := ytdlp.New("yt-dlp", ytdlp.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.Analyze(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank URL")
	}
}

func TestDownloadBuildsArgsAndReportsProgress(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"[download] Destination: video.mp4",
		"[download]  50.0% of 10MiB at 1MiB/s ETA 00:05",
		"[download] 100% of 10MiB in 00:10",
	}}
	client, err := ytdlp.New("yt-dlp",
		ytdlp.WithExecutor(exec),
		ytdlp.WithFFmpegLocation("/usr/bin/ffmpeg"),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var updates []float64
	err = client.Download(context.Background(), ytdlp.DownloadRequest{
		URL:            "https://example.com/watch?v=abc",
		Format:         "137",
		OutputTemplate: "/tmp/video.%(ext)s",
		Progress: func(update ytdlp.ProgressUpdate) {
			updates = append(updates, update.Percent)
		},
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(updates) != 2 || updates[0] != 50 || updates[1] != 100 {
		t.Fatalf("unexpected progress updates: %v", updates)
	}

	args := strings.Join(exec.runs[0], " ")
	for _, want := range []string{"--newline", "-f 137", "--ffmpeg-location /usr/bin/ffmpeg", "-o /tmp/video.%(ext)s", "-- https://example.com/watch?v=abc"} {
		if !strings.Contains(args, want) {
			t.Fatalf("download args missing %q: %s", want, args)
		}
	}
}

func TestDownloadSubtitlesSkipsWithoutLanguages(t *testing.T) {
	exec := &stubExecutor{}
	client, err := ytdlp.New("yt-dlp", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := client.DownloadSubtitles(context.Background(), "https://example.com/v", nil, "/tmp/subs.%(ext)s"); err != nil {
		t.Fatalf("DownloadSubtitles failed: %v", err)
	}
	if len(exec.runs) != 0 {
		t.Fatalf("expected no invocation, got %v", exec.runs)
	}

	if err := client.DownloadSubtitles(context.Background(), "https://example.com/v", []string{"en", "de"}, "/tmp/subs.%(ext)s"); err != nil {
		t.Fatalf("DownloadSubtitles failed: %v", err)
	}
	args := strings.Join(exec.runs[0], " ")
	for _, want := range []string{"--skip-download", "--write-subs", "--sub-langs en,de"} {
		if !strings.Contains(args, want) {
			t.Fatalf("subtitle args missing %q: %s", want, args)
		}
	}
}

func TestDownloadPropagatesExecutorError(t *testing.T) {
	exec := &stubExecutor{runErr: errors.New("exit status 1")}
	client, err := ytdlp.New("yt-dlp", ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = client.Download(context.Background(), ytdlp.DownloadRequest{
		URL:            "https://example.com/watch?v=abc",
		OutputTemplate: "/tmp/video.%(ext)s",
	})
	if err == nil || !strings.Contains(err.Error(), "exit status 1") {
		t.Fatalf("expected wrapped executor error, got %v", err)
	}
}
