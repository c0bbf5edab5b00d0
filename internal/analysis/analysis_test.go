package analysis_test

import (
	"encoding/json"
	"testing"

	"spool/internal/analysis"
	"spool/internal/ytdlp"
)

func sampleInfo() *ytdlp.Info {
	return &ytdlp.Info{
		ID:       "abc",
		Title:    "Sample Video",
		Uploader: "Sample Channel",
		Duration: 120,
		Formats: []ytdlp.Format{
			{FormatID: "137", Ext: "mp4", Height: 1080, VCodec: "avc1", ACodec: "none", TBR: 4400, Filesize: 52428800},
			{FormatID: "248", Ext: "webm", Height: 1080, VCodec: "vp9", ACodec: "none", TBR: 3900},
			{FormatID: "136", Ext: "mp4", Height: 720, VCodec: "avc1", ACodec: "none", TBR: 2200, FilesizeApprox: 26214400},
			{FormatID: "140", Ext: "m4a", Height: 0, VCodec: "none", ACodec: "mp4a", Language: "en", TBR: 129},
			{FormatID: "140-1", Ext: "m4a", Height: 0, VCodec: "none", ACodec: "mp4a", Language: "de", TBR: 129},
			{FormatID: "140-low", Ext: "m4a", Height: 0, VCodec: "none", ACodec: "mp4a", Language: "en", TBR: 48},
		},
		Subtitles: map[string][]ytdlp.SubRef{
			"fr": {{Ext: "vtt"}},
			"en": {{Ext: "vtt"}},
		},
	}
}

func TestBuildSummaryQualities(t *testing.T) {
	summary := analysis.BuildSummary(sampleInfo())

	if summary.Title != "Sample Video" || summary.Channel != "Sample Channel" {
		t.Fatalf("unexpected header fields: %#v", summary)
	}
	if len(summary.Qualities) != 2 {
		t.Fatalf("expected one quality per height, got %#v", summary.Qualities)
	}
	if summary.Qualities[0].Height != 1080 || summary.Qualities[1].Height != 720 {
		t.Fatalf("expected descending heights, got %#v", summary.Qualities)
	}
	// Highest bitrate wins within a resolution.
	if summary.Qualities[0].FormatID != "137" {
		t.Fatalf("expected format 137 for 1080p, got %s", summary.Qualities[0].FormatID)
	}
	if summary.Qualities[0].Label != "1080p" {
		t.Fatalf("unexpected label %q", summary.Qualities[0].Label)
	}
	if summary.Qualities[0].SizeBytes != 52428800 || summary.Qualities[0].SizeHuman == "" {
		t.Fatalf("expected size fields, got %#v", summary.Qualities[0])
	}
	if summary.Qualities[1].SizeBytes != 26214400 {
		t.Fatalf("expected approximate size fallback, got %#v", summary.Qualities[1])
	}
}

func TestBuildSummaryAudioTracks(t *testing.T) {
	summary := analysis.BuildSummary(sampleInfo())

	if len(summary.AudioTracks) != 2 {
		t.Fatalf("expected two distinct languages, got %#v", summary.AudioTracks)
	}
	if summary.AudioTracks[0].Language != "de" || summary.AudioTracks[1].Language != "en" {
		t.Fatalf("expected sorted languages, got %#v", summary.AudioTracks)
	}
	// The higher-bitrate English rendition should be selected.
	if summary.AudioTracks[1].FormatID != "140" {
		t.Fatalf("expected format 140 for en, got %s", summary.AudioTracks[1].FormatID)
	}
	if summary.AudioTracks[1].Name == "" {
		t.Fatal("expected display name for en")
	}
}

func TestBuildSummarySubtitles(t *testing.T) {
	summary := analysis.BuildSummary(sampleInfo())

	if len(summary.Subtitles) != 2 {
		t.Fatalf("expected two subtitle languages, got %#v", summary.Subtitles)
	}
	if summary.Subtitles[0] != "en" || summary.Subtitles[1] != "fr" {
		t.Fatalf("expected sorted subtitle codes, got %#v", summary.Subtitles)
	}
	if len(summary.SubtitleTracks) != 2 || summary.SubtitleTracks[0].Name == "" {
		t.Fatalf("expected named subtitle tracks, got %#v", summary.SubtitleTracks)
	}
}

func TestSummaryEncodesOriginalKeys(t *testing.T) {
	data, err := json.Marshal(analysis.BuildSummary(sampleInfo()))
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	var decoded struct {
		Qualities []map[string]any `json:"qualities"`
		Audio     []map[string]any `json:"audio_tracks"`
		Subtitles []string         `json:"subtitles"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	best := decoded.Qualities[0]
	if best["quality"] != "1080p" {
		t.Errorf("quality = %v", best["quality"])
	}
	if _, ok := best["filesize_bytes"]; !ok {
		t.Error("missing filesize_bytes")
	}
	if _, ok := best["filesize"]; !ok {
		t.Error("missing filesize")
	}
	if decoded.Audio[0]["lang"] != "de" {
		t.Errorf("lang = %v", decoded.Audio[0]["lang"])
	}
	if len(decoded.Subtitles) != 2 || decoded.Subtitles[0] != "en" {
		t.Errorf("subtitles = %v", decoded.Subtitles)
	}
}

func TestBuildSummaryEmptyInfo(t *testing.T) {
	summary := analysis.BuildSummary(&ytdlp.Info{ID: "x"})
	if len(summary.Qualities) != 0 || len(summary.AudioTracks) != 0 || len(summary.Subtitles) != 0 {
		t.Fatalf("expected empty selections, got %#v", summary)
	}
}
