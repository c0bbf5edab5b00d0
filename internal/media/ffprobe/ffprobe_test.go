package ffprobe

import (
	"encoding/json"
	"testing"
)

const sampleOutput = `{
	"streams": [
		{"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
		{"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2, "tags": {"language": "eng"}},
		{"index": 2, "codec_name": "mov_text", "codec_type": "subtitle", "tags": {"language": "ger"}}
	],
	"format": {
		"filename": "merged.mp4",
		"nb_streams": 3,
		"duration": "213.480000",
		"size": "52428800",
		"format_name": "mov,mp4,m4a,3gp,3g2,mj2"
	}
}`

func TestResultDecoding(t *testing.T) {
	var result Result
	if err := json.Unmarshal([]byte(sampleOutput), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if result.VideoStreamCount() != 1 {
		t.Errorf("video streams = %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 1 {
		t.Errorf("audio streams = %d", result.AudioStreamCount())
	}
	if result.SubtitleStreamCount() != 1 {
		t.Errorf("subtitle streams = %d", result.SubtitleStreamCount())
	}
	if result.Streams[1].Tags.Language != "eng" {
		t.Errorf("audio language = %q", result.Streams[1].Tags.Language)
	}
	if result.DurationSeconds() != 213.48 {
		t.Errorf("duration = %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 52428800 {
		t.Errorf("size = %d", result.SizeBytes())
	}
}

func TestResultHelpersOnEmptyResult(t *testing.T) {
	var result Result
	if result.VideoStreamCount() != 0 || result.AudioStreamCount() != 0 {
		t.Error("empty result should count zero streams")
	}
	if result.DurationSeconds() != 0 {
		t.Errorf("duration = %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Errorf("size = %d", result.SizeBytes())
	}
}

func TestSizeBytesIgnoresGarbage(t *testing.T) {
	result := Result{Format: Format{Size: "not-a-number"}}
	if result.SizeBytes() != 0 {
		t.Errorf("size = %d", result.SizeBytes())
	}
}
