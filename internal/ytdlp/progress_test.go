package ytdlp

import "testing"

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		percent float64
		ok      bool
	}{
		{"mid download", "[download]  42.3% of 10.52MiB at 1.21MiB/s ETA 00:05", 42.3, true},
		{"complete", "[download] 100% of 10.52MiB in 00:09", 100, true},
		{"leading spaces", "  [download]   0.0% of ~3.52MiB at Unknown speed", 0, true},
		{"destination line", "[download] Destination: video.mp4", 0, false},
		{"merger line", "[Merger] Merging formats into \"out.mp4\"", 0, false},
		{"empty", "", 0, false},
		{"percent only token", "[download] 7%", 7, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			update, ok := parseProgress(tc.line)
			if ok != tc.ok {
				t.Fatalf("parseProgress(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			}
			if ok && update.Percent != tc.percent {
				t.Fatalf("parseProgress(%q) percent = %v, want %v", tc.line, update.Percent, tc.percent)
			}
		})
	}
}

func TestParseProgressClampsRange(t *testing.T) {
	update, ok := parseProgress("[download] 120.5% of something")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if update.Percent != 100 {
		t.Fatalf("expected clamp to 100, got %v", update.Percent)
	}
}
