package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"spool/internal/language"
	"spool/internal/ytdlp"
)

// Quality is one selectable video rendition, keyed by its vertical resolution.
// The json tags match what download frontends already read.
type Quality struct {
	FormatID  string `json:"format_id"`
	Height    int    `json:"height"`
	Label     string `json:"quality"`
	Ext       string `json:"ext"`
	SizeBytes int64  `json:"filesize_bytes"`
	SizeHuman string `json:"filesize,omitempty"`
}

// AudioTrack is one selectable audio language.
type AudioTrack struct {
	Language string `json:"lang"`
	Name     string `json:"name"`
	FormatID string `json:"format_id,omitempty"`
}

// Subtitle pairs a subtitle language code with its display name.
type Subtitle struct {
	Language string `json:"language"`
	Name     string `json:"name"`
}

// Summary is the analyze response presented to clients choosing what to fetch.
// Subtitles carries bare language codes; SubtitleTracks adds display names for
// clients that want them.
type Summary struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Thumbnail      string       `json:"thumbnail,omitempty"`
	Channel        string       `json:"channel,omitempty"`
	Duration       float64      `json:"duration,omitempty"`
	Qualities      []Quality    `json:"qualities"`
	AudioTracks    []AudioTrack `json:"audio_tracks"`
	Subtitles      []string     `json:"subtitles"`
	SubtitleTracks []Subtitle   `json:"subtitle_tracks,omitempty"`
}

// BuildSummary condenses a yt-dlp info dump into the selection menu clients
// see. One quality per resolution, the highest-bitrate rendition winning, in
// descending height order.
func BuildSummary(info *ytdlp.Info) Summary {
	codes := subtitleCodes(info.Subtitles)
	summary := Summary{
		ID:             info.ID,
		Title:          info.Title,
		Thumbnail:      info.Thumbnail,
		Channel:        info.BestName(),
		Duration:       info.Duration,
		Qualities:      buildQualities(info.Formats),
		AudioTracks:    buildAudioTracks(info.Formats),
		Subtitles:      codes,
		SubtitleTracks: subtitleTracks(codes),
	}
	return summary
}

func buildQualities(formats []ytdlp.Format) []Quality {
	best := make(map[int]ytdlp.Format)
	for _, format := range formats {
		if !format.HasVideo() || format.Height <= 0 {
			continue
		}
		current, seen := best[format.Height]
		if !seen || format.TBR > current.TBR {
			best[format.Height] = format
		}
	}

	heights := make([]int, 0, len(best))
	for height := range best {
		heights = append(heights, height)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	qualities := make([]Quality, 0, len(heights))
	for _, height := range heights {
		format := best[height]
		quality := Quality{
			FormatID: format.FormatID,
			Height:   height,
			Label:    fmt.Sprintf("%dp", height),
			Ext:      format.Ext,
		}
		if size := format.SizeBytes(); size > 0 {
			quality.SizeBytes = size
			quality.SizeHuman = humanize.Bytes(uint64(size))
		}
		qualities = append(qualities, quality)
	}
	return qualities
}

func buildAudioTracks(formats []ytdlp.Format) []AudioTrack {
	type candidate struct {
		formatID string
		tbr      float64
	}
	best := make(map[string]candidate)
	order := make([]string, 0, 4)
	for _, format := range formats {
		if !format.HasAudio() || format.HasVideo() {
			continue
		}
		lang := language.Normalize(format.Language)
		if lang == "" {
			continue
		}
		current, seen := best[lang]
		if !seen {
			order = append(order, lang)
		}
		if !seen || format.TBR > current.tbr {
			best[lang] = candidate{formatID: format.FormatID, tbr: format.TBR}
		}
	}
	sort.Strings(order)

	tracks := make([]AudioTrack, 0, len(order))
	for _, lang := range order {
		tracks = append(tracks, AudioTrack{
			Language: lang,
			Name:     language.DisplayName(lang),
			FormatID: best[lang].formatID,
		})
	}
	return tracks
}

func subtitleCodes(subtitles map[string][]ytdlp.SubRef) []string {
	codes := make([]string, 0, len(subtitles))
	for code := range subtitles {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		codes = append(codes, trimmed)
	}
	sort.Strings(codes)
	return codes
}

func subtitleTracks(codes []string) []Subtitle {
	subs := make([]Subtitle, 0, len(codes))
	for _, code := range codes {
		subs = append(subs, Subtitle{
			Language: code,
			Name:     language.DisplayName(code),
		})
	}
	return subs
}
