package ytdlp

// Info is the subset of yt-dlp's single-video JSON dump that the service
// consumes. Field names follow the extractor output.
type Info struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Thumbnail string              `json:"thumbnail"`
	Uploader  string              `json:"uploader"`
	Channel   string              `json:"channel"`
	Duration  float64             `json:"duration"`
	Formats   []Format            `json:"formats"`
	Subtitles map[string][]SubRef `json:"subtitles"`
}

// Format describes one downloadable stream.
type Format struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Language       string  `json:"language"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	TBR            float64 `json:"tbr"`
}

// SubRef references one subtitle rendition for a language.
type SubRef struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// HasVideo reports whether the format carries a video stream.
func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio stream.
func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// SizeBytes returns the exact filesize when known, otherwise the extractor's
// approximation, otherwise 0.
func (f Format) SizeBytes() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	if f.FilesizeApprox > 0 {
		return f.FilesizeApprox
	}
	return 0
}

// BestName returns the uploader or channel name, whichever is set.
func (i Info) BestName() string {
	if i.Uploader != "" {
		return i.Uploader
	}
	return i.Channel
}
