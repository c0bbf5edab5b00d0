package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/language"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/stage"
	"spool/internal/ytdlp"
)

// DefaultAudioLang is the language label used when no explicit audio track
// was requested and yt-dlp falls back to the best available stream.
const DefaultAudioLang = "und"

// Stage downloads the requested streams into the job's work directory.
type Stage struct {
	cfg     *config.Config
	store   *queue.Store
	fetcher ytdlp.Fetcher
	logger  *slog.Logger
}

// New constructs the fetch stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher ytdlp.Fetcher) *Stage {
	return &Stage{cfg: cfg, store: store, fetcher: fetcher, logger: logger}
}

// SetLogger installs the stage-scoped logger used during execution.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prepare resolves metadata for the job and lays out its work directory.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	url := strings.TrimSpace(job.URL)
	if url == "" {
		return services.Wrap(services.ErrValidation, "fetch", "prepare", "job has no source URL", nil)
	}

	workDir := filepath.Join(s.cfg.Paths.WorkDir, "job-"+job.Token)
	if err := fileutil.EnsureDir(workDir); err != nil {
		return services.Wrap(services.ErrConfiguration, "fetch", "prepare", "cannot create work directory", err)
	}
	job.WorkDir = workDir

	if strings.TrimSpace(job.Title) == "" {
		info, err := s.fetcher.Analyze(ctx, url)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "fetch", "analyze", "could not read source metadata", err)
		}
		job.Title = fileutil.SanitizeFileName(info.Title)
	}

	job.SetProgress("Fetching", "Preparing download", 0)
	return nil
}

// Execute downloads the media streams the job selected.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.WorkDir) == "" {
		return services.Wrap(services.ErrValidation, "fetch", "execute", "job has no work directory", nil)
	}

	if job.Kind == queue.KindMP3 {
		return s.fetchAudioOnly(ctx, job)
	}
	return s.fetchVideo(ctx, job)
}

// HealthCheck verifies the yt-dlp binary resolves.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	binary := s.cfg.YtdlpBinary()
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy("fetch", fmt.Sprintf("%s not found", binary))
	}
	return stage.Healthy("fetch")
}

func (s *Stage) fetchAudioOnly(ctx context.Context, job *queue.Job) error {
	job.SetProgress("Fetching", "Downloading audio", 0)
	err := s.fetcher.Download(ctx, ytdlp.DownloadRequest{
		URL:            job.URL,
		Format:         "bestaudio/best",
		OutputTemplate: filepath.Join(job.WorkDir, "audio.%(ext)s"),
		Progress:       s.progressSink(ctx, job, "Downloading audio", 0, 95),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "fetch", "download audio", "audio download failed", err)
	}
	return nil
}

func (s *Stage) fetchVideo(ctx context.Context, job *queue.Job) error {
	format := strings.TrimSpace(job.FormatID)
	if format == "" {
		format = "bestvideo[ext=mp4]/bestvideo"
	}

	job.SetProgress("Fetching", "Downloading video", 0)
	err := s.fetcher.Download(ctx, ytdlp.DownloadRequest{
		URL:            job.URL,
		Format:         format,
		OutputTemplate: filepath.Join(job.WorkDir, "video.%(ext)s"),
		Progress:       s.progressSink(ctx, job, "Downloading video", 0, 60),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "fetch", "download video", "video download failed", err)
	}

	langs := language.NormalizeList(job.AudioLangs)
	fetched := 0
	for i, lang := range langs {
		selector := fmt.Sprintf("bestaudio[language^=%s]/bestaudio", lang)
		low := 60 + float64(i)*30/float64(len(langs))
		high := 60 + float64(i+1)*30/float64(len(langs))
		err := s.fetcher.Download(ctx, ytdlp.DownloadRequest{
			URL:            job.URL,
			Format:         selector,
			OutputTemplate: filepath.Join(job.WorkDir, "audio_"+lang+".%(ext)s"),
			Progress:       s.progressSink(ctx, job, "Downloading audio ("+lang+")", low, high),
		})
		if err != nil {
			s.logger.Warn("audio track download failed, skipping language",
				logging.String("language", lang),
				logging.Error(err),
			)
			continue
		}
		fetched++
	}

	if fetched == 0 {
		job.SetProgress("Fetching", "Downloading audio", 60)
		err := s.fetcher.Download(ctx, ytdlp.DownloadRequest{
			URL:            job.URL,
			Format:         "bestaudio",
			OutputTemplate: filepath.Join(job.WorkDir, "audio_"+DefaultAudioLang+".%(ext)s"),
			Progress:       s.progressSink(ctx, job, "Downloading audio", 60, 90),
		})
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "fetch", "download audio", "audio download failed", err)
		}
	}

	if len(job.SubtitleLangs) > 0 {
		job.SetProgress("Fetching", "Downloading subtitles", 90)
		template := filepath.Join(job.WorkDir, "subs.%(ext)s")
		if err := s.fetcher.DownloadSubtitles(ctx, job.URL, job.SubtitleLangs, template); err != nil {
			s.logger.Warn("subtitle download failed, continuing without subtitles", logging.Error(err))
		}
	}
	return nil
}

// progressSink maps yt-dlp's per-stream percentage onto a slice of the job's
// overall progress bar and persists updates at most once per second.
func (s *Stage) progressSink(ctx context.Context, job *queue.Job, message string, low, high float64) func(ytdlp.ProgressUpdate) {
	var lastPersist time.Time
	return func(update ytdlp.ProgressUpdate) {
		percent := low + (high-low)*update.Percent/100
		job.SetProgress("Fetching", message, percent)
		if time.Since(lastPersist) < time.Second {
			return
		}
		lastPersist = time.Now()
		if err := s.store.Update(ctx, job); err != nil {
			s.logger.Debug("progress update failed", logging.Error(err))
		}
	}
}
