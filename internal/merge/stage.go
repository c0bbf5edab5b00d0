package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"spool/internal/config"
	"spool/internal/fetch"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/media/ffmpeg"
	"spool/internal/media/ffprobe"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/stage"
)

// Muxer abstracts the ffmpeg runner for tests.
type Muxer interface {
	Mux(ctx context.Context, spec ffmpeg.MuxSpec) error
	ExtractAudio(ctx context.Context, spec ffmpeg.ExtractSpec) error
}

var probeFile = ffprobe.Inspect

// Stage combines fetched streams into the final container and publishes it.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	muxer  Muxer
	logger *slog.Logger
}

// New constructs the merge stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, muxer Muxer) *Stage {
	return &Stage{cfg: cfg, store: store, muxer: muxer, logger: logger}
}

// SetLogger installs the stage-scoped logger used during execution.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prepare verifies the fetched work directory is present.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	workDir := strings.TrimSpace(job.WorkDir)
	if workDir == "" {
		return services.Wrap(services.ErrValidation, "merge", "prepare", "job has no work directory", nil)
	}
	if _, err := os.Stat(workDir); err != nil {
		return services.Wrap(services.ErrValidation, "merge", "prepare", "work directory missing; refetch required", err)
	}
	job.SetProgress("Merging", "Merging streams", 80)
	return nil
}

// Execute merges the fetched streams, validates the result, and moves it to
// the download directory.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	finalName := "download_" + job.Token + "." + job.OutputExt()
	finalPath := filepath.Join(s.cfg.Paths.DownloadDir, finalName)
	if err := fileutil.EnsureDir(s.cfg.Paths.DownloadDir); err != nil {
		return services.Wrap(services.ErrConfiguration, "merge", "execute", "cannot create download directory", err)
	}

	var err error
	if job.Kind == queue.KindMP3 {
		err = s.produceAudio(ctx, job, finalPath)
	} else {
		err = s.produceVideo(ctx, job, finalPath)
	}
	if err != nil {
		return err
	}

	if err := s.validateOutput(ctx, job, finalPath); err != nil {
		return err
	}

	job.OutputFile = finalName
	job.DownloadURL = "/files/" + finalName
	job.SetProgress("Merging", "Download ready", 100)

	if err := os.RemoveAll(job.WorkDir); err != nil {
		s.logger.Warn("work directory cleanup failed",
			logging.String("work_dir", job.WorkDir),
			logging.Error(err),
		)
	}
	return nil
}

// HealthCheck verifies the ffmpeg and ffprobe binaries resolve.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{s.cfg.FFmpegBinary(), s.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("merge", fmt.Sprintf("%s not found", binary))
		}
	}
	return stage.Healthy("merge")
}

func (s *Stage) produceAudio(ctx context.Context, job *queue.Job, finalPath string) error {
	sources, err := fileutil.FilesWithPrefix(job.WorkDir, "audio")
	if err != nil {
		return services.Wrap(services.ErrTransient, "merge", "scan work dir", "cannot read fetched files", err)
	}
	if len(sources) == 0 {
		return services.Wrap(services.ErrValidation, "merge", "extract audio", "no audio stream was fetched", nil)
	}

	intermediate := filepath.Join(job.WorkDir, "final.mp3")
	err = s.muxer.ExtractAudio(ctx, ffmpeg.ExtractSpec{
		SourcePath:  sources[0],
		OutputPath:  intermediate,
		BitrateKbps: s.cfg.Downloads.AudioQuality,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "merge", "extract audio", "audio extraction failed", err)
	}
	if err := fileutil.MoveFile(intermediate, finalPath); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "publish", "cannot move output into download directory", err)
	}
	return nil
}

func (s *Stage) produceVideo(ctx context.Context, job *queue.Job, finalPath string) error {
	videos, err := fileutil.FilesWithPrefix(job.WorkDir, "video.")
	if err != nil {
		return services.Wrap(services.ErrTransient, "merge", "scan work dir", "cannot read fetched files", err)
	}
	if len(videos) == 0 {
		return services.Wrap(services.ErrValidation, "merge", "mux", "no video stream was fetched", nil)
	}
	videoPath := videos[0]

	audio, err := collectAudioTracks(job.WorkDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "merge", "scan work dir", "cannot read fetched files", err)
	}

	// Progressive formats already carry audio; publish the container as-is.
	if len(audio) == 0 {
		probe, probeErr := probeFile(ctx, s.cfg.FFprobeBinary(), videoPath)
		if probeErr == nil && probe.AudioStreamCount() > 0 {
			if err := fileutil.MoveFile(videoPath, finalPath); err != nil {
				return services.Wrap(services.ErrTransient, "merge", "publish", "cannot move output into download directory", err)
			}
			return nil
		}
		return services.Wrap(services.ErrValidation, "merge", "mux", "no audio stream was fetched", nil)
	}

	subtitles, err := collectSubtitleTracks(job.WorkDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "merge", "scan work dir", "cannot read fetched files", err)
	}

	merged := filepath.Join(job.WorkDir, "merged.mp4")
	err = s.muxer.Mux(ctx, ffmpeg.MuxSpec{
		VideoPath:  videoPath,
		Audio:      audio,
		Subtitles:  subtitles,
		OutputPath: merged,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "merge", "mux", "stream muxing failed", err)
	}
	if err := fileutil.MoveFile(merged, finalPath); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "publish", "cannot move output into download directory", err)
	}
	return nil
}

func (s *Stage) validateOutput(ctx context.Context, job *queue.Job, finalPath string) error {
	probe, err := probeFile(ctx, s.cfg.FFprobeBinary(), finalPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "merge", "validate", "cannot inspect merged output", err)
	}
	if probe.DurationSeconds() <= 0 {
		return services.Wrap(services.ErrValidation, "merge", "validate", "output has no duration", nil)
	}
	if job.Kind == queue.KindMP3 {
		if probe.AudioStreamCount() == 0 {
			return services.Wrap(services.ErrValidation, "merge", "validate", "output has no audio stream", nil)
		}
		return nil
	}
	if probe.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "merge", "validate", "output has no video stream", nil)
	}
	if probe.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "merge", "validate", "output has no audio stream", nil)
	}
	return nil
}

// collectAudioTracks finds audio_<lang>.<ext> files and decodes the language
// label embedded in each name.
func collectAudioTracks(workDir string) ([]ffmpeg.AudioTrack, error) {
	files, err := fileutil.FilesWithPrefix(workDir, "audio_")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	tracks := make([]ffmpeg.AudioTrack, 0, len(files))
	for _, file := range files {
		base := filepath.Base(file)
		lang := strings.TrimPrefix(base, "audio_")
		if idx := strings.IndexByte(lang, '.'); idx >= 0 {
			lang = lang[:idx]
		}
		if lang == fetch.DefaultAudioLang {
			lang = ""
		}
		tracks = append(tracks, ffmpeg.AudioTrack{Path: file, Language: lang})
	}
	return tracks, nil
}

// collectSubtitleTracks finds subs.<lang>.<ext> files written by the subtitle
// fetch and decodes the language label from the middle segment.
func collectSubtitleTracks(workDir string) ([]ffmpeg.SubtitleTrack, error) {
	files, err := fileutil.FilesWithPrefix(workDir, "subs.")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	tracks := make([]ffmpeg.SubtitleTrack, 0, len(files))
	for _, file := range files {
		parts := strings.Split(filepath.Base(file), ".")
		if len(parts) < 3 {
			continue
		}
		lang := strings.Join(parts[1:len(parts)-1], ".")
		tracks = append(tracks, ffmpeg.SubtitleTrack{Path: file, Language: lang})
	}
	return tracks, nil
}
