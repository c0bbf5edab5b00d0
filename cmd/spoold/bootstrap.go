package main

import (
	"log/slog"
	"time"

	"spool/internal/config"
	"spool/internal/fetch"
	"spool/internal/media/ffmpeg"
	"spool/internal/merge"
	"spool/internal/queue"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

func buildFetcher(cfg *config.Config) (*ytdlp.Client, error) {
	return ytdlp.New(cfg.YtdlpBinary(),
		ytdlp.WithFFmpegLocation(cfg.FFmpegBinary()),
		ytdlp.WithTimeouts(
			time.Duration(cfg.Tools.AnalyzeTimeout)*time.Second,
			time.Duration(cfg.Tools.DownloadTimeout)*time.Second,
		),
	)
}

func configureStages(manager *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher ytdlp.Fetcher) {
	runner := ffmpeg.NewRunner(cfg.FFmpegBinary(),
		ffmpeg.WithTimeout(time.Duration(cfg.Tools.MergeTimeout)*time.Second),
	)
	manager.Configure(workflow.StageSet{
		Fetcher: fetch.New(cfg, store, logger, fetcher),
		Merger:  merge.New(cfg, store, logger, runner),
	})
}
