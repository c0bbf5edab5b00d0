package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"spool/internal/daemon"
	"spool/internal/fetch"
	"spool/internal/logging"
	"spool/internal/media/ffmpeg"
	"spool/internal/merge"
	"spool/internal/queue"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the spool daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}

			fetcher, err := ytdlp.New(cfg.YtdlpBinary(),
				ytdlp.WithFFmpegLocation(cfg.FFmpegBinary()),
				ytdlp.WithTimeouts(
					time.Duration(cfg.Tools.AnalyzeTimeout)*time.Second,
					time.Duration(cfg.Tools.DownloadTimeout)*time.Second,
				),
			)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("init yt-dlp client: %w", err)
			}

			manager := workflow.NewManager(cfg, store, logger)
			runner := ffmpeg.NewRunner(cfg.FFmpegBinary(),
				ffmpeg.WithTimeout(time.Duration(cfg.Tools.MergeTimeout)*time.Second),
			)
			manager.Configure(workflow.StageSet{
				Fetcher: fetch.New(cfg, store, logger, fetcher),
				Merger:  merge.New(cfg, store, logger, runner),
			})

			d, err := daemon.New(cfg, store, logger, manager, fetcher)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spool daemon listening on %s\n", d.Addr())

			<-runCtx.Done()
			return nil
		},
	}
}
