package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spool/internal/client"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		kind      string
		formatID  string
		audio     []string
		subtitles []string
		wait      bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Queue a download on the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				jobID, err := api.Download(cmd.Context(), client.DownloadParams{
					URL:           args[0],
					Kind:          kind,
					FormatID:      formatID,
					AudioLangs:    audio,
					SubtitleLangs: subtitles,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued job %s\n", jobID)
				if !wait {
					return nil
				}
				return waitForJob(cmd, api, jobID)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "mp4", "Output kind: mp4 or mp3")
	cmd.Flags().StringVar(&formatID, "format", "", "Video format id from analyze output")
	cmd.Flags().StringSliceVar(&audio, "audio", nil, "Audio language codes to include")
	cmd.Flags().StringSliceVar(&subtitles, "subs", nil, "Subtitle language codes to include")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll progress until the job finishes")
	return cmd
}

func waitForJob(cmd *cobra.Command, api *client.Client, jobID string) error {
	out := cmd.OutOrStdout()
	var lastMessage string
	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(2 * time.Second):
		}

		progress, err := api.Progress(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		if progress.Message != lastMessage {
			lastMessage = progress.Message
			fmt.Fprintf(out, "[%s] %s %s\n", progress.Status, formatPercent(progress.Percentage), progress.Message)
		}
		switch progress.Status {
		case "completed":
			fmt.Fprintf(out, "download ready: %s\n", progress.DownloadURL)
			return nil
		case "failed":
			if progress.Error != "" {
				return errors.New(progress.Error)
			}
			return errors.New("download failed")
		}
	}
}
