package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spool/internal/client"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <job-id>",
		Short: "Show the progress of a queued download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				progress, err := api.Progress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job:      %s\n", progress.JobID)
				if progress.Title != "" {
					fmt.Fprintf(out, "Title:    %s\n", progress.Title)
				}
				fmt.Fprintf(out, "Status:   %s\n", progress.Status)
				fmt.Fprintf(out, "Progress: %s\n", formatPercent(progress.Percentage))
				if progress.Message != "" {
					fmt.Fprintf(out, "Message:  %s\n", progress.Message)
				}
				if progress.DownloadURL != "" {
					fmt.Fprintf(out, "URL:      %s\n", progress.DownloadURL)
				}
				if progress.Error != "" {
					fmt.Fprintf(out, "Error:    %s\n", progress.Error)
				}
				return nil
			})
		},
	}
}
