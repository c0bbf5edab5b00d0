package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/client"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Inspect a URL and list available qualities, audio tracks, and subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				summary, err := api.Analyze(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAnalysis(cmd, summary)
				return nil
			})
		},
	}
}

func printAnalysis(cmd *cobra.Command, summary *client.AnalyzeResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title:    %s\n", summary.Title)
	if summary.Channel != "" {
		fmt.Fprintf(out, "Channel:  %s\n", summary.Channel)
	}
	if summary.Duration > 0 {
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(summary.Duration))
	}

	if len(summary.Qualities) > 0 {
		rows := make([][]string, 0, len(summary.Qualities))
		for _, quality := range summary.Qualities {
			rows = append(rows, []string{quality.Label, quality.FormatID, quality.Ext, quality.Size})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Quality", "Format", "Ext", "Size"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	if len(summary.AudioTracks) > 0 {
		langs := make([]string, 0, len(summary.AudioTracks))
		for _, track := range summary.AudioTracks {
			langs = append(langs, fmt.Sprintf("%s (%s)", track.Name, track.Language))
		}
		fmt.Fprintf(out, "Audio:     %s\n", strings.Join(langs, ", "))
	}
	if len(summary.Subtitles) > 0 {
		fmt.Fprintf(out, "Subtitles: %s\n", strings.Join(summary.Subtitles, ", "))
	}
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}
