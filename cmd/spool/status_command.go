package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"spool/internal/client"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				status, err := api.Status(cmd.Context())
				if err != nil {
					return err
				}
				printStatus(cmd, status)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, status *client.DaemonStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running:  %s\n", yesNo(status.Running))
	fmt.Fprintf(out, "Bind:     %s\n", status.Bind)
	fmt.Fprintf(out, "Database: %s\n", status.QueueDBPath)
	if status.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", status.LastError)
	}

	if len(status.QueueStats) > 0 {
		keys := make([]string, 0, len(status.QueueStats))
		for key := range status.QueueStats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, key := range keys {
			rows = append(rows, []string{key, fmt.Sprintf("%d", status.QueueStats[key])})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Status", "Jobs"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	if len(status.StageHealth) > 0 {
		rows := make([][]string, 0, len(status.StageHealth))
		for _, health := range status.StageHealth {
			rows = append(rows, []string{health.Name, yesNo(health.Ready), health.Detail})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Stage", "Ready", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
	}
}
