package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/client"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage queued downloads",
	}
	cmd.AddCommand(newJobsListCommand(ctx))
	cmd.AddCommand(newJobsShowCommand(ctx))
	cmd.AddCommand(newJobsRetryCommand(ctx))
	cmd.AddCommand(newJobsClearCommand(ctx))
	cmd.AddCommand(newJobsResetCommand(ctx))
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				jobs, err := api.Jobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.JobID,
						job.Kind,
						truncate(job.Title, 40),
						job.Status,
						formatPercent(job.ProgressPercent),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Job", "Kind", "Title", "Status", "Progress"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withClient(func(api *client.Client) error {
				job, err := api.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				printJob(cmd, job)
				return nil
			})
		},
	}
}

func printJob(cmd *cobra.Command, job *client.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %d\n", job.ID)
	fmt.Fprintf(out, "Job:       %s\n", job.JobID)
	fmt.Fprintf(out, "URL:       %s\n", job.URL)
	fmt.Fprintf(out, "Kind:      %s\n", job.Kind)
	if job.Title != "" {
		fmt.Fprintf(out, "Title:     %s\n", job.Title)
	}
	fmt.Fprintf(out, "Status:    %s\n", job.Status)
	fmt.Fprintf(out, "Progress:  %s %s\n", formatPercent(job.ProgressPercent), job.ProgressMessage)
	fmt.Fprintf(out, "Attempts:  %d\n", job.Attempts)
	if len(job.AudioLangs) > 0 {
		fmt.Fprintf(out, "Audio:     %s\n", strings.Join(job.AudioLangs, ", "))
	}
	if len(job.SubtitleLangs) > 0 {
		fmt.Fprintf(out, "Subtitles: %s\n", strings.Join(job.SubtitleLangs, ", "))
	}
	if job.OutputFile != "" {
		fmt.Fprintf(out, "Output:    %s\n", job.OutputFile)
	}
	if job.DownloadURL != "" {
		fmt.Fprintf(out, "URL path:  %s\n", job.DownloadURL)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", job.Error)
	}
	fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt)
	fmt.Fprintf(out, "Updated:   %s\n", job.UpdatedAt)
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withClient(func(api *client.Client) error {
				count, err := api.Retry(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "retried %d job(s)\n", count)
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				count, err := api.Clear(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d job(s)\n", count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "completed", "Which jobs to remove: completed, failed, or all")
	return cmd
}

func newJobsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return stuck in-flight jobs to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				count, err := api.Reset(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d job(s)\n", count)
				return nil
			})
		},
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
