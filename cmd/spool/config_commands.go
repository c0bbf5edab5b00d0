package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
	}
	cmd.AddCommand(newConfigShowCommand(ctx))
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Bind:          %s\n", cfg.Server.Bind)
			if cfg.Server.PublicBaseURL != "" {
				fmt.Fprintf(out, "Public URL:    %s\n", cfg.Server.PublicBaseURL)
			}
			fmt.Fprintf(out, "Auth:          %s\n", tokenState(cfg.Server.APIToken))
			fmt.Fprintf(out, "Downloads:     %s\n", cfg.Paths.DownloadDir)
			fmt.Fprintf(out, "Work dir:      %s\n", cfg.Paths.WorkDir)
			fmt.Fprintf(out, "Logs:          %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "yt-dlp:        %s\n", cfg.YtdlpBinary())
			fmt.Fprintf(out, "ffmpeg:        %s\n", cfg.FFmpegBinary())
			fmt.Fprintf(out, "ffprobe:       %s\n", cfg.FFprobeBinary())
			fmt.Fprintf(out, "Audio quality: %sk\n", cfg.Downloads.AudioQuality)
			fmt.Fprintf(out, "Max attempts:  %d\n", cfg.Downloads.MaxAttempts)
			fmt.Fprintf(out, "Retention:     %d day(s)\n", cfg.Downloads.RetentionDays)
			fmt.Fprintf(out, "Log level:     %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
}

func tokenState(token string) string {
	if strings.TrimSpace(token) == "" {
		return "disabled"
	}
	return "bearer token"
}

func newConfigInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a commented sample configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}
			if !force {
				if _, statErr := os.Stat(expanded); statErr == nil {
					return fmt.Errorf("%s already exists; use --force to overwrite", expanded)
				}
			}
			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample configuration to %s\n", expanded)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
