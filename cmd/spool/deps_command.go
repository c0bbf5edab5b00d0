package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spool/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that required external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.Check(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				detail := status.Path
				if !status.Available {
					detail = status.Detail
				}
				rows = append(rows, []string{status.Name, yesNo(status.Available), detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Found", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return deps.FirstMissing(statuses)
		},
	}
}
