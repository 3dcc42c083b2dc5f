package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/craftline/outreach-cli/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pipeline funnel",
	Long:  "Recomputes stage counts and lock states from the lead store. Counts are never cached; every call reflects current data.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		snapshots, err := env.Aggregator.Status(cmd.Context())
		if err != nil {
			if errors.Is(err, pipeline.ErrUnavailable) {
				return fmt.Errorf("pipeline status unavailable: run `outreach migrate` first")
			}
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tCOUNT\tSTATE")
		for _, s := range snapshots {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Stage, s.Count, s.State)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
