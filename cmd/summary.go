package main

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claims-idp/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <claim-number>",
	Short: "Print the latest summary for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		proc, st, err := newProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := proc.LatestSummary(ctx, args[0])
		if err != nil {
			if errors.Is(err, pipeline.ErrClaimNotFound) {
				return eris.Errorf("claim %s not found", args[0])
			}
			return eris.Wrap(err, "get summary")
		}
		if summary == "" {
			return eris.Errorf("claim %s has no summary yet", args[0])
		}

		fmt.Println(summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
