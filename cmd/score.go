package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claims-idp/internal/pipeline"
)

var scoreCmd = &cobra.Command{
	Use:   "score <claim-number>",
	Short: "Print the latest fraud assessment for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		proc, st, err := newProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fs, err := proc.LatestFraudScore(ctx, args[0])
		if err != nil {
			if errors.Is(err, pipeline.ErrClaimNotFound) {
				return eris.Errorf("claim %s not found", args[0])
			}
			return eris.Wrap(err, "get fraud score")
		}
		if fs == nil {
			return eris.Errorf("claim %s has not been scored yet", args[0])
		}

		out, err := json.MarshalIndent(fs, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal fraud score")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
