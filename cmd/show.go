package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claims-idp/internal/pipeline"
)

var showCmd = &cobra.Command{
	Use:   "show <claim-number>",
	Short: "Print a claim record and its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		proc, st, err := newProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		claim, docs, err := proc.GetClaim(ctx, args[0])
		if err != nil {
			if errors.Is(err, pipeline.ErrClaimNotFound) {
				return eris.Errorf("claim %s not found", args[0])
			}
			return eris.Wrap(err, "get claim")
		}

		out, err := json.MarshalIndent(map[string]any{
			"claim":     claim,
			"documents": docs,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal claim")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
