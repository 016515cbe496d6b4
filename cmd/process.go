package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claims-idp/internal/pipeline"
)

var processFlags struct {
	claimNumber  string
	policyHolder string
	claimType    string
	policyNumber string
	incident     string
	documents    string
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a claim and its document folder",
	Long:  "Registers the claim, extracts text and structured fields from its documents, scores fraud indicators, and generates a summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		proc, st, err := newProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := proc.ProcessClaim(ctx, pipeline.ProcessInput{
			ClaimNumber:         processFlags.claimNumber,
			PolicyHolder:        processFlags.policyHolder,
			ClaimType:           processFlags.claimType,
			PolicyNumber:        processFlags.policyNumber,
			IncidentDescription: processFlags.incident,
			DocumentsFolder:     processFlags.documents,
		})
		if err != nil {
			return eris.Wrap(err, "process claim")
		}

		fmt.Println(result.Summary)
		fmt.Println()

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processFlags.claimNumber, "claim-number", "", "claim number (required)")
	processCmd.Flags().StringVar(&processFlags.policyHolder, "policy-holder", "", "policy holder name (required)")
	processCmd.Flags().StringVar(&processFlags.claimType, "claim-type", "", "claim type, e.g. auto or health (required)")
	processCmd.Flags().StringVar(&processFlags.policyNumber, "policy-number", "", "policy number if known")
	processCmd.Flags().StringVar(&processFlags.incident, "incident-description", "", "free-text incident description")
	processCmd.Flags().StringVar(&processFlags.documents, "documents", "", "folder containing the claim's documents")

	_ = processCmd.MarkFlagRequired("claim-number")
	_ = processCmd.MarkFlagRequired("policy-holder")
	_ = processCmd.MarkFlagRequired("claim-type")

	rootCmd.AddCommand(processCmd)
}
