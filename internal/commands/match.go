package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/match"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/recon"
)

func newSuggestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <transaction-id>",
		Short: "Show ranked match candidates for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			result, err := a.svc.Suggest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if result.Match == nil && len(result.Suggestions) == 0 {
				fmt.Println("No candidates found.")
				return nil
			}
			if result.Match != nil {
				printScored("Best match", *result.Match)
				for _, alt := range result.Alternatives {
					printScored("Alternative", alt)
				}
				return nil
			}
			fmt.Println("No candidate clears the confidence floor. Closest:")
			for _, s := range result.Suggestions {
				printScored("Suggestion", s)
			}
			return nil
		},
	}
}

func printScored(label string, s match.Scored) {
	fmt.Printf("%s: %s %s (%s, %s) confidence=%.4f via %s\n",
		label, s.Kind, s.ID, s.Name, s.Amount.StringFixed(2), s.Confidence, s.Method)
}

func newMatchCommand(a *app) *cobra.Command {
	var kind string
	var matchableID string
	var actor string

	cmd := &cobra.Command{
		Use:   "match <transaction-id>",
		Short: "Link a transaction to a payment, invoice or expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			rec, err := a.svc.Match(cmd.Context(), recon.MatchParams{
				TransactionID: args[0],
				Kind:          model.MatchableKind(kind),
				MatchableID:   matchableID,
				MatchedBy:     actor,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Matched %s to %s %s (confidence %.4f, record %s)\n",
				args[0], rec.MatchableKind, rec.MatchableID, rec.ConfidenceScore, rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "matchable kind: payment, invoice or expense (required)")
	cmd.Flags().StringVar(&matchableID, "id", "", "matchable record id (required)")
	cmd.Flags().StringVar(&actor, "by", "", "operator name (required)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newUnmatchCommand(a *app) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "unmatch <match-record-id>",
		Short: "Undo a match and return the transaction to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if err := a.svc.Unmatch(cmd.Context(), args[0], actor); err != nil {
				return err
			}
			fmt.Printf("Unmatched record %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "operator name (required)")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newIgnoreCommand(a *app) *cobra.Command {
	var undo bool
	var actor string

	cmd := &cobra.Command{
		Use:   "ignore <transaction-id>",
		Short: "Exclude a transaction from reconciliation, or include it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if err := a.svc.SetIgnored(cmd.Context(), args[0], !undo, actor); err != nil {
				return err
			}
			if undo {
				fmt.Printf("Transaction %s is pending again\n", args[0])
			} else {
				fmt.Printf("Transaction %s ignored\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "revert an ignored transaction to pending")
	cmd.Flags().StringVar(&actor, "by", "", "operator name (required)")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}
