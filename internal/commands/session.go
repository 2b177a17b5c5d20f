package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/recon"
)

func newSessionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage reconciliation sessions",
	}
	cmd.AddCommand(newSessionCreateCommand(a))
	cmd.AddCommand(newSessionAutoMatchCommand(a))
	cmd.AddCommand(newSessionAdjustCommand(a))
	cmd.AddCommand(newSessionCompleteCommand(a))
	cmd.AddCommand(newSessionSummaryCommand(a))
	cmd.AddCommand(newSessionAuditCommand(a))
	return cmd
}

func newSessionCreateCommand(a *app) *cobra.Command {
	var account, from, to, balance, actor string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a draft session for a statement period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			start, err := parseDay(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseDay(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			statementBalance, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("--balance: %w", err)
			}

			sess, err := a.svc.CreateSession(cmd.Context(), recon.CreateSessionParams{
				BankAccountID:    account,
				PeriodStart:      start,
				PeriodEnd:        end,
				StatementBalance: statementBalance,
				CreatedBy:        actor,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Session %s created (difference %s)\n", sess.ID, sess.Difference.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "bank account id (required)")
	cmd.Flags().StringVar(&from, "from", "", "period start, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "period end, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&balance, "balance", "", "statement closing balance (required)")
	cmd.Flags().StringVar(&actor, "by", "", "operator name (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("balance")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newSessionAutoMatchCommand(a *app) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "auto-match <session-id>",
		Short: "Match the session's pending transactions automatically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			result, err := a.svc.AutoMatch(cmd.Context(), args[0], actor)
			if err != nil {
				return err
			}
			fmt.Printf("Auto-matched %d of %d pending transactions\n", result.Matched, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "auto-match", "operator name recorded on the matches")
	return cmd
}

func newSessionAdjustCommand(a *app) *cobra.Command {
	var amount, reason, actor string

	cmd := &cobra.Command{
		Use:   "adjust <session-id>",
		Short: "Add a manual correction to a draft session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			adj, err := a.svc.AddAdjustment(cmd.Context(), args[0], value, reason, actor)
			if err != nil {
				return err
			}
			fmt.Printf("Adjustment %s added (%s)\n", adj.ID, adj.Amount.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "adjustment amount, signed (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the adjustment exists (required)")
	cmd.Flags().StringVar(&actor, "by", "", "operator name (required)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newSessionCompleteCommand(a *app) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Close a balanced session and lock in its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			sess, err := a.svc.Complete(cmd.Context(), args[0], actor)
			if err != nil {
				return err
			}
			fmt.Printf("Session %s completed by %s\n", sess.ID, sess.CompletedBy)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "operator name (required)")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newSessionSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Show a session's balances and transaction counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			summary, err := a.svc.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			sess := summary.Session
			fmt.Printf("Session %s (%s)\n", sess.ID, sess.Status)
			fmt.Printf("  Period:             %s .. %s\n",
				sess.PeriodStart.Format("2006-01-02"), sess.PeriodEnd.Format("2006-01-02"))
			fmt.Printf("  Statement balance:  %s\n", sess.StatementBalance.StringFixed(2))
			fmt.Printf("  System balance:     %s\n", sess.SystemBalance.StringFixed(2))
			fmt.Printf("  Difference:         %s\n", sess.Difference.StringFixed(2))
			fmt.Printf("  Adjustments:        %s (%d)\n", sess.AdjustmentTotal().StringFixed(2), len(sess.Adjustments))
			fmt.Printf("  Adjusted residual:  %s\n", summary.AdjustedDifference.StringFixed(2))
			fmt.Printf("  Transactions:       %d total", summary.TotalTransactions)
			for _, status := range []model.TransactionStatus{
				model.StatusPending, model.StatusMatched, model.StatusReconciled, model.StatusIgnored,
			} {
				if n := summary.CountsByStatus[status]; n > 0 {
					fmt.Printf(", %d %s", n, status)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

func newSessionAuditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <session-id>",
		Short: "Show the session's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			entries, err := a.db.View(cmd.Context()).AuditTrail(args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s  %-14s %-12s %s\n",
					e.Timestamp.Format(time.RFC3339), e.Action, e.Actor, e.Details)
			}
			return nil
		},
	}
}

func parseDay(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return t.UTC(), nil
}
