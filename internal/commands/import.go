package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/statement"
)

func newImportCommand(a *app) *cobra.Command {
	var format string
	var account string

	cmd := &cobra.Command{
		Use:   "import <statement-file>",
		Short: "Import a bank statement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading statement: %w", err)
			}

			result, err := a.importer.ImportFile(cmd.Context(), raw, format, account)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d of %d rows (%d duplicates, %d errors)\n",
				result.Imported, result.Total, result.Duplicates, result.Errors)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "delimited", "statement format")
	cmd.Flags().StringVar(&account, "account", "", "bank account id (required)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported statement formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(strings.Join(statement.DefaultRegistry().Formats(), "\n"))
			return nil
		},
	}
}
