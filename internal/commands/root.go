package commands

import (
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "concilia",
		Short:   "Bank statement reconciliation for small business books",
		Version: buildinfo.BuildString(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to concilia.yaml")

	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newImportCommand(a))
	rootCmd.AddCommand(newFormatsCommand())
	rootCmd.AddCommand(newSuggestCommand(a))
	rootCmd.AddCommand(newMatchCommand(a))
	rootCmd.AddCommand(newUnmatchCommand(a))
	rootCmd.AddCommand(newIgnoreCommand(a))
	rootCmd.AddCommand(newSessionCommand(a))

	return rootCmd
}
