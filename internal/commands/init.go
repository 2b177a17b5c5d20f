package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/store"
)

func newInitCommand(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a concilia workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(absDir, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "concilia.db", "database file, relative to the workspace")
	return cmd
}

func runInit(dir, dbPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	cfg := config.Default()
	cfg.Database.Path = dbPath
	configPath := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Opening the database creates the schema.
	if _, err := store.Open(filepath.Join(dir, dbPath)); err != nil {
		return fmt.Errorf("creating database: %w", err)
	}

	fmt.Printf("Initialized concilia workspace at %s\n", dir)
	return nil
}
