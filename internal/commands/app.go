// Package commands wires the CLI surface over the reconciliation
// services.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/logging"
	"github.com/concilia-dev/concilia/internal/recon"
	"github.com/concilia-dev/concilia/internal/statement"
	"github.com/concilia-dev/concilia/internal/store"
)

const defaultConfigFile = "concilia.yaml"

// app holds the lazily constructed services shared by the subcommands.
type app struct {
	configPath string

	cfg      *config.Config
	db       *store.Database
	log      zerolog.Logger
	svc      *recon.Service
	importer *statement.Importer
}

// setup loads the environment, configuration and database. Called by
// every subcommand that touches state; init writes the files setup reads.
func (a *app) setup() error {
	if a.db != nil {
		return nil
	}
	_ = godotenv.Load()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if path := os.Getenv("CONCILIA_DB"); path != "" {
		cfg.Database.Path = path
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	a.cfg = cfg
	a.db = db
	a.log = logging.New(cfg.Logging.Level)
	a.svc = recon.NewService(db, cfg, a.log)
	a.importer = statement.NewImporter(db, a.log)
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv("CONCILIA_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigFile
	}
	return config.Load(path)
}
