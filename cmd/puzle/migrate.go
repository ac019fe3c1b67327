package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/onepuzle/puzle-ai/internal/config"
	"github.com/onepuzle/puzle-ai/internal/db"
	"github.com/onepuzle/puzle-ai/internal/logging"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if !cfg.DBConfigured() {
		return errors.New("DATABASE_URL is not set")
	}
	gdb, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := db.Migrate(gdb); err != nil {
		return err
	}
	log.Info().Msg("schema up to date")
	return nil
}
