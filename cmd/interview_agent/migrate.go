package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/interview-engine/internal/db"
	"github.com/jonathan/interview-engine/internal/questionbank"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateSeed string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL schema and optionally seed the question bank",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSeed, "seed", "", "Question bank file (JSON or YAML) to upsert after migrating")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	// Load the seed first so a bad file does not leave a half-done run.
	var seed *questionbank.FileBank
	if migrateSeed != "" {
		if seed, err = questionbank.LoadFile(migrateSeed); err != nil {
			return err
		}
	}

	database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("schema migrated")

	if seed != nil {
		n, err := database.UpsertQuestions(cmd.Context(), seed.Items())
		if err != nil {
			return err
		}
		log.Info("question bank seeded", zap.String("file", migrateSeed), zap.Int("questions", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d question(s) from %s\n", n, migrateSeed)
	}
	return nil
}
