package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/internal/repository"
)

// NewDBHealthCmd creates the dbhealth command.
func NewDBHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dbhealth",
		Short: "Check the document database",
		Long: `DBHealth opens the configured database (DB_DRIVER, DB_URL), applies
the schema, pings it and reports how many documents are stored.`,
		Args: cobra.NoArgs,
		RunE: runDBHealthCmd,
	}
}

func runDBHealthCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
		return fmt.Errorf("DB health: FAIL (%w)", err)
	}
	docs, err := repository.NewDocumentRepository(db, logger).List(ctx, nil, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "DB health: OK (%s, %d documents)\n", db.Driver, len(docs))
	return nil
}
