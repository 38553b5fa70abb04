package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/internal/export"
	"github.com/joseph-ayodele/idcard-reader/internal/repository"
)

const dateLayout = "2006-01-02"

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored documents to an XLSX spreadsheet",
		Long: `Export writes the documents saved by --save runs to a spreadsheet.
--from and --to are inclusive calendar days (UTC).

Examples:
  idcard export -o cards.xlsx
  idcard export --from 2026-01-01 --to 2026-01-31 -o january.xlsx`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}
	cmd.Flags().String("from", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day to include (YYYY-MM-DD)")
	cmd.Flags().StringP("output", "o", "documents.xlsx", "Spreadsheet path")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	from, err := dayFlag(cmd, "from")
	if err != nil {
		return err
	}
	to, err := dayFlag(cmd, "to")
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

	svc := export.NewService(repository.NewDocumentRepository(db, logger), logger)
	data, err := svc.ExportDocumentsXLSX(ctx, from, to)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("output")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func dayFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}
