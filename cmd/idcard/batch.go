package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/app"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
	"github.com/joseph-ayodele/idcard-reader/internal/export"
	"github.com/joseph-ayodele/idcard-reader/internal/ingest"
	"github.com/joseph-ayodele/idcard-reader/internal/report"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Process every card image under a directory",
		Long: `Batch scans a directory recursively for images and processes them on a
bounded worker pool (BATCH_WORKERS). One unreadable image never aborts
the others; each gets its own entry in the report.

Examples:
  # Markdown report on stdout
  idcard batch ./scans

  # JSON report to a file, plus a spreadsheet of the extracted fields
  idcard batch --json -o out/report.json --xlsx out/cards.xlsx ./scans`,
		Args: cobra.ExactArgs(1),
		RunE: runBatchCmd,
	}
	addPipelineFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Output a JSON report instead of Markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file (creates directories if needed)")
	cmd.Flags().String("xlsx", "", "Also write the extracted documents to an XLSX file")
	cmd.Flags().Bool("include-hidden", false, "Descend into hidden files and directories")
	return cmd
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := pipelineOptions(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	root := args[0]
	loader := newLoader(cmd, logger)
	includeHidden, _ := cmd.Flags().GetBool("include-hidden")
	paths, stats, err := ingest.ScanDirectory(root, loader.Extensions(), !includeHidden)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	logger.Info("cli.batch.scanned", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	if len(paths) == 0 {
		return fmt.Errorf("no images found under %s", root)
	}

	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	loadFailures := make(map[string]core.Result)
	inputs := make([]core.BatchInput, 0, len(paths))
	for _, p := range paths {
		id := batchID(root, p)
		f, err := loader.Load(ctx, p)
		if err != nil {
			loadFailures[id] = core.Result{Source: p, Status: constants.DocumentStatusFailed, Kind: common.KindOf(err), Err: err}
			continue
		}
		inputs = append(inputs, core.BatchInput{ID: id, Input: core.Input{Image: f.Data, Source: p}})
	}

	results, err := a.Processor.ProcessBatch(ctx, inputs)
	if err != nil {
		return err
	}
	for id, r := range loadFailures {
		results[id] = r
	}

	rep := report.Summarize(results, time.Now())
	if err := writeBatchReport(cmd, rep); err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		if err := writeBatchXLSX(path, results); err != nil {
			return err
		}
		logger.Info("cli.batch.xlsx", "path", path)
	}

	if n := rep.Count(constants.DocumentStatusFailed); n > 0 {
		return fmt.Errorf("%d of %d images failed", n, rep.Total)
	}
	return nil
}

// batchID keys a file by its path relative to the scanned root.
func batchID(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func writeBatchReport(cmd *cobra.Command, rep *report.BatchReport) error {
	path, _ := cmd.Flags().GetString("output")
	w, closeFn, err := openOutput(cmd, path)
	if err != nil {
		return err
	}

	var writer report.Writer
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		writer = report.NewJSONWriter(w, report.WithPrettyPrint())
	} else {
		writer = report.NewMarkdownWriter(w)
	}
	if _, err := writer.Write(rep); err != nil {
		_ = closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}

// writeBatchXLSX exports the successful results, ordered by source.
func writeBatchXLSX(path string, results map[string]core.Result) error {
	now := time.Now().UTC()
	docs := make([]*entity.Document, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		d := r.Document()
		d.CreatedAt = now
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })

	data, err := export.DocumentsXLSX(docs)
	if err != nil {
		return fmt.Errorf("failed to build spreadsheet: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}
