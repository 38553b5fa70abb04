package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/app"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/ingest"
)

// NewProcessCmd creates the process command.
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <image> [image...]",
		Short: "Extract card fields from one or more images",
		Long: `Process runs the full pipeline on each image and prints one JSON
result per image on stdout.

Examples:
  # Local tesseract only
  idcard process --mode local card.jpg

  # Arabic only, remote OCR.space (needs OCR_SPACE_API_KEY)
  idcard process --lang ara --mode remote card.png

  # Custom conditioning, persisted to the database
  idcard process -t clahe,adaptive_threshold --save card.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcessCmd,
	}
	addPipelineFlags(cmd)
	cmd.Flags().Bool("compact", false, "Print one JSON object per line")
	return cmd
}

func runProcessCmd(cmd *cobra.Command, args []string) error {
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

	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	failed := processFiles(ctx, a.Processor, newLoader(cmd, logger), args, logger, func(res core.Result) {
		if err := writeResult(enc, res); err != nil {
			logger.Error("cli.output.failed", "source", res.Source, "error", err)
		}
	})
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	return nil
}

// processFiles loads and processes each path in order and hands every
// result to emit. It returns the number of failures.
func processFiles(ctx context.Context, proc *core.Processor, loader *ingest.Loader, paths []string, logger *slog.Logger, emit func(core.Result)) int {
	failed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		f, err := loader.Load(ctx, path)
		if err != nil {
			logger.Error("cli.load.failed", "path", path, "error", err)
			emit(core.Result{Source: path, Status: constants.DocumentStatusFailed, Kind: common.KindOf(err), Err: err})
			failed++
			continue
		}
		res, err := proc.Process(common.WithSource(ctx, path), core.Input{Image: f.Data, Source: path})
		if err != nil {
			failed++
		}
		emit(res)
	}
	return failed
}
