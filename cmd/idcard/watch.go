package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/internal/app"
	"github.com/joseph-ayodele/idcard-reader/internal/async"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	coreasync "github.com/joseph-ayodele/idcard-reader/internal/core/async"
	"github.com/joseph-ayodele/idcard-reader/internal/ingest"
)

const shutdownTimeout = 30 * time.Second

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <directory> [directory...]",
		Short: "Process card images as they appear in watched directories",
		Long: `Watch follows one or more directories (recursively) and processes each
new or rewritten image on a worker pool. Results are printed as JSON lines
on stdout. Stop with Ctrl-C; queued images finish before exit.

Examples:
  idcard watch ./inbox
  idcard watch --initial-scan --save ./inbox ./uploads`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWatchCmd,
	}
	addPipelineFlags(cmd)
	cmd.Flags().Bool("initial-scan", false, "Also process images already present")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Coalesce write bursts on the same file")
	cmd.Flags().Int("queue-size", 256, "Pending job capacity before backpressure")
	cmd.Flags().Duration("timeout", 3*time.Minute, "Per-image processing deadline")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
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

	loader := newLoader(cmd, logger)
	initial, _ := cmd.Flags().GetBool("initial-scan")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       args,
		AllowedExts: loader.Extensions(),
		InitialScan: initial,
		Debounce:    debounce,
		SkipHidden:  true,
	}, logger)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	enc := json.NewEncoder(cmd.OutOrStdout())
	queueSize, _ := cmd.Flags().GetInt("queue-size")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	queue := coreasync.NewProcessorQueue(a.Processor, loader, logger,
		coreasync.WithWorkers(cfg.Batch.Workers),
		coreasync.WithQueueSize(queueSize),
		coreasync.WithProcessTimeout(timeout),
		coreasync.WithResultFunc(func(_ async.Job, res core.Result, _ error) {
			mu.Lock()
			defer mu.Unlock()
			if err := writeResult(enc, res); err != nil {
				logger.Error("cli.output.failed", "source", res.Source, "error", err)
			}
		}),
	)
	logger.Info("cli.watch.started", "roots", args)

	for paths != nil || errs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			err := queue.Enqueue(ctx, async.Job{Path: p, TraceID: uuid.NewString()})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("cli.watch.enqueue.failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("cli.watch.error", "error", err)
		}
	}

	logger.Info("cli.watch.stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	return nil
}
