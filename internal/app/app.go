// Package app assembles the engines, the pipeline processor and the
// document store from a loaded configuration.
package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/core/condition"
	"github.com/joseph-ayodele/idcard-reader/internal/core/ocr"
	"github.com/joseph-ayodele/idcard-reader/internal/core/orchestrator"
	"github.com/joseph-ayodele/idcard-reader/internal/repository"
)

// App holds the wired components. DB and Documents are nil unless the
// store was requested.
type App struct {
	Config       *common.Config
	Logger       *slog.Logger
	Local        ocr.Engine
	Remote       *ocr.OCRSpaceEngine
	Orchestrator *orchestrator.Orchestrator
	Processor    *core.Processor
	DB           *repository.DB
	Documents    repository.DocumentRepository
}

type options struct {
	store      bool
	techniques []condition.Technique
	local      ocr.Engine
}

// Option tunes New.
type Option func(*options)

// WithStore opens the configured database and persists every processed
// document.
func WithStore() Option {
	return func(o *options) { o.store = true }
}

// WithTechniques overrides the default conditioning order.
func WithTechniques(ts []condition.Technique) Option {
	return func(o *options) { o.techniques = ts }
}

// WithLocalEngine replaces the configured local backend.
func WithLocalEngine(e ocr.Engine) Option {
	return func(o *options) { o.local = e }
}

// New validates cfg and builds the pipeline. The remote engine is only
// built when an API key is configured.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.ValidateFor(cfg.Mode()); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	local := o.local
	if local == nil {
		l, err := ocr.NewLocalEngine(cfg.OCR, logger)
		if err != nil {
			// the cgo backend may be missing from this build; remote can still serve
			logger.Warn("app.local_engine.unavailable", "backend", cfg.OCR.LocalBackend, "error", err)
		} else {
			local = l
		}
	}
	a.Local = local

	var remote ocr.Engine
	if cfg.Remote.APIKey != "" {
		r, err := ocr.NewOCRSpaceEngine(ocr.OCRSpaceConfigFrom(cfg.Remote), logger)
		if err != nil {
			return nil, err
		}
		a.Remote = r
		remote = r
	}

	a.Orchestrator = orchestrator.New(local, remote, logger, orchestrator.WithWorkers(cfg.Batch.Workers))

	procOpts := []core.Option{
		core.WithWorkers(cfg.Batch.Workers),
		core.WithDefaults(cfg.Language(), cfg.Mode(), o.techniques),
	}
	if o.store {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Documents = repository.NewDocumentRepository(db, logger)
		procOpts = append(procOpts, core.WithStore(a.Documents))
	}

	conditioner := condition.NewConditioner(condition.ParamsFromConfig(cfg.Image), logger)
	a.Processor = core.NewProcessor(conditioner, a.Orchestrator, logger, procOpts...)

	logger.Info("app.ready",
		"mode", string(cfg.Mode()),
		"language", string(cfg.Language()),
		"local", local != nil,
		"remote", a.Remote != nil,
		"store", a.DB != nil,
	)
	return a, nil
}

// Close releases the database, if one was opened.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
