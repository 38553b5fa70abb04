package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core/batch"
	"github.com/joseph-ayodele/idcard-reader/internal/core/condition"
	"github.com/joseph-ayodele/idcard-reader/internal/core/extract"
	"github.com/joseph-ayodele/idcard-reader/internal/core/normalize"
	"github.com/joseph-ayodele/idcard-reader/internal/core/orchestrator"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
)

// Input is one card image to process. Zero Language, Mode and Techniques
// take the processor defaults.
type Input struct {
	Image      []byte
	Language   constants.Language
	Mode       constants.EngineMode
	Techniques []condition.Technique
	Source     string
}

// Result is the outcome of one Process call. On a hard failure Err and Kind
// are set and the extraction fields are zero.
type Result struct {
	RequestID      string                   `json:"request_id"`
	DocumentID     uuid.UUID                `json:"document_id,omitempty"`
	Source         string                   `json:"source,omitempty"`
	Engine         constants.EngineName     `json:"engine,omitempty"`
	Status         constants.DocumentStatus `json:"status"`
	Kind           constants.ErrorKind      `json:"error_kind,omitempty"`
	Err            error                    `json:"-"`
	RawText        string                   `json:"raw_text,omitempty"`
	NormalizedText string                   `json:"normalized_text,omitempty"`
	Record         extract.Record           `json:"record"`
	Report         extract.Report           `json:"report"`
	Attempts       []orchestrator.Attempt   `json:"-"`
	Elapsed        time.Duration            `json:"elapsed_ns"`
}

// ErrMessage returns the failure message, or "" for a successful result.
func (r Result) ErrMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Store persists processed documents.
type Store interface {
	Save(ctx context.Context, doc *entity.Document) error
}

// Processor runs decode, condition, recognize, normalize and extract for
// one image at a time, and fans batches out over a bounded pool.
type Processor struct {
	logger      *slog.Logger
	conditioner *condition.Conditioner
	recognizer  *orchestrator.Orchestrator
	extractor   *extract.Extractor
	store       Store
	workers     int
	language    constants.Language
	mode        constants.EngineMode
	techniques  []condition.Technique
}

// Option configures a Processor.
type Option func(*Processor)

// WithStore saves every successfully processed document.
func WithStore(s Store) Option {
	return func(p *Processor) { p.store = s }
}

// WithExtractor replaces the built-in pattern bank.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Processor) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithWorkers bounds ProcessBatch concurrency.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithDefaults sets the language, mode and techniques used when an Input
// leaves them empty.
func WithDefaults(lang constants.Language, mode constants.EngineMode, techniques []condition.Technique) Option {
	return func(p *Processor) {
		if lang != "" {
			p.language = lang
		}
		if mode != "" {
			p.mode = mode
		}
		if len(techniques) > 0 {
			p.techniques = techniques
		}
	}
}

// NewProcessor wires the pipeline around a recognizer. A nil conditioner
// uses default parameters and a nil logger uses slog.Default.
func NewProcessor(conditioner *condition.Conditioner, recognizer *orchestrator.Orchestrator, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if conditioner == nil {
		conditioner = condition.NewConditioner(condition.DefaultParams(), logger)
	}
	p := &Processor{
		logger:      logger,
		conditioner: conditioner,
		recognizer:  recognizer,
		extractor:   extract.New(),
		workers:     batch.DefaultWorkers(),
		language:    constants.DefaultLanguage,
		mode:        constants.EngineModeAuto,
		techniques:  condition.DefaultTechniques,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full pipeline for one image. Unreadable images,
// exhausted engines and single-mode engine failures return an error along
// with a Result carrying Kind. Empty recognized text is not an error.
func (p *Processor) Process(ctx context.Context, in Input) (Result, error) {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	if in.Source == "" {
		in.Source = common.SourceFromContext(ctx)
	}
	res := Result{RequestID: reqID, Source: in.Source}

	fail := func(stage string, err error) (Result, error) {
		res.Err = err
		res.Kind = common.KindOf(err)
		res.Status = constants.DocumentStatusFailed
		res.Elapsed = time.Since(start)
		p.logger.Error("processor."+stage+".failed",
			"req_id", reqID,
			"source", in.Source,
			"kind", string(res.Kind),
			"err", err,
		)
		return res, err
	}

	raw, err := condition.Decode(in.Image)
	if err != nil {
		return fail("decode", err)
	}
	techniques := in.Techniques
	if len(techniques) == 0 {
		techniques = p.techniques
	}
	gray, err := p.conditioner.Condition(raw, techniques...)
	if err != nil {
		return fail("condition", err)
	}

	lang, mode := in.Language, in.Mode
	if lang == "" {
		lang = p.language
	}
	if mode == "" {
		mode = p.mode
	}
	rec := p.recognizer.Recognize(ctx, orchestrator.Request{Image: gray, Language: lang, Mode: mode})
	res.Engine = rec.Engine
	res.Attempts = rec.Attempts
	if rec.Err != nil {
		return fail("ocr", rec.Err)
	}

	res.RawText = rec.Text
	res.NormalizedText = normalize.Normalize(rec.Text)
	res.Record, res.Report = p.extractor.Extract(res.NormalizedText)
	res.Kind = rec.Kind
	switch {
	case rec.Kind == constants.KindExtractionEmpty:
		res.Status = constants.DocumentStatusEmpty
	case res.Report.Complete():
		res.Status = constants.DocumentStatusComplete
	default:
		res.Status = constants.DocumentStatusIncomplete
	}

	if p.store != nil {
		doc := res.Document()
		if err := p.store.Save(ctx, doc); err != nil {
			return fail("store", err)
		}
		res.DocumentID = doc.ID
	}

	res.Elapsed = time.Since(start)
	p.logger.Info("processor.done",
		"req_id", reqID,
		"source", in.Source,
		"engine", string(res.Engine),
		"status", string(res.Status),
		"warnings", len(res.Report.Warnings),
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// BatchInput is one entry of ProcessBatch. ID keys the returned map.
type BatchInput struct {
	ID    string
	Input Input
}

// ProcessBatch processes every input on a bounded pool and returns one
// Result per input, failures included. Only invalid batches (duplicate IDs)
// return an error.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []BatchInput) (map[string]Result, error) {
	items := make([]batch.Item[Input], len(inputs))
	for i, in := range inputs {
		items[i] = batch.Item[Input]{ID: in.ID, Value: in.Input}
	}
	outcomes, err := batch.Run(ctx, items, func(ctx context.Context, it batch.Item[Input]) (Result, error) {
		in := it.Value
		if in.Source == "" {
			in.Source = it.ID
		}
		ctx = common.WithRequestID(ctx, uuid.NewString())
		res, _ := p.Process(ctx, in)
		return res, nil
	}, batch.WithWorkers(p.workers), batch.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}

	out := make(map[string]Result, len(outcomes))
	failed := 0
	for id, oc := range outcomes {
		r := oc.Value
		if oc.Err != nil {
			r = Result{Source: id, Status: constants.DocumentStatusFailed, Kind: constants.KindInternal, Err: oc.Err}
		}
		if r.Err != nil {
			failed++
		}
		out[id] = r
	}
	p.logger.Info("processor.batch.done", "items", len(out), "failed", failed)
	return out, nil
}

// Document renders the result as a storable document. ID is the saved
// document's ID, or zero when the result was not persisted.
func (r Result) Document() *entity.Document {
	doc := &entity.Document{
		ID:             r.DocumentID,
		RequestID:      r.RequestID,
		DocumentType:   constants.DocumentTypeNationalID,
		Source:         r.Source,
		Engine:         r.Engine,
		Status:         r.Status,
		NormalizedText: r.NormalizedText,
	}
	for _, f := range constants.AllFields {
		v, ok := r.Record.Value(f)
		if !ok {
			continue
		}
		switch f {
		case constants.FieldIDNumber:
			doc.IDNumber = &v
		case constants.FieldFullName:
			doc.FullName = &v
		case constants.FieldDateOfBirth:
			doc.DateOfBirth = &v
		case constants.FieldPlaceOfBirth:
			doc.PlaceOfBirth = &v
		case constants.FieldGender:
			doc.Gender = &v
		case constants.FieldAddress:
			doc.Address = &v
		case constants.FieldExpiryDate:
			doc.ExpiryDate = &v
		}
	}
	for _, w := range r.Report.Warnings {
		doc.Warnings = append(doc.Warnings, w.String())
	}
	return doc
}

// String summarizes a result for logs and CLI output.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", r.Source, r.Status, r.Kind)
	}
	return fmt.Sprintf("%s: %s via %s, %d warnings", r.Source, r.Status, r.Engine, len(r.Report.Warnings))
}
