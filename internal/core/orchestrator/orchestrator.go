// Package orchestrator picks the OCR engine for a request and applies the
// fallback policy between the local and remote engines.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core/batch"
	"github.com/joseph-ayodele/idcard-reader/internal/core/ocr"
)

// Request is one recognition request. It is treated as immutable.
type Request struct {
	Image    *image.Gray
	Language constants.Language
	Mode     constants.EngineMode
}

// Attempt records one engine call made while serving a request.
type Attempt struct {
	Engine  constants.EngineName
	Err     error
	Empty   bool
	Elapsed time.Duration
}

// Result is produced once per request. Text "" means no text was found.
// Kind is KindExtractionEmpty for an empty but successful run and Err is
// then nil.
type Result struct {
	Text     string
	Engine   constants.EngineName
	Kind     constants.ErrorKind
	Err      error
	Attempts []Attempt
}

// OK reports whether an engine produced non-empty text.
func (r Result) OK() bool { return r.Err == nil && r.Text != "" }

type state int

const (
	stateLocal state = iota
	stateRemote
	stateAutoTryLocal
	stateAutoTryRemote
	stateExhausted
	stateDone
)

func (s state) String() string {
	switch s {
	case stateLocal:
		return "local"
	case stateRemote:
		return "remote"
	case stateAutoTryLocal:
		return "auto_try_local"
	case stateAutoTryRemote:
		return "auto_try_remote"
	case stateExhausted:
		return "exhausted"
	default:
		return "done"
	}
}

// Orchestrator routes requests to the engines. A nil engine is treated as
// not configured. It is safe for concurrent use.
type Orchestrator struct {
	local   ocr.Engine
	remote  ocr.Engine
	order   [2]constants.EngineName
	workers int
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAutoOrder overrides which engine auto mode tries first. The default
// prefers the local engine because it avoids network cost.
func WithAutoOrder(first, second constants.EngineName) Option {
	return func(o *Orchestrator) {
		if first != second && validEngine(first) && validEngine(second) {
			o.order = [2]constants.EngineName{first, second}
		}
	}
}

// WithWorkers sets the batch pool size; 0 uses batch.DefaultWorkers.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

func validEngine(n constants.EngineName) bool {
	return n == constants.EngineLocal || n == constants.EngineRemote
}

// New creates an orchestrator over the given engines.
func New(local, remote ocr.Engine, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		local:  local,
		remote: remote,
		order:  [2]constants.EngineName{constants.EngineLocal, constants.EngineRemote},
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers <= 0 {
		o.workers = batch.DefaultWorkers()
	}
	return o
}

// Workers returns the batch pool size.
func (o *Orchestrator) Workers() int { return o.workers }

func (o *Orchestrator) autoState(n constants.EngineName) state {
	if n == constants.EngineRemote {
		return stateAutoTryRemote
	}
	return stateAutoTryLocal
}

// Recognize runs the engine selection state machine for one request.
//
// auto: engines are tried in order until one yields text. When the last
// engine runs cleanly but finds nothing the result is KindExtractionEmpty;
// otherwise running out of engines is ErrNoEngineAvailable wrapping every
// attempt's error. local and remote: one attempt, never escalated.
func (o *Orchestrator) Recognize(ctx context.Context, req Request) Result {
	if req.Language == "" {
		req.Language = constants.DefaultLanguage
	}
	if req.Mode == "" {
		req.Mode = constants.EngineModeAuto
	}
	reqID := common.RequestIDFromContext(ctx)

	var st state
	switch req.Mode {
	case constants.EngineModeLocal:
		st = stateLocal
	case constants.EngineModeRemote:
		st = stateRemote
	case constants.EngineModeAuto:
		st = o.autoState(o.order[0])
	default:
		err := common.NewAppError("INVALID_MODE", fmt.Sprintf("unknown engine mode %q", req.Mode), common.ErrInvalidInput)
		return Result{Kind: common.KindOf(err), Err: err}
	}

	var res Result
	tried := 0
	for st != stateDone {
		o.logger.Debug("ocr.state", "req_id", reqID, "state", st.String())
		switch st {
		case stateLocal, stateRemote:
			name := constants.EngineLocal
			if st == stateRemote {
				name = constants.EngineRemote
			}
			att, text := o.attempt(ctx, name, req, true)
			res.Attempts = append(res.Attempts, att)
			res.Engine = name
			switch {
			case att.Err != nil:
				res.Err = att.Err
				res.Kind = common.KindOf(att.Err)
			case att.Empty:
				res.Kind = constants.KindExtractionEmpty
			default:
				res.Text = text
			}
			st = stateDone

		case stateAutoTryLocal, stateAutoTryRemote:
			name := constants.EngineLocal
			if st == stateAutoTryRemote {
				name = constants.EngineRemote
			}
			att, text := o.attempt(ctx, name, req, false)
			res.Attempts = append(res.Attempts, att)
			tried++
			if att.Err == nil && !att.Empty {
				res.Text, res.Engine = text, name
				st = stateDone
				break
			}
			if tried < len(o.order) {
				next := o.autoState(o.order[tried])
				o.logger.Info("ocr.fallback",
					"req_id", reqID,
					"from", string(name),
					"to", string(o.order[tried]),
					"reason", attemptReason(att),
				)
				st = next
				break
			}
			if att.Err == nil && att.Empty {
				res.Engine = name
				res.Kind = constants.KindExtractionEmpty
				st = stateDone
				break
			}
			st = stateExhausted

		case stateExhausted:
			errs := make([]error, 0, len(res.Attempts))
			for _, a := range res.Attempts {
				if a.Err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", a.Engine, a.Err))
				} else if a.Empty {
					errs = append(errs, fmt.Errorf("%s: no text", a.Engine))
				}
			}
			res.Err = common.NewAppError("NO_ENGINE", "every OCR engine failed", fmt.Errorf("%w: %w", common.ErrNoEngineAvailable, errors.Join(errs...)))
			res.Kind = constants.KindNoEngineAvailable
			o.logger.Warn("ocr.exhausted", "req_id", reqID, "error", res.Err)
			st = stateDone
		}
	}
	return res
}

func attemptReason(a Attempt) string {
	if a.Err != nil {
		return string(common.KindOf(a.Err))
	}
	return "empty"
}

// attempt runs one engine. single is true for local/remote modes, where a
// missing remote credential is a configuration error rather than an
// unavailable engine.
func (o *Orchestrator) attempt(ctx context.Context, name constants.EngineName, req Request, single bool) (Attempt, string) {
	start := time.Now()
	att := Attempt{Engine: name}
	eng := o.local
	if name == constants.EngineRemote {
		eng = o.remote
	}

	if eng == nil {
		switch {
		case name == constants.EngineRemote && single:
			att.Err = common.NewAppError("REMOTE_UNCONFIGURED", "remote engine requested but no API key is configured", common.ErrConfig)
		case name == constants.EngineRemote:
			att.Err = common.NewAppError("REMOTE_UNCONFIGURED", "remote engine not configured", common.ErrEngineUnavailable)
		default:
			att.Err = common.NewAppError("LOCAL_UNCONFIGURED", "local engine not configured", common.ErrEngineUnavailable)
		}
		return att, ""
	}
	if err := eng.Available(ctx); err != nil {
		att.Err = err
		att.Elapsed = time.Since(start)
		return att, ""
	}

	text, err := eng.ExtractRaw(ctx, req.Image, req.Language)
	att.Elapsed = time.Since(start)
	if err != nil {
		att.Err = err
		return att, ""
	}
	if strings.TrimSpace(text) == "" {
		text = ""
		att.Empty = true
	}
	o.logger.Debug("ocr.attempt",
		"req_id", common.RequestIDFromContext(ctx),
		"engine", string(name),
		"chars", len(text),
		"elapsed_ms", att.Elapsed.Milliseconds(),
	)
	return att, text
}

// BatchItem is one entry of a batch recognition call.
type BatchItem struct {
	ID      string
	Request Request
}

// RecognizeBatch recognizes every item on a bounded pool. The returned map
// has exactly one Result per item; a failing item never affects others.
// Duplicate IDs are rejected before any work starts.
func (o *Orchestrator) RecognizeBatch(ctx context.Context, items []BatchItem) (map[string]Result, error) {
	work := make([]batch.Item[Request], len(items))
	for i, it := range items {
		work[i] = batch.Item[Request]{ID: it.ID, Value: it.Request}
	}
	outcomes, err := batch.Run(ctx, work, func(ctx context.Context, it batch.Item[Request]) (Result, error) {
		ctx = common.WithRequestID(ctx, it.ID)
		return o.Recognize(ctx, it.Value), nil
	}, batch.WithWorkers(o.workers), batch.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	out := make(map[string]Result, len(outcomes))
	for id, oc := range outcomes {
		r := oc.Value
		if oc.Err != nil {
			r = Result{Kind: constants.KindInternal, Err: oc.Err}
		}
		out[id] = r
	}
	return out, nil
}
