//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// GosseractEngine runs libtesseract in process. A client is created per
// call; gosseract clients are not safe for concurrent use.
type GosseractEngine struct {
	cfg           TesseractConfig
	logger        *slog.Logger
	clientFactory func() *gosseract.Client
}

// NewGosseractEngine creates the in-process local engine.
func NewGosseractEngine(cfg TesseractConfig, logger *slog.Logger) (*GosseractEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	return &GosseractEngine{cfg: cfg, logger: logger, clientFactory: gosseract.NewClient}, nil
}

func (e *GosseractEngine) Name() constants.EngineName { return constants.EngineLocal }

func (e *GosseractEngine) Available(context.Context) error {
	if gosseract.Version() == "" {
		return common.NewAppError("GOSSERACT", "libtesseract not linked", common.ErrEngineUnavailable)
	}
	return nil
}

func (e *GosseractEngine) ExtractRaw(ctx context.Context, img *image.Gray, lang constants.Language) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", common.NewAppError("GOSSERACT", "cancelled", fmt.Errorf("%w: %v", common.ErrEngine, err))
	}
	if img == nil {
		return "", common.NewAppError("GOSSERACT", "nil image", common.ErrEngine)
	}
	if lang == "" {
		lang = constants.DefaultLanguage
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", common.NewAppError("GOSSERACT", "encode image", fmt.Errorf("%w: %v", common.ErrEngine, err))
	}

	start := time.Now()
	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return "", engineErr("set tessdata prefix", err)
		}
	}
	if err := c.SetLanguage(strings.Split(string(lang), "+")...); err != nil {
		return "", engineErr("set languages", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
		return "", engineErr("set page segmentation mode", err)
	}
	if err := c.SetVariable("preserve_interword_spaces", "1"); err != nil {
		return "", engineErr("set variable", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", engineErr("set image", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", engineErr("recognize text", err)
	}
	text = strings.TrimSpace(text)
	e.logger.Debug("ocr.local.gosseract.done",
		"req_id", common.RequestIDFromContext(ctx),
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func engineErr(msg string, err error) error {
	return common.NewAppError("GOSSERACT", msg, fmt.Errorf("%w: %v", common.ErrEngine, err))
}
