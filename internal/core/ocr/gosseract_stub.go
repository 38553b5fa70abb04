//go:build !gosseract

package ocr

import (
	"context"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// GosseractEngine is unavailable unless built with -tags gosseract.
type GosseractEngine struct{}

// NewGosseractEngine reports that this binary was built without libtesseract.
func NewGosseractEngine(TesseractConfig, *slog.Logger) (*GosseractEngine, error) {
	return nil, errGosseractMissing
}

var errGosseractMissing = common.NewAppError("GOSSERACT",
	"built without the gosseract tag; rebuild with -tags gosseract or use OCR_LOCAL_BACKEND=cli",
	common.ErrEngineUnavailable)

func (e *GosseractEngine) Name() constants.EngineName { return constants.EngineLocal }

func (e *GosseractEngine) Available(context.Context) error { return errGosseractMissing }

func (e *GosseractEngine) ExtractRaw(context.Context, *image.Gray, constants.Language) (string, error) {
	return "", errGosseractMissing
}
