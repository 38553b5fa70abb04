// Package ocr holds the OCR engine adapters: the local tesseract CLI, the
// OCR.space HTTPS service and, behind the gosseract build tag, an
// in-process libtesseract binding.
package ocr

import (
	"context"
	"image"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// Engine is the capability every OCR backend provides.
//
// ExtractRaw returns "" when the engine ran but found no text; that is not
// an error. Failures wrap common.ErrEngineUnavailable, common.ErrEngine,
// common.ErrNetwork or common.ErrService.
type Engine interface {
	Name() constants.EngineName
	Available(ctx context.Context) error
	ExtractRaw(ctx context.Context, img *image.Gray, lang constants.Language) (string, error)
}
