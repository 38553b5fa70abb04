package ocr

import (
	"log/slog"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// TesseractConfigFrom maps the OCR section of the application config.
func TesseractConfigFrom(c common.OCRConfig) TesseractConfig {
	return TesseractConfig{
		Path:        c.TesseractPath,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
		OEM:         c.OEM,
	}
}

// NewLocalEngine builds the local backend named by OCR_LOCAL_BACKEND.
func NewLocalEngine(c common.OCRConfig, logger *slog.Logger) (Engine, error) {
	cfg := TesseractConfigFrom(c)
	switch c.LocalBackend {
	case constants.LocalBackendGosseract:
		e, err := NewGosseractEngine(cfg, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "", constants.LocalBackendCLI:
		return NewTesseractEngine(cfg, logger), nil
	default:
		return nil, common.NewAppError("CONFIG", "unknown local backend "+c.LocalBackend, common.ErrConfig)
	}
}
