// Package condition turns a photographed ID card into a single-channel
// image an OCR engine reads reliably: grayscale, local contrast
// equalization, non-local means denoising, adaptive binarization and
// skew correction.
package condition

import (
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// Params holds filter parameters. Zero values fall back to defaults.
type Params struct {
	MaxDimension    int     // resize guard bound on either side
	ClipLimit       float64 // CLAHE clip limit
	TileGrid        int     // CLAHE tiles per side
	DenoiseStrength float64 // NLM filter strength h
	TemplateWindow  int     // NLM patch size (odd)
	SearchWindow    int     // NLM search area size (odd)
	BlockSize       int     // adaptive threshold neighbourhood (odd)
	ThresholdC      float64 // constant subtracted from the local mean
}

// DefaultParams mirrors common.DefaultConfig().Image.
func DefaultParams() Params {
	return Params{
		MaxDimension:    2000,
		ClipLimit:       2.0,
		TileGrid:        8,
		DenoiseStrength: 10,
		TemplateWindow:  7,
		SearchWindow:    21,
		BlockSize:       11,
		ThresholdC:      2,
	}
}

// ParamsFromConfig maps the image section of the application config.
func ParamsFromConfig(c common.ImageConfig) Params {
	return Params{
		MaxDimension:    c.MaxDimension,
		ClipLimit:       c.ClipLimit,
		TileGrid:        c.TileGrid,
		DenoiseStrength: c.DenoiseStrength,
		TemplateWindow:  c.TemplateWindow,
		SearchWindow:    c.SearchWindow,
		BlockSize:       c.BlockSize,
		ThresholdC:      c.ThresholdC,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MaxDimension <= 0 {
		p.MaxDimension = d.MaxDimension
	}
	if p.ClipLimit <= 0 {
		p.ClipLimit = d.ClipLimit
	}
	if p.TileGrid <= 0 {
		p.TileGrid = d.TileGrid
	}
	if p.DenoiseStrength <= 0 {
		p.DenoiseStrength = d.DenoiseStrength
	}
	p.TemplateWindow = oddOr(p.TemplateWindow, d.TemplateWindow)
	p.SearchWindow = oddOr(p.SearchWindow, d.SearchWindow)
	p.BlockSize = oddOr(p.BlockSize, d.BlockSize)
	if p.ThresholdC == 0 {
		p.ThresholdC = d.ThresholdC
	}
	return p
}

func oddOr(v, def int) int {
	if v < 3 {
		return def
	}
	if v%2 == 0 {
		return v + 1
	}
	return v
}

// Conditioner applies an ordered list of techniques to a RawImage.
// It holds no mutable state and is safe for concurrent use.
type Conditioner struct {
	params Params
	logger *slog.Logger
}

// NewConditioner creates a conditioner; a nil logger uses slog.Default().
func NewConditioner(params Params, logger *slog.Logger) *Conditioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conditioner{params: params.withDefaults(), logger: logger}
}

// Params returns the effective parameters.
func (c *Conditioner) Params() Params { return c.params }

// Condition returns a new single-channel image derived from raw. With no
// techniques the default order is used. The resize guard always runs first
// and the output is always grayscale, so Grayscale itself is a marker.
func (c *Conditioner) Condition(raw RawImage, techniques ...Technique) (*image.Gray, error) {
	if raw.Image == nil || raw.Width <= 0 || raw.Height <= 0 {
		return nil, common.NewAppError("IMAGE", "empty image", common.ErrImage)
	}
	if len(techniques) == 0 {
		techniques = DefaultTechniques
	}
	if err := validateOrder(techniques); err != nil {
		return nil, err
	}

	start := time.Now()
	src := c.resizeGuard(raw.Image)
	g := toGray(src)
	for _, t := range techniques {
		step := time.Now()
		switch t {
		case Grayscale:
			// already single channel
		case CLAHE:
			g = equalizeCLAHE(g, c.params.ClipLimit, c.params.TileGrid)
		case Denoise:
			g = denoiseNLM(g, c.params.DenoiseStrength, c.params.TemplateWindow, c.params.SearchWindow)
		case AdaptiveThreshold:
			g = adaptiveThreshold(g, c.params.BlockSize, c.params.ThresholdC)
		case Deskew:
			var angle float64
			g, angle = deskew(g)
			c.logger.Debug("condition.deskew", "angle_deg", angle)
		}
		c.logger.Debug("condition.step", "technique", string(t), "elapsed_ms", time.Since(step).Milliseconds())
	}
	c.logger.Debug("condition.done",
		"width", g.Rect.Dx(),
		"height", g.Rect.Dy(),
		"techniques", len(techniques),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return g, nil
}

// resizeGuard downscales proportionally so neither side exceeds MaxDimension.
func (c *Conditioner) resizeGuard(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	bound := c.params.MaxDimension
	if w <= bound && h <= bound {
		return img
	}
	c.logger.Debug("condition.resize", "width", w, "height", h, "max_dimension", bound)
	if w >= h {
		return imaging.Resize(img, bound, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, bound, imaging.Lanczos)
}
