package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// convertHEIC converts a HEIC/HEIF file to PNG bytes. With a cache dir the
// PNG is kept at {cacheDir}/{hashHex}.png and reused on later calls.
func (l *Loader) convertHEIC(ctx context.Context, in, hashHex string) ([]byte, error) {
	var cached string
	if l.cacheDir != "" && hashHex != "" {
		cached = filepath.Join(l.cacheDir, hashHex+".png")
		if data, err := os.ReadFile(cached); err == nil {
			l.logger.Debug("using cached heic->png", "cache", cached)
			return data, nil
		}
		if err := os.MkdirAll(l.cacheDir, 0o750); err != nil {
			return nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "idcard-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	out := filepath.Join(tmpDir, "card.png")

	var args []string
	switch l.converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, fmt.Errorf("HEIC not supported: converter must be one of heif-convert | magick | sips, got %q", l.converter)
	}
	if _, errb, err := l.runner.Run(ctx, l.converter, l.logger, args...); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", l.converter, err, errb)
	}

	data, err := os.ReadFile(out) //nolint:gosec // path is inside our temp dir
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if cached != "" {
		if err := os.WriteFile(cached, data, 0o600); err != nil {
			l.logger.Warn("failed to cache heic->png", "cache", cached, "error", err)
		}
	}
	return data, nil
}
