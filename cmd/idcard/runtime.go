package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/internal/app"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/core/condition"
	"github.com/joseph-ayodele/idcard-reader/internal/ingest"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, _ = cmd.Root().PersistentFlags().GetString("config")
	}
	return path
}

// loadConfig reads configuration and installs the process logger on stderr.
func loadConfig(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(getConfigFlag(cmd))
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if getVerboseFlag(cmd) {
		level = "debug"
	}
	logger := common.NewLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// addPipelineFlags registers the per-request overrides shared by the
// processing commands.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("lang", "l", "", "OCR language: ara, fra or ara+fra (default from config)")
	cmd.Flags().StringP("mode", "m", "", "Engine mode: auto, local or remote (default from config)")
	cmd.Flags().StringP("techniques", "t", "",
		"Comma separated conditioning steps (grayscale,clahe,denoise,adaptive_threshold,deskew)")
	cmd.Flags().Bool("save", false, "Persist processed documents to the configured database")
	cmd.Flags().Bool("heic", false, "Accept HEIC/HEIF input through an external converter")
	cmd.Flags().String("heic-converter", "heif-convert", "HEIC converter: heif-convert, magick or sips")
}

// pipelineOptions applies --lang and --mode onto cfg and returns the app
// options the flags ask for.
func pipelineOptions(cmd *cobra.Command, cfg *common.Config) ([]app.Option, error) {
	if lang, _ := cmd.Flags().GetString("lang"); lang != "" {
		cfg.OCR.Language = lang
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.OCR.Mode = mode
	}
	var opts []app.Option
	if raw, _ := cmd.Flags().GetString("techniques"); raw != "" {
		ts, err := condition.ParseTechniques(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithTechniques(ts))
	}
	if save, _ := cmd.Flags().GetBool("save"); save {
		opts = append(opts, app.WithStore())
	}
	return opts, nil
}

// newLoader builds the file loader for --heic/--heic-converter.
func newLoader(cmd *cobra.Command, logger *slog.Logger) *ingest.Loader {
	var opts []ingest.LoaderOption
	if heic, _ := cmd.Flags().GetBool("heic"); heic {
		name, _ := cmd.Flags().GetString("heic-converter")
		opts = append(opts,
			ingest.WithHEICConverter(name),
			ingest.WithCacheDir(filepath.Join(common.XDGDataDir(), "heic-cache")),
		)
	}
	return ingest.NewLoader(logger, opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openOutput returns stdout for an empty path, otherwise a created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided on purpose
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// resultView is the JSON shape printed for one processed image.
type resultView struct {
	core.Result
	Error string `json:"error,omitempty"`
}

func writeResult(enc *json.Encoder, res core.Result) error {
	return enc.Encode(resultView{Result: res, Error: res.ErrMessage()})
}
