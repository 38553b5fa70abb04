package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/idcard-reader/internal/core/ocr"
)

// NewProbeCmd creates the probe command.
func NewProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the OCR engines are usable",
		Long: `Probe resolves the local tesseract binary and, when OCR_SPACE_API_KEY
is set, asks OCR.space whether it accepts the key. It exits non-zero
when no engine is usable.`,
		Args: cobra.NoArgs,
		RunE: runProbeCmd,
	}
}

func runProbeCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	usable := 0

	local, err := ocr.NewLocalEngine(cfg.OCR, logger)
	if err == nil {
		err = local.Available(ctx)
	}
	if err != nil {
		fmt.Fprintf(out, "local  (%s): unavailable: %v\n", cfg.OCR.LocalBackend, err)
	} else {
		usable++
		line := "ok"
		if t, ok := local.(*ocr.TesseractEngine); ok {
			line = "ok, " + t.Version(ctx)
		}
		fmt.Fprintf(out, "local  (%s): %s\n", cfg.OCR.LocalBackend, line)
	}

	if cfg.Remote.APIKey == "" {
		fmt.Fprintln(out, "remote (ocr.space): not configured (set OCR_SPACE_API_KEY)")
	} else {
		remote, err := ocr.NewOCRSpaceEngine(ocr.OCRSpaceConfigFrom(cfg.Remote), logger)
		if err == nil {
			err = remote.ValidateKey(ctx)
		}
		if err != nil {
			fmt.Fprintf(out, "remote (ocr.space): rejected: %v\n", err)
		} else {
			usable++
			fmt.Fprintln(out, "remote (ocr.space): ok, key accepted")
		}
	}

	if usable == 0 {
		return errors.New("no OCR engine is usable")
	}
	return nil
}
