package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for idcard.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idcard",
		Short: "Extract fields from national identity card images",
		Long: `idcard reads bilingual (French/Arabic) national identity cards.

Each image is conditioned, recognized by a local tesseract binary and/or
the OCR.space service, normalized, and matched against field patterns.
The result carries the extracted record plus warnings for missing
mandatory fields.

Configuration is read from --config, $IDCARD_CONFIG or
$XDG_CONFIG_HOME/idcard-reader/config.yaml, then environment variables.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewProbeCmd())
	cmd.AddCommand(NewDBHealthCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
