package constants

import (
	"fmt"
	"strings"
)

// EngineMode is the caller's choice of OCR backend(s).
type EngineMode string

const (
	EngineModeAuto   EngineMode = "auto"
	EngineModeLocal  EngineMode = "local"
	EngineModeRemote EngineMode = "remote"
)

// ParseEngineMode accepts auto|local|remote (empty means auto).
func ParseEngineMode(input string) (EngineMode, error) {
	switch m := EngineMode(strings.ToLower(strings.TrimSpace(input))); m {
	case "":
		return EngineModeAuto, nil
	case EngineModeAuto, EngineModeLocal, EngineModeRemote:
		return m, nil
	default:
		return "", fmt.Errorf("unknown engine mode %q (want auto, local or remote)", input)
	}
}

// EngineName identifies the adapter that produced a result.
type EngineName string

const (
	EngineNone   EngineName = ""
	EngineLocal  EngineName = "local"
	EngineRemote EngineName = "remote"
)

// Local backends selectable with OCR_LOCAL_BACKEND.
const (
	LocalBackendCLI       = "cli"
	LocalBackendGosseract = "gosseract"
)
