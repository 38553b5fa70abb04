package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Wrap these with %w so KindOf can classify.
var (
	ErrImage             = errors.New("unreadable or empty image")
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	ErrEngine            = errors.New("ocr engine failed")
	ErrNetwork           = errors.New("ocr service unreachable")
	ErrService           = errors.New("ocr service error")
	ErrNoEngineAvailable = errors.New("no ocr engine available")
	ErrConfig            = errors.New("invalid configuration")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("resource not found")
	ErrDatabase          = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// KindOf maps an error onto the pipeline taxonomy. Order matters:
// NoEngineAvailable wraps the per-engine causes and must win over them.
func KindOf(err error) constants.ErrorKind {
	switch {
	case err == nil:
		return constants.KindNone
	case errors.Is(err, ErrNoEngineAvailable):
		return constants.KindNoEngineAvailable
	case errors.Is(err, ErrImage):
		return constants.KindImage
	case errors.Is(err, ErrEngineUnavailable):
		return constants.KindEngineUnavailable
	case errors.Is(err, ErrNetwork):
		return constants.KindNetwork
	case errors.Is(err, ErrService):
		return constants.KindService
	case errors.Is(err, ErrEngine):
		return constants.KindEngine
	case errors.Is(err, ErrConfig):
		return constants.KindConfig
	case errors.Is(err, ErrInvalidInput):
		return constants.KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return constants.KindNotFound
	case errors.Is(err, ErrDatabase):
		return constants.KindDatabase
	default:
		return constants.KindInternal
	}
}

// gRPC error helpers

// GRPCStatus converts a pipeline error into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch KindOf(err) {
	case constants.KindImage, constants.KindInvalidInput:
		code = codes.InvalidArgument
	case constants.KindEngineUnavailable, constants.KindNoEngineAvailable, constants.KindNetwork:
		code = codes.Unavailable
	case constants.KindService, constants.KindEngine:
		code = codes.Aborted
	case constants.KindConfig:
		code = codes.FailedPrecondition
	case constants.KindNotFound:
		code = codes.NotFound
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
