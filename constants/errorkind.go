package constants

// ErrorKind classifies pipeline outcomes for callers and storage.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindImage             ErrorKind = "image_error"
	KindEngineUnavailable ErrorKind = "engine_unavailable"
	KindEngine            ErrorKind = "engine_error"
	KindNetwork           ErrorKind = "network_error"
	KindService           ErrorKind = "service_error"
	KindNoEngineAvailable ErrorKind = "no_engine_available"
	KindExtractionEmpty   ErrorKind = "extraction_empty" // recoverable, not an error
	KindConfig            ErrorKind = "config_error"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindNotFound          ErrorKind = "not_found"
	KindDatabase          ErrorKind = "database_error"
	KindInternal          ErrorKind = "internal_error"
)
