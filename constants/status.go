package constants

// DocumentStatus is the canonical outcome stored for a processed document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusComplete   DocumentStatus = "COMPLETE"   // all mandatory fields found
	DocumentStatusIncomplete DocumentStatus = "INCOMPLETE" // text recognized, some mandatory fields missing
	DocumentStatusEmpty      DocumentStatus = "EMPTY"      // engine returned no text
	DocumentStatusFailed     DocumentStatus = "FAILED"     // terminal failure
)
