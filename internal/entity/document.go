package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// Document is a processed identity card for data transfer between layers.
// Dates are ISO YYYY-MM-DD strings; nil fields were not extracted.
type Document struct {
	ID             uuid.UUID                `json:"id"`
	RequestID      string                   `json:"request_id"`
	DocumentType   string                   `json:"document_type"`
	Source         string                   `json:"source"`
	Engine         constants.EngineName     `json:"engine"`
	Status         constants.DocumentStatus `json:"status"`
	IDNumber       *string                  `json:"id_number,omitempty"`
	FullName       *string                  `json:"full_name,omitempty"`
	DateOfBirth    *string                  `json:"date_of_birth,omitempty"`
	PlaceOfBirth   *string                  `json:"place_of_birth,omitempty"`
	Gender         *string                  `json:"gender,omitempty"`
	Address        *string                  `json:"address,omitempty"`
	ExpiryDate     *string                  `json:"expiry_date,omitempty"`
	NormalizedText string                   `json:"normalized_text"`
	Warnings       []string                 `json:"warnings,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}
