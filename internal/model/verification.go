package model

import "time"

// VerificationStatus is the outcome of checking a record's excerpt
// against its source document.
type VerificationStatus string

const (
	VerificationFound      VerificationStatus = "found"
	VerificationNotFound   VerificationStatus = "not_found"
	VerificationFetchError VerificationStatus = "fetch_error"
)

// Verification is the result of one provenance check. Like records,
// verifications are append-only: re-checking a record adds a new row.
type Verification struct {
	ID        string             `json:"id,omitempty"`
	RecordID  string             `json:"record_id"`
	Status    VerificationStatus `json:"status"`
	Detail    string             `json:"detail,omitempty"`
	CheckedAt time.Time          `json:"checked_at"`
}
