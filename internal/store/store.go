// Package store persists the append-only enrichment log.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/addis-analytics/fidata/internal/model"
)

// ErrNotFound is returned when a record or verification does not exist.
var ErrNotFound = eris.New("not found")

// RecordFilter specifies criteria for listing records.
// A Limit of zero or less returns every matching record.
type RecordFilter struct {
	RecordType        model.RecordType `json:"record_type,omitempty"`
	IndicatorCode     string           `json:"indicator_code,omitempty"`
	Pillar            string           `json:"pillar,omitempty"`
	Confidence        model.Confidence `json:"confidence,omitempty"`
	CollectedBy       string           `json:"collected_by,omitempty"`
	ExcludeSuperseded bool             `json:"exclude_superseded,omitempty"`
	Limit             int              `json:"limit,omitempty"`
	Offset            int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment log.
//
// The log is append-only: there are no update or delete operations for
// records or verifications. A correction is a new record whose Supersedes
// field names the record it replaces.
type Store interface {
	// Records
	AppendRecord(ctx context.Context, rec model.Record) (*model.Record, error)
	GetRecord(ctx context.Context, id string) (*model.Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error)

	// Verifications
	AppendVerification(ctx context.Context, v model.Verification) (*model.Verification, error)
	ListVerifications(ctx context.Context, recordID string) ([]model.Verification, error)

	// Reference codes (lookup metadata, not part of the log)
	ReplaceReferenceCodes(ctx context.Context, codes []model.ReferenceCode) error
	ListReferenceCodes(ctx context.Context) ([]model.ReferenceCode, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// validateAppend runs the shared pre-insert checks for both drivers:
// the record must pass completeness validation, and a supersedes target
// must name an existing record.
func validateAppend(ctx context.Context, s Store, rec *model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.Supersedes != "" {
		if _, err := s.GetRecord(ctx, rec.Supersedes); err != nil {
			return eris.Wrapf(err, "supersedes target %s", rec.Supersedes)
		}
	}
	return nil
}
