package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/addis-analytics/fidata/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// The records and verifications tables are append-only: no UPDATE or
// DELETE statement exists anywhere in this package for either table.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	record_type     TEXT NOT NULL,
	metric_name     TEXT NOT NULL DEFAULT '',
	indicator_code  TEXT NOT NULL DEFAULT '',
	pillar          TEXT NOT NULL DEFAULT '',
	value           TEXT NOT NULL DEFAULT '',
	value_numeric   REAL,
	unit            TEXT NOT NULL DEFAULT '',
	as_of_date      DATETIME,
	source_name     TEXT NOT NULL DEFAULT '',
	source_url      TEXT NOT NULL,
	original_text   TEXT NOT NULL,
	confidence      TEXT NOT NULL,
	collected_by    TEXT NOT NULL,
	collection_date DATETIME NOT NULL,
	notes           TEXT NOT NULL DEFAULT '',
	supersedes      TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verifications (
	id         TEXT PRIMARY KEY,
	record_id  TEXT NOT NULL REFERENCES records(id),
	status     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	checked_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reference_codes (
	code   TEXT PRIMARY KEY,
	label  TEXT NOT NULL DEFAULT '',
	pillar TEXT NOT NULL DEFAULT '',
	unit   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_record_type ON records(record_type);
CREATE INDEX IF NOT EXISTS idx_records_indicator ON records(indicator_code);
CREATE INDEX IF NOT EXISTS idx_records_pillar ON records(pillar);
CREATE INDEX IF NOT EXISTS idx_records_supersedes ON records(supersedes);
CREATE INDEX IF NOT EXISTS idx_verifications_record_id ON verifications(record_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendRecord(ctx context.Context, rec model.Record) (*model.Record, error) {
	if err := validateAppend(ctx, s, &rec); err != nil {
		return nil, err
	}

	rec.ID = uuid.New().String()

	var valueNumeric sql.NullFloat64
	if rec.ValueNumeric != nil {
		valueNumeric = sql.NullFloat64{Float64: *rec.ValueNumeric, Valid: true}
	}
	var asOf sql.NullTime
	if rec.AsOfDate != nil {
		asOf = sql.NullTime{Time: rec.AsOfDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (
			id, record_type, metric_name, indicator_code, pillar,
			value, value_numeric, unit, as_of_date, source_name,
			source_url, original_text, confidence, collected_by,
			collection_date, notes, supersedes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.RecordType), rec.MetricName, rec.IndicatorCode, rec.Pillar,
		rec.Value, valueNumeric, rec.Unit, asOf, rec.SourceName,
		rec.SourceURL, rec.OriginalText, string(rec.Confidence), rec.CollectedBy,
		rec.CollectionDate.UTC(), rec.Notes, rec.Supersedes,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert record")
	}
	return &rec, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecordSQL+` WHERE id = ?`, id)
	return scanRecord(row)
}

const selectRecordSQL = `SELECT id, record_type, metric_name, indicator_code, pillar,
	value, value_numeric, unit, as_of_date, source_name,
	source_url, original_text, confidence, collected_by,
	collection_date, notes, supersedes FROM records`

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query := selectRecordSQL + ` WHERE 1=1`
	var args []any

	if filter.RecordType != "" {
		query += ` AND record_type = ?`
		args = append(args, string(filter.RecordType))
	}
	if filter.IndicatorCode != "" {
		query += ` AND indicator_code = ?`
		args = append(args, filter.IndicatorCode)
	}
	if filter.Pillar != "" {
		query += ` AND pillar = ?`
		args = append(args, filter.Pillar)
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ?`
		args = append(args, string(filter.Confidence))
	}
	if filter.CollectedBy != "" {
		query += ` AND collected_by = ?`
		args = append(args, filter.CollectedBy)
	}
	if filter.ExcludeSuperseded {
		query += ` AND id NOT IN (SELECT supersedes FROM records WHERE supersedes != '')`
	}
	query += ` ORDER BY created_at DESC, id`

	// Limit <= 0 returns the whole log; export, summaries, and verify
	// passes depend on seeing every record. LIMIT -1 is sqlite's
	// "no limit", needed when only an offset is set.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) AppendVerification(ctx context.Context, v model.Verification) (*model.Verification, error) {
	if _, err := s.GetRecord(ctx, v.RecordID); err != nil {
		return nil, eris.Wrapf(err, "verification target %s", v.RecordID)
	}

	v.ID = uuid.New().String()
	if v.CheckedAt.IsZero() {
		v.CheckedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verifications (id, record_id, status, detail, checked_at) VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.RecordID, string(v.Status), v.Detail, v.CheckedAt.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert verification")
	}
	return &v, nil
}

func (s *SQLiteStore) ListVerifications(ctx context.Context, recordID string) ([]model.Verification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, status, detail, checked_at FROM verifications
		 WHERE record_id = ? ORDER BY checked_at DESC`,
		recordID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list verifications")
	}
	defer rows.Close()

	var vs []model.Verification
	for rows.Next() {
		var v model.Verification
		var status string
		if err := rows.Scan(&v.ID, &v.RecordID, &status, &v.Detail, &v.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan verification")
		}
		v.Status = model.VerificationStatus(status)
		vs = append(vs, v)
	}
	return vs, eris.Wrap(rows.Err(), "sqlite: list verifications iterate")
}

func (s *SQLiteStore) ReplaceReferenceCodes(ctx context.Context, codes []model.ReferenceCode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_codes`); err != nil {
		return eris.Wrap(err, "sqlite: clear reference codes")
	}
	for _, c := range codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reference_codes (code, label, pillar, unit) VALUES (?, ?, ?, ?)`,
			c.Code, c.Label, c.Pillar, c.Unit,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert reference code %s", c.Code)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit reference codes")
}

func (s *SQLiteStore) ListReferenceCodes(ctx context.Context) ([]model.ReferenceCode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, label, pillar, unit FROM reference_codes ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reference codes")
	}
	defer rows.Close()

	var codes []model.ReferenceCode
	for rows.Next() {
		var c model.ReferenceCode
		if err := rows.Scan(&c.Code, &c.Label, &c.Pillar, &c.Unit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reference code")
		}
		codes = append(codes, c)
	}
	return codes, eris.Wrap(rows.Err(), "sqlite: list reference codes iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.Record, error) {
	var r model.Record
	var recordType, confidence string
	var valueNumeric sql.NullFloat64
	var asOf sql.NullTime

	err := row.Scan(
		&r.ID, &recordType, &r.MetricName, &r.IndicatorCode, &r.Pillar,
		&r.Value, &valueNumeric, &r.Unit, &asOf, &r.SourceName,
		&r.SourceURL, &r.OriginalText, &confidence, &r.CollectedBy,
		&r.CollectionDate, &r.Notes, &r.Supersedes,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}

	r.RecordType = model.RecordType(recordType)
	r.Confidence = model.Confidence(confidence)
	if valueNumeric.Valid {
		r.ValueNumeric = &valueNumeric.Float64
	}
	if asOf.Valid {
		t := asOf.Time
		r.AsOfDate = &t
	}
	return &r, nil
}
