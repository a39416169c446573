package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/addis-analytics/fidata/internal/model"
)

// pgxPool is the subset of pgxpool.Pool used by PostgresStore.
// pgxmock.PgxPoolIface satisfies it for unit tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	record_type     TEXT NOT NULL,
	metric_name     TEXT NOT NULL DEFAULT '',
	indicator_code  TEXT NOT NULL DEFAULT '',
	pillar          TEXT NOT NULL DEFAULT '',
	value           TEXT NOT NULL DEFAULT '',
	value_numeric   DOUBLE PRECISION,
	unit            TEXT NOT NULL DEFAULT '',
	as_of_date      TIMESTAMPTZ,
	source_name     TEXT NOT NULL DEFAULT '',
	source_url      TEXT NOT NULL,
	original_text   TEXT NOT NULL,
	confidence      TEXT NOT NULL,
	collected_by    TEXT NOT NULL,
	collection_date TIMESTAMPTZ NOT NULL,
	notes           TEXT NOT NULL DEFAULT '',
	supersedes      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verifications (
	id         TEXT PRIMARY KEY,
	record_id  TEXT NOT NULL REFERENCES records(id),
	status     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	checked_at TIMESTAMPTZ NOT NULL
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AppendRecord(ctx context.Context, rec model.Record) (*model.Record, error) {
	if err := validateAppend(ctx, s, &rec); err != nil {
		return nil, err
	}

	rec.ID = uuid.New().String()

	var asOf *time.Time
	if rec.AsOfDate != nil {
		t := rec.AsOfDate.UTC()
		asOf = &t
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO records (
			id, record_type, metric_name, indicator_code, pillar,
			value, value_numeric, unit, as_of_date, source_name,
			source_url, original_text, confidence, collected_by,
			collection_date, notes, supersedes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		rec.ID, string(rec.RecordType), rec.MetricName, rec.IndicatorCode, rec.Pillar,
		rec.Value, rec.ValueNumeric, rec.Unit, asOf, rec.SourceName,
		rec.SourceURL, rec.OriginalText, string(rec.Confidence), rec.CollectedBy,
		rec.CollectionDate.UTC(), rec.Notes, rec.Supersedes,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert record")
	}
	return &rec, nil
}

const pgSelectRecordSQL = `SELECT id, record_type, metric_name, indicator_code, pillar,
	value, value_numeric, unit, as_of_date, source_name,
	source_url, original_text, confidence, collected_by,
	collection_date, notes, supersedes FROM records`

func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	row := s.pool.QueryRow(ctx, pgSelectRecordSQL+` WHERE id = $1`, id)
	return scanPgRecord(row)
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query := pgSelectRecordSQL + ` WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.RecordType != "" {
		query += ` AND record_type = ` + arg(string(filter.RecordType))
	}
	if filter.IndicatorCode != "" {
		query += ` AND indicator_code = ` + arg(filter.IndicatorCode)
	}
	if filter.Pillar != "" {
		query += ` AND pillar = ` + arg(filter.Pillar)
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ` + arg(string(filter.Confidence))
	}
	if filter.CollectedBy != "" {
		query += ` AND collected_by = ` + arg(filter.CollectedBy)
	}
	if filter.ExcludeSuperseded {
		query += ` AND id NOT IN (SELECT supersedes FROM records WHERE supersedes != '')`
	}
	query += ` ORDER BY created_at DESC, id`

	// Limit <= 0 returns the whole log; export, summaries, and verify
	// passes depend on seeing every record.
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanPgRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) AppendVerification(ctx context.Context, v model.Verification) (*model.Verification, error) {
	if _, err := s.GetRecord(ctx, v.RecordID); err != nil {
		return nil, eris.Wrapf(err, "verification target %s", v.RecordID)
	}

	v.ID = uuid.New().String()
	if v.CheckedAt.IsZero() {
		v.CheckedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO verifications (id, record_id, status, detail, checked_at) VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.RecordID, string(v.Status), v.Detail, v.CheckedAt.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert verification")
	}
	return &v, nil
}

func (s *PostgresStore) ListVerifications(ctx context.Context, recordID string) ([]model.Verification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, record_id, status, detail, checked_at FROM verifications
		 WHERE record_id = $1 ORDER BY checked_at DESC`,
		recordID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list verifications")
	}
	defer rows.Close()

	var vs []model.Verification
	for rows.Next() {
		var v model.Verification
		var status string
		if err := rows.Scan(&v.ID, &v.RecordID, &status, &v.Detail, &v.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan verification")
		}
		v.Status = model.VerificationStatus(status)
		vs = append(vs, v)
	}
	return vs, eris.Wrap(rows.Err(), "postgres: list verifications iterate")
}

func (s *PostgresStore) ReplaceReferenceCodes(ctx context.Context, codes []model.ReferenceCode) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM reference_codes`); err != nil {
		return eris.Wrap(err, "postgres: clear reference codes")
	}
	for _, c := range codes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO reference_codes (code, label, pillar, unit) VALUES ($1, $2, $3, $4)`,
			c.Code, c.Label, c.Pillar, c.Unit,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert reference code %s", c.Code)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit reference codes")
}

func (s *PostgresStore) ListReferenceCodes(ctx context.Context) ([]model.ReferenceCode, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, label, pillar, unit FROM reference_codes ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reference codes")
	}
	defer rows.Close()

	var codes []model.ReferenceCode
	for rows.Next() {
		var c model.ReferenceCode
		if err := rows.Scan(&c.Code, &c.Label, &c.Pillar, &c.Unit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reference code")
		}
		codes = append(codes, c)
	}
	return codes, eris.Wrap(rows.Err(), "postgres: list reference codes iterate")
}

// helpers

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func scanPgRecord(row pgx.Row) (*model.Record, error) {
	var r model.Record
	var recordType, confidence string
	var valueNumeric *float64
	var asOf *time.Time

	err := row.Scan(
		&r.ID, &recordType, &r.MetricName, &r.IndicatorCode, &r.Pillar,
		&r.Value, &valueNumeric, &r.Unit, &asOf, &r.SourceName,
		&r.SourceURL, &r.OriginalText, &confidence, &r.CollectedBy,
		&r.CollectionDate, &r.Notes, &r.Supersedes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan record")
	}

	r.RecordType = model.RecordType(recordType)
	r.Confidence = model.Confidence(confidence)
	r.ValueNumeric = valueNumeric
	r.AsOfDate = asOf
	return &r, nil
}
