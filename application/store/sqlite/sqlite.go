// Package sqlite keeps collected points in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"container-monitor/application/influx"

	"github.com/benbjohnson/clock"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS samples (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	measurement  TEXT NOT NULL,
	tags         TEXT NOT NULL, -- JSON object
	fields       TEXT NOT NULL, -- JSON object
	timestamp_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_samples_measurement_ts ON samples(measurement, timestamp_ns);
`

type Config struct {
	// Path of the database file. Parent directories are created.
	DBPath string

	// WAL enables WAL journal mode.
	WAL bool
}

// Sample is a stored point.
// Numeric field values come back as float64.
type Sample struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Timestamp   time.Time
}

type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// New opens the database, creating it if needed.
func New(cfg Config, clock clock.Clock) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating db directory")
	}

	dsn := cfg.DBPath + "?_busy_timeout=5000"
	if cfg.WAL {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, clock: clock}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing schema")
	}

	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "executing schema")
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, "schema_version", schemaVersion)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Write inserts points in a single transaction.
// Points without a timestamp get the current time.
func (s *Store) Write(ctx context.Context, points []influx.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (measurement, tags, fields, timestamp_ns) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing insert")
	}
	defer stmt.Close()

	now := s.clock.Now()
	for _, p := range points {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return errors.Wrap(err, "encoding tags")
		}
		fields, err := json.Marshal(p.Fields)
		if err != nil {
			return errors.Wrap(err, "encoding fields")
		}

		ts := p.Timestamp
		if ts.IsZero() {
			ts = now
		}

		if _, err := stmt.ExecContext(ctx, p.Measurement, string(tags), string(fields), ts.UnixNano()); err != nil {
			return errors.Wrapf(err, "inserting %s point", p.Measurement)
		}
	}

	return errors.Wrap(tx.Commit(), "committing")
}

// Samples returns the latest samples of measurement, newest first.
// limit <= 0 returns everything.
func (s *Store) Samples(ctx context.Context, measurement string, limit int) ([]Sample, error) {
	query := `SELECT measurement, tags, fields, timestamp_ns FROM samples WHERE measurement = ? ORDER BY timestamp_ns DESC, id DESC`
	args := []any{measurement}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying samples")
	}
	defer rows.Close()

	samples := make([]Sample, 0)
	for rows.Next() {
		var (
			sample         Sample
			tags, fields   string
			timestampNanos int64
		)
		if err := rows.Scan(&sample.Measurement, &tags, &fields, &timestampNanos); err != nil {
			return nil, errors.Wrap(err, "scanning sample")
		}

		if err := json.Unmarshal([]byte(tags), &sample.Tags); err != nil {
			return nil, errors.Wrap(err, "decoding tags")
		}
		if err := json.Unmarshal([]byte(fields), &sample.Fields); err != nil {
			return nil, errors.Wrap(err, "decoding fields")
		}
		sample.Timestamp = time.Unix(0, timestampNanos)

		samples = append(samples, sample)
	}

	return samples, errors.Wrap(rows.Err(), "iterating samples")
}
