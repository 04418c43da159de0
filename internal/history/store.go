package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/purchasing-tools/po-extract/constants"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	pages       INTEGER NOT NULL,
	analyzed    INTEGER,
	failed      INTEGER,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE TABLE IF NOT EXISTS pages (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	items       INTEGER NOT NULL,
	error       TEXT,
	status_code INTEGER,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS pages_run_idx ON pages(run_id);
`

// Store keeps run and per-page outcomes in a local sqlite file so permanent
// failures stay queryable after the process exits.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	logger.Info("history.open", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) StartRun(ctx context.Context, id uuid.UUID, kind string, pages int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, pages, started_at) VALUES (?, ?, ?, ?)`,
		id.String(), kind, pages, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) RecordPage(ctx context.Context, runID uuid.UUID, source string, status constants.PageStatus, items int, errMsg string, statusCode int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (run_id, source, status, items, error, status_code, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID.String(), source, string(status), items, errMsg, statusCode,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, analyzed, failed int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET analyzed = ?, failed = ?, finished_at = ? WHERE id = ?`,
		analyzed, failed, time.Now().UTC().Format(time.RFC3339), id.String(),
	)
	return err
}

// FailedPages lists the permanently failed pages of one run.
func (s *Store) FailedPages(ctx context.Context, runID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source FROM pages WHERE run_id = ? AND status = ? ORDER BY recorded_at`,
		runID.String(), string(constants.PageStatusFailed),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("history.rows_close_error", "error", err)
		}
	}()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
