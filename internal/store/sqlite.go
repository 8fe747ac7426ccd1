package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/rshade/carbonledger/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS activities (
	id               TEXT PRIMARY KEY,
	client_id        TEXT NOT NULL,
	node_id          TEXT NOT NULL,
	scope_identifier TEXT NOT NULL,
	input_type       TEXT NOT NULL,
	ts               INTEGER NOT NULL,
	status           TEXT NOT NULL,
	doc              BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_stream
	ON activities (client_id, node_id, scope_identifier, input_type, ts, id);
CREATE INDEX IF NOT EXISTS idx_activities_client_ts ON activities (client_id, ts);

CREATE TABLE IF NOT EXISTS flowcharts (
	client_id TEXT PRIMARY KEY,
	doc       BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS summaries (
	id        TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	version   INTEGER NOT NULL,
	doc       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_client ON summaries (client_id);

CREATE TABLE IF NOT EXISTS targets (
	client_id   TEXT NOT NULL,
	target_type TEXT NOT NULL,
	doc         BLOB NOT NULL,
	PRIMARY KEY (client_id, target_type)
);
`

// SQLiteStore implements Store on a SQLite database. Documents live in a
// doc column; the other columns exist for filtering and ordering.
type SQLiteStore struct {
	conn *sql.DB
	Path string
}

// OpenSQLite opens the database at path, enabling WAL for file databases,
// and applies the schema. Use ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{conn: conn, Path: path}, nil
}

func scanRows[T any](rows *sql.Rows, kind string) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		v, err := decode[T](kind, data)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, kind, query string, args ...any) (*T, error) {
	var data []byte
	err := q.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return decode[T](kind, data)
}

// PutActivity implements ActivityStore.
func (s *SQLiteStore) PutActivity(ctx context.Context, r *models.ActivityRecord) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	data, err := encode("activity", r)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO activities (id, client_id, node_id, scope_identifier, input_type, ts, status, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			node_id = excluded.node_id,
			scope_identifier = excluded.scope_identifier,
			input_type = excluded.input_type,
			ts = excluded.ts,
			status = excluded.status,
			doc = excluded.doc`,
		r.ID, r.ClientID, r.NodeID, r.ScopeIdentifier, string(r.InputType),
		r.Timestamp.UnixNano(), string(r.ProcessingStatus), data)
	if err != nil {
		return fmt.Errorf("put activity %s: %w", r.ID, err)
	}
	return nil
}

// GetActivity implements ActivityStore.
func (s *SQLiteStore) GetActivity(ctx context.Context, id string) (*models.ActivityRecord, error) {
	return queryOne[models.ActivityRecord](ctx, s.conn, "activity", `SELECT doc FROM activities WHERE id = ?`, id)
}

// DeleteActivity implements ActivityStore.
func (s *SQLiteStore) DeleteActivity(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStream implements ActivityStore.
func (s *SQLiteStore) ListStream(ctx context.Context, key models.StreamKey) ([]*models.ActivityRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT doc FROM activities
		WHERE client_id = ? AND node_id = ? AND scope_identifier = ? AND input_type = ?
		ORDER BY ts, id`,
		key.ClientID, key.NodeID, key.ScopeIdentifier, string(key.InputType))
	if err != nil {
		return nil, fmt.Errorf("list stream %s: %w", key, err)
	}
	return scanRows[models.ActivityRecord](rows, "activity")
}

// QueryActivities implements ActivityStore.
func (s *SQLiteStore) QueryActivities(ctx context.Context, q ActivityQuery) ([]*models.ActivityRecord, error) {
	query := `SELECT doc FROM activities WHERE 1 = 1`
	var args []any
	add := func(clause string, v any) {
		query += " AND " + clause
		args = append(args, v)
	}
	if q.ClientID != "" {
		add("client_id = ?", q.ClientID)
	}
	if q.NodeID != "" {
		add("node_id = ?", q.NodeID)
	}
	if q.ScopeIdentifier != "" {
		add("scope_identifier = ?", q.ScopeIdentifier)
	}
	if q.Status != "" {
		add("status = ?", string(q.Status))
	}
	if !q.From.IsZero() {
		add("ts >= ?", q.From.UnixNano())
	}
	if !q.To.IsZero() {
		add("ts < ?", q.To.UnixNano())
	}
	rows, err := s.conn.QueryContext(ctx, query+" ORDER BY ts, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	return scanRows[models.ActivityRecord](rows, "activity")
}

// PutFlowchart implements FlowchartStore.
func (s *SQLiteStore) PutFlowchart(ctx context.Context, f *models.Flowchart) error {
	if !f.IsActive {
		return nil
	}
	data, err := encode("flowchart", f)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO flowcharts (client_id, doc) VALUES (?, ?)
		ON CONFLICT(client_id) DO UPDATE SET doc = excluded.doc`, f.ClientID, data)
	if err != nil {
		return fmt.Errorf("put flowchart %s: %w", f.ClientID, err)
	}
	return nil
}

// GetActiveFlowchart implements FlowchartStore.
func (s *SQLiteStore) GetActiveFlowchart(ctx context.Context, clientID string) (*models.Flowchart, error) {
	return queryOne[models.Flowchart](ctx, s.conn, "flowchart", `SELECT doc FROM flowcharts WHERE client_id = ?`, clientID)
}

// GetSummary implements SummaryStore.
func (s *SQLiteStore) GetSummary(ctx context.Context, clientID string, p models.Period) (*models.EmissionSummary, error) {
	return queryOne[models.EmissionSummary](ctx, s.conn, "summary",
		`SELECT doc FROM summaries WHERE id = ?`, models.SummaryID(clientID, p))
}

// UpsertSummary implements SummaryStore.
func (s *SQLiteStore) UpsertSummary(ctx context.Context, sum *models.EmissionSummary) (bool, error) {
	sum.ID = models.SummaryID(sum.ClientID, sum.Period)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var prev int
	err = tx.QueryRowContext(ctx, `SELECT version FROM summaries WHERE id = ?`, sum.ID).Scan(&prev)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("read summary version: %w", err)
	}
	sum.Metadata.Version = prev + 1

	data, err := encode("summary", sum)
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (id, client_id, version, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, doc = excluded.doc`,
		sum.ID, sum.ClientID, sum.Metadata.Version, data)
	if err != nil {
		return false, fmt.Errorf("write summary %s: %w", sum.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit summary %s: %w", sum.ID, err)
	}
	return created, nil
}

// ListSummaries implements SummaryStore.
func (s *SQLiteStore) ListSummaries(ctx context.Context, clientID string) ([]*models.EmissionSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT doc FROM summaries WHERE client_id = ? ORDER BY id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return scanRows[models.EmissionSummary](rows, "summary")
}

// PutTarget implements TargetStore.
func (s *SQLiteStore) PutTarget(ctx context.Context, t *models.SbtiTarget) error {
	data, err := encode("target", t)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO targets (client_id, target_type, doc) VALUES (?, ?, ?)
		ON CONFLICT(client_id, target_type) DO UPDATE SET doc = excluded.doc`,
		t.ClientID, string(t.TargetType), data)
	if err != nil {
		return fmt.Errorf("put target: %w", err)
	}
	return nil
}

// GetTarget implements TargetStore.
func (s *SQLiteStore) GetTarget(ctx context.Context, clientID string, tt models.TargetType) (*models.SbtiTarget, error) {
	return queryOne[models.SbtiTarget](ctx, s.conn, "target",
		`SELECT doc FROM targets WHERE client_id = ? AND target_type = ?`, clientID, string(tt))
}

// ListTargets implements TargetStore.
func (s *SQLiteStore) ListTargets(ctx context.Context, clientID string) ([]*models.SbtiTarget, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT doc FROM targets WHERE client_id = ? ORDER BY target_type`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	return scanRows[models.SbtiTarget](rows, "target")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
