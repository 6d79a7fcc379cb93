package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session or record does not exist.
var ErrNotFound = errors.New("not found")

// Fixed-width so text ordering in ORDER BY matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	instance      INTEGER NOT NULL,
	hal_version   TEXT NOT NULL,
	table_index   INTEGER NOT NULL,
	opened_at     TEXT NOT NULL,
	closed_at     TEXT
);

CREATE TABLE IF NOT EXISTS applied_floors (
	apply_id      TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	scenario_id   INTEGER NOT NULL,
	scenario_name TEXT NOT NULL,
	category      TEXT NOT NULL,
	floors_json   TEXT NOT NULL,
	cpus          TEXT,
	throttled     INTEGER NOT NULL DEFAULT 0,
	writes        INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS active_scenario (
	session_id    TEXT PRIMARY KEY,
	static_id     INTEGER NOT NULL DEFAULT -1,
	dynamic_id    INTEGER NOT NULL DEFAULT -1,
	external_id   INTEGER NOT NULL DEFAULT -1,
	updated_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS decision_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	frame         INTEGER NOT NULL,
	category      TEXT NOT NULL,
	action        TEXT NOT NULL,
	scenario_id   INTEGER NOT NULL,
	scenario_name TEXT,
	dual_mode     TEXT,
	ticks         INTEGER NOT NULL DEFAULT -1,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_applied_session ON applied_floors(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_decision_session ON decision_log(session_id, frame);
`
// #endregion schema

// #region store-struct
// Store keeps sessions, apply history and the decision log in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region sessions
// OpenSession records a new stream for instance and seeds its active
// scenario row.
func (s *Store) OpenSession(instance int, halVersion string, tableIndex int) (Session, error) {
	sess := Session{
		SessionID:  uuid.New().String(),
		Instance:   instance,
		HALVersion: halVersion,
		TableIndex: tableIndex,
		OpenedAt:   time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, instance, hal_version, table_index, opened_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.SessionID, sess.Instance, sess.HALVersion, sess.TableIndex,
		sess.OpenedAt.Format(timeLayout),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_scenario (session_id, updated_at) VALUES (?, ?)`,
		sess.SessionID, sess.OpenedAt.Format(timeLayout),
	)
	if err != nil {
		return Session{}, fmt.Errorf("seed active scenario: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("commit: %w", err)
	}
	return sess, nil
}

// CloseSession stamps the session's close time.
func (s *Store) CloseSession(sessionID string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET closed_at = ? WHERE session_id = ? AND closed_at IS NULL`,
		time.Now().UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("close session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// GetSession retrieves one session by ID.
func (s *Store) GetSession(sessionID string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT session_id, instance, hal_version, table_index, opened_at, closed_at
		 FROM sessions WHERE session_id = ?`, sessionID,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return sess, nil
}

// ListSessions returns the most recently opened sessions.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, instance, hal_version, table_index, opened_at, closed_at
		 FROM sessions ORDER BY opened_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var sess Session
	var opened string
	var closed sql.NullString
	if err := sc.Scan(&sess.SessionID, &sess.Instance, &sess.HALVersion, &sess.TableIndex, &opened, &closed); err != nil {
		return Session{}, err
	}
	sess.OpenedAt, _ = time.Parse(timeLayout, opened)
	if closed.Valid {
		sess.ClosedAt, _ = time.Parse(timeLayout, closed.String)
	}
	return sess, nil
}
// #endregion sessions

// #region record-apply
// RecordApply inserts an apply record and moves the session's active
// scenario for the record's category, atomically.
func (s *Store) RecordApply(rec AppliedRecord) (AppliedRecord, error) {
	if rec.ApplyID == "" {
		rec.ApplyID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	column, err := activeColumn(rec.Category)
	if err != nil {
		return AppliedRecord{}, err
	}
	floorsJSON, err := json.Marshal(rec.Floors)
	if err != nil {
		return AppliedRecord{}, fmt.Errorf("marshal floors: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return AppliedRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO applied_floors (apply_id, session_id, scenario_id, scenario_name, category, floors_json, cpus, throttled, writes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ApplyID, rec.SessionID, rec.ScenarioID, rec.ScenarioName, rec.Category,
		string(floorsJSON), nullIfEmpty(rec.CPUs), boolInt(rec.Throttled), rec.Writes,
		rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return AppliedRecord{}, fmt.Errorf("insert apply: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE active_scenario SET `+column+` = ?, updated_at = ? WHERE session_id = ?`,
		rec.ScenarioID, rec.CreatedAt.Format(timeLayout), rec.SessionID,
	)
	if err != nil {
		return AppliedRecord{}, fmt.Errorf("update active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return AppliedRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func activeColumn(category string) (string, error) {
	switch category {
	case "static":
		return "static_id", nil
	case "dynamic":
		return "dynamic_id", nil
	case "external":
		return "external_id", nil
	}
	return "", fmt.Errorf("unknown category %q", category)
}
// #endregion record-apply

// #region active
// GetActive reads the latest applied scenario per category.
func (s *Store) GetActive(sessionID string) (ActiveScenario, error) {
	var a ActiveScenario
	var updated string
	err := s.db.QueryRow(
		`SELECT session_id, static_id, dynamic_id, external_id, updated_at
		 FROM active_scenario WHERE session_id = ?`, sessionID,
	).Scan(&a.SessionID, &a.Static, &a.Dynamic, &a.External, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ActiveScenario{}, fmt.Errorf("get active %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return ActiveScenario{}, fmt.Errorf("get active %s: %w", sessionID, err)
	}
	a.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return a, nil
}
// #endregion active

// #region list-applied
// ListApplied returns the most recent apply records, newest first. An empty
// sessionID lists across all sessions.
func (s *Store) ListApplied(sessionID string, limit int) ([]AppliedRecord, error) {
	query := `SELECT apply_id, session_id, scenario_id, scenario_name, category, floors_json, cpus, throttled, writes, created_at
		 FROM applied_floors`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applied: %w", err)
	}
	defer rows.Close()

	var records []AppliedRecord
	for rows.Next() {
		var rec AppliedRecord
		var floorsJSON, created string
		var cpus sql.NullString
		var throttled int
		if err := rows.Scan(&rec.ApplyID, &rec.SessionID, &rec.ScenarioID, &rec.ScenarioName, &rec.Category,
			&floorsJSON, &cpus, &throttled, &rec.Writes, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(floorsJSON), &rec.Floors); err != nil {
			return nil, fmt.Errorf("unmarshal floors: %w", err)
		}
		rec.CPUs = cpus.String
		rec.Throttled = throttled != 0
		rec.CreatedAt, _ = time.Parse(timeLayout, created)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LastApplied returns the newest apply record of a session.
func (s *Store) LastApplied(sessionID string) (AppliedRecord, error) {
	recs, err := s.ListApplied(sessionID, 1)
	if err != nil {
		return AppliedRecord{}, err
	}
	if len(recs) == 0 {
		return AppliedRecord{}, fmt.Errorf("last applied %s: %w", sessionID, ErrNotFound)
	}
	return recs[0], nil
}
// #endregion list-applied

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
// #endregion helpers
