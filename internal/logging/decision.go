package logging

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const defaultLimit = 100

// #region log-decision
// LogDecision writes a decision entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (session_id, frame, category, action, scenario_id, scenario_name, dual_mode, ticks, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Frame,
		entry.Category,
		entry.Action,
		entry.ScenarioID,
		nullIfEmpty(entry.ScenarioName),
		nullIfEmpty(entry.DualMode),
		entry.Ticks,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region list-decisions
// ListDecisions returns logged decisions in insertion order, most recent
// last, capped at f.Limit (100 when unset).
func ListDecisions(db *sql.DB, f Filter) ([]DecisionEntry, error) {
	var where []string
	var args []any
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `SELECT session_id, frame, category, action, scenario_id, scenario_name, dual_mode, ticks, reason, created_at
		FROM (SELECT * FROM decision_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT ?) ORDER BY id ASC`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var name, mode, reason sql.NullString
		var created string
		if err := rows.Scan(&e.SessionID, &e.Frame, &e.Category, &e.Action, &e.ScenarioID,
			&name, &mode, &e.Ticks, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.ScenarioName = name.String
		e.DualMode = mode.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
