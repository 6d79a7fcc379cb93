package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	SessionID    string
	Frame        int64
	Category     string // "static" | "dynamic" | "external" | "dual"
	Action       string // "select" | "hold" | "restore" | "skip" | "throttle" | "error"
	ScenarioID   int
	ScenarioName string
	DualMode     string
	Ticks        int // remaining hysteresis, -1 when disabled
	Reason       string
	CreatedAt    time.Time
}
// #endregion decision-entry

// #region decision-filter
// Filter narrows ListDecisions. Zero values match everything.
type Filter struct {
	SessionID string
	Category  string
	Limit     int
}
// #endregion decision-filter
