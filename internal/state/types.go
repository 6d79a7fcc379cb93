package state

import "time"

// #region session
// Session is one camera instance's stream, from open to close.
type Session struct {
	SessionID  string
	Instance   int
	HALVersion string
	TableIndex int
	OpenedAt   time.Time
	ClosedAt   time.Time // zero while the stream is open
}

// Open reports whether the session has not been closed yet.
func (s Session) Open() bool {
	return s.ClosedAt.IsZero()
}
// #endregion session

// #region applied-record
// AppliedRecord is one successful apply pass: the scenario chosen and the
// floors the hardware held afterwards.
type AppliedRecord struct {
	ApplyID      string
	SessionID    string
	ScenarioID   int
	ScenarioName string
	Category     string         // "static" | "dynamic" | "external"
	Floors       map[string]int // effective level by resource name
	CPUs         string
	Throttled    bool
	Writes       int
	CreatedAt    time.Time
}
// #endregion applied-record

// #region active-scenario
// ActiveScenario is the latest scenario applied per category for a session.
type ActiveScenario struct {
	SessionID string
	Static    int
	Dynamic   int
	External  int
	UpdatedAt time.Time
}
// #endregion active-scenario
