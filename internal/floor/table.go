package floor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
)

// MaxTables is the number of table slots a platform may describe.
const MaxTables = 3

// #region row
// Row is one scenario's floors plus its CPU affinity descriptor.
type Row struct {
	Floors [ResourceCount]int
	CPUs   string
}

// #endregion row

// #region table-struct
// Table is the {table index, scenario, resource} floor lookup. Rows are set
// while loading the platform file; after that the table is only read.
type Table struct {
	rows       [][]Row
	configured []bool
}

// #endregion table-struct

// #region constructor
// NewTable allocates tableCount empty tables, each with a row per scenario.
func NewTable(tableCount int) (*Table, error) {
	if tableCount < 1 || tableCount > MaxTables {
		return nil, fmt.Errorf("table count %d out of range [1, %d]", tableCount, MaxTables)
	}
	t := &Table{
		rows:       make([][]Row, tableCount),
		configured: make([]bool, catalog.End),
	}
	for i := range t.rows {
		t.rows[i] = make([]Row, catalog.End)
	}
	return t, nil
}

// SetRow stores the floors for one scenario in one table.
func (t *Table) SetRow(idx int, id catalog.ScenarioID, row Row) error {
	if idx < 0 || idx >= len(t.rows) {
		return &TableError{Field: "table index", Value: idx, Limit: len(t.rows)}
	}
	if !id.Valid() {
		return &TableError{Field: "scenario", Value: int(id), Limit: int(catalog.End)}
	}
	t.rows[idx][id] = row
	t.configured[id] = true
	return nil
}

// #endregion constructor

// #region lookups

// TableCount returns the number of configured tables.
func (t *Table) TableCount() int {
	return len(t.rows)
}

// Configured reports whether any table has a row for id.
func (t *Table) Configured(id catalog.ScenarioID) bool {
	if !id.Valid() {
		return false
	}
	return t.configured[id]
}

// clampIndex falls back to table 0 for an out-of-range index.
func (t *Table) clampIndex(idx int) int {
	if idx < 0 || idx >= len(t.rows) {
		slog.Warn("floor: invalid table index, using 0", "idx", idx, "tables", len(t.rows))
		return 0
	}
	return idx
}

// Row returns every floor for id in one read.
func (t *Table) Row(idx int, id catalog.ScenarioID) (Row, error) {
	if !id.Valid() {
		return Row{}, &TableError{Field: "scenario", Value: int(id), Limit: int(catalog.End)}
	}
	return t.rows[t.clampIndex(idx)][id], nil
}

// GetFloor returns one resource floor. An invalid scenario or resource is an
// error; an invalid table index is clamped to table 0.
func (t *Table) GetFloor(idx int, res Resource, id catalog.ScenarioID) (int, error) {
	if res < 0 || res >= ResourceCount {
		return 0, &TableError{Field: "resource", Value: int(res), Limit: int(ResourceCount)}
	}
	row, err := t.Row(idx, id)
	if err != nil {
		return 0, err
	}
	return row.Floors[res], nil
}

// GetAffinity returns the CPU affinity descriptor for id.
func (t *Table) GetAffinity(idx int, id catalog.ScenarioID) (string, error) {
	row, err := t.Row(idx, id)
	if err != nil {
		slog.Warn("floor: affinity lookup failed", "scenario", int(id), "err", err)
		return "", err
	}
	return row.CPUs, nil
}

// #endregion lookups

// #region selection
// Selection records which table the running HAL uses. Selectors refuse to
// run until a table is selected.
type Selection struct {
	mu       sync.Mutex
	idx      int
	selected bool
}

// Select picks the table for halVersion. It is a no-op once a table has been
// selected. An unknown version selects table 0 and returns an error.
func (s *Selection) Select(halVersion string, tableCount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected {
		return s.idx, nil
	}

	var idx int
	var err error
	switch halVersion {
	case HALVersion1_0:
		idx = 0
	case HALVersion3_2:
		idx = 1
	default:
		err = fmt.Errorf("unknown hal version %q", halVersion)
	}

	if idx >= tableCount {
		return 0, &TableError{Field: "table index", Value: idx, Limit: tableCount}
	}

	s.idx = idx
	s.selected = true
	slog.Info("floor: table selected", "idx", idx, "hal", halVersion)
	return idx, err
}

// Index returns the selected table and whether one has been selected.
func (s *Selection) Index() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx, s.selected
}

// Reset clears the selection, as when the last camera closes.
func (s *Selection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = 0
	s.selected = false
}

// #endregion selection
