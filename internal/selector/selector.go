package selector

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
)

// Dynamic selector actions.
const (
	ActionSelect        = "select"
	ActionHold          = "hold"
	ActionNotApplicable = "not_applicable"
)

// Slot indexes, reported in diagnostics.
const (
	SlotStatic = iota
	SlotDynamic
	SlotExternal
)

// DynamicGate carries the frame state that decides whether dynamic
// selection runs at all.
type DynamicGate struct {
	Reprocessing bool // frame is on the reprocessing (capture) path
	Fusing       bool // dual tracker is in Sync or Overrun
}

// DynamicDecision is the outcome of one SelectDynamic call.
type DynamicDecision struct {
	Action   string
	Scenario catalog.ScenarioID
	Reason   string
	Ticks    int
}

// Selector resolves scenarios for one camera instance. All three slots are
// guarded by one mutex held across each read-decrement-classify-write.
type Selector struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	table     *floor.Table
	selection *floor.Selection

	static   Slot
	dynamic  Slot
	external Slot
}

// New creates a Selector. The catalog and table are shared read-only.
func New(cat *catalog.Catalog, table *floor.Table, sel *floor.Selection) *Selector {
	return &Selector{
		catalog:   cat,
		table:     table,
		selection: sel,
		static:    newSlot(SlotStatic),
		dynamic:   newSlot(SlotDynamic),
		external:  newSlot(SlotExternal),
	}
}

func (s *Selector) tableSelected() bool {
	_, ok := s.selection.Index()
	return ok
}

// #region static
// SelectStatic classifies snap and writes the static slot unconditionally.
func (s *Selector) SelectStatic(snap snapshot.Snapshot) (catalog.ScenarioID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tableSelected() {
		return catalog.Unset, ErrTableNotSelected
	}
	id, err := Classify(snap)
	if err != nil {
		return catalog.Unset, fmt.Errorf("static: %w", err)
	}
	s.static.set(id, s.catalog.Ticks(id))
	return id, nil
}

// #endregion static

// #region dynamic
// SelectDynamic runs once per frame. A counting slot is decremented first;
// while ticks remain the held scenario is returned without reclassifying.
// The snapshot is always classified as a capture. Classification errors
// leave the slot untouched.
func (s *Selector) SelectDynamic(snap snapshot.Snapshot, gate DynamicGate) (DynamicDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tableSelected() {
		return DynamicDecision{Action: ActionNotApplicable, Scenario: catalog.Unset, Reason: "table not selected", Ticks: -1}, ErrTableNotSelected
	}

	if next, expired := s.dynamic.Ticks.step(); expired {
		s.dynamic.clear()
	} else {
		s.dynamic.Ticks = next
	}

	if reason := s.suppressed(gate); reason != "" {
		return DynamicDecision{
			Action:   ActionNotApplicable,
			Scenario: s.dynamic.Current,
			Reason:   reason,
			Ticks:    s.dynamic.Ticks.Int(),
		}, nil
	}

	if s.dynamic.Current != catalog.Unset && s.dynamic.Ticks.Remaining() > 0 {
		return DynamicDecision{
			Action:   ActionHold,
			Scenario: s.dynamic.Current,
			Reason:   fmt.Sprintf("hysteresis %d frames left", s.dynamic.Ticks.Remaining()),
			Ticks:    s.dynamic.Ticks.Int(),
		}, nil
	}

	if snap.Valid() {
		snap.Mode = snapshot.ModeCapture
	}
	id, err := Classify(snap)
	if err != nil {
		return DynamicDecision{
			Action:   ActionHold,
			Scenario: s.dynamic.Current,
			Reason:   "classification failed, keeping previous",
			Ticks:    s.dynamic.Ticks.Int(),
		}, fmt.Errorf("dynamic: %w", err)
	}
	s.dynamic.set(id, s.catalog.Ticks(id))
	return DynamicDecision{
		Action:   ActionSelect,
		Scenario: id,
		Reason:   "classified",
		Ticks:    s.dynamic.Ticks.Int(),
	}, nil
}

func (s *Selector) suppressed(gate DynamicGate) string {
	switch {
	case !gate.Reprocessing:
		return "not reprocessing"
	case gate.Fusing:
		return "dual fusion active"
	case s.static.Current == catalog.RearSingleWideSSM, s.static.Current == catalog.RearSingleUltraWideSSM:
		return "static scenario excludes dynamic"
	}
	return ""
}

// #endregion dynamic

// #region external
// SelectExternal resolves the auxiliary sensor path. When the table carries
// no external scenario at all, Max is returned so the caller never blocks.
func (s *Selector) SelectExternal(snap snapshot.Snapshot) (catalog.ScenarioID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tableSelected() {
		return catalog.Unset, ErrTableNotSelected
	}
	if !s.externalConfigured() {
		slog.Warn("selector: external scenario is not configured, using max")
		s.external.set(catalog.Max, -1)
		return catalog.Max, nil
	}
	id, err := ClassifyExternal(snap)
	if err != nil {
		return catalog.Unset, fmt.Errorf("external: %w", err)
	}
	s.external.set(id, s.catalog.Ticks(id))
	return id, nil
}

func (s *Selector) externalConfigured() bool {
	for id := catalog.ExtRearSingle; id <= catalog.ExtFrontSecure; id++ {
		if s.table.Configured(id) {
			return true
		}
	}
	return false
}

// #endregion external

// #region accessors

// Static returns a copy of the static slot.
func (s *Selector) Static() Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.static
}

// Dynamic returns a copy of the dynamic slot.
func (s *Selector) Dynamic() Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dynamic
}

// External returns a copy of the external slot.
func (s *Selector) External() Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.external
}

// Reset clears every slot; called when the stream closes.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static = newSlot(SlotStatic)
	s.dynamic = newSlot(SlotDynamic)
	s.external = newSlot(SlotExternal)
}

// #endregion accessors
