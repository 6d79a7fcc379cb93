package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/applier"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/catalog"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/dual"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/floor"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/logging"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/selector"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/state"
)

// #region instance
// Instance is one open camera stream with its own selector slots.
type Instance struct {
	ID        string
	Index     int
	SessionID string
	Selector  *selector.Selector

	streaming bool
	frames    int64
}

// Streaming reports whether StartStream succeeded for the instance.
func (i *Instance) Streaming() bool {
	return i.streaming
}

// #endregion instance

// #region engine
// Engine runs scenario selection and floor application for every open
// camera instance of one device. The catalog, table, applier and dual
// tracker are shared; each instance owns its selector.
type Engine struct {
	mu        sync.Mutex // the DVFS lock: held across a whole frame decision
	cfg       Config
	sink      applier.Sink
	selection *floor.Selection
	applier   *applier.Applier
	tracker   *dual.Tracker

	instances map[string]*Instance
	next      int
	userQoS   bool
	bts       int
	llcOn     bool
	store     *state.Store
}

// New creates an Engine that sends floor requests to sink.
func New(cfg Config, sink applier.Sink) *Engine {
	sel := &floor.Selection{}
	return &Engine{
		cfg:       cfg,
		sink:      sink,
		selection: sel,
		applier:   applier.New(cfg.Table, sel, sink, cfg.Features),
		tracker:   dual.New(cfg.Dual),
		instances: make(map[string]*Instance),
	}
}

// AttachStore persists sessions, applied floors and every decision to s.
func (e *Engine) AttachStore(s *state.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = s
}

// #endregion engine

// #region lifecycle
// OpenInstance registers a camera instance.
func (e *Engine) OpenInstance() *Instance {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst := &Instance{
		ID:       uuid.New().String(),
		Index:    e.next,
		Selector: selector.New(e.cfg.Catalog, e.cfg.Table, e.selection),
	}
	e.next++
	e.instances[inst.ID] = inst
	slog.Info("engine: instance opened", "id", inst.ID, "index", inst.Index)
	return inst
}

// CloseInstance clears the instance's slots. When the last instance closes
// the dual tracker and the table selection are reset and the cache
// allocation is released.
func (e *Engine) CloseInstance(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.lookup(id)
	if err != nil {
		return err
	}
	inst.Selector.Reset()
	inst.streaming = false
	delete(e.instances, id)

	if e.store != nil && inst.SessionID != "" {
		if err := e.store.CloseSession(inst.SessionID); err != nil {
			slog.Warn("engine: close session failed", "session", inst.SessionID, "err", err)
		}
	}

	if len(e.instances) == 0 {
		e.tracker.Reset()
		e.selection.Reset()
		if err := e.releaseLLC(); err != nil {
			return fmt.Errorf("close instance: %w", err)
		}
	}
	slog.Info("engine: instance closed", "id", id, "frames", inst.frames)
	return nil
}

// StartStream selects the floor table for halVersion if none is selected
// yet, then resolves and applies the static scenario. Errors are fatal for
// the stream.
func (e *Engine) StartStream(id, halVersion string, in snapshot.Input) (FrameResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.lookup(id)
	if err != nil {
		return FrameResult{}, err
	}
	tableIdx, err := e.selectTable(halVersion)
	if err != nil {
		return FrameResult{}, fmt.Errorf("start stream: %w", err)
	}
	e.openSession(inst, halVersion, tableIdx)

	snap := e.snapshot(in)
	sid, err := inst.Selector.SelectStatic(snap)
	if err != nil {
		e.report(inst, FrameResult{
			Category: string(catalog.CategoryStatic),
			Action:   ActionError,
			Scenario: catalog.Unset,
			Reason:   err.Error(),
			Ticks:    -1,
		})
		return FrameResult{}, fmt.Errorf("start stream: %w", err)
	}
	if err := e.apply(inst, catalog.CategoryStatic, sid, false); err != nil {
		return FrameResult{}, fmt.Errorf("start stream: %w", err)
	}
	inst.streaming = true

	res := e.report(inst, FrameResult{
		Category: string(catalog.CategoryStatic),
		Action:   ActionSelect,
		Scenario: sid,
		Reason:   "stream start",
		Ticks:    inst.Selector.Static().Ticks.Int(),
	})
	if err := e.allocLLC(snap); err != nil {
		return res, fmt.Errorf("start stream: %w", err)
	}
	return res, nil
}

// StartExternal resolves and applies the scenario of a sensor-only stream,
// one that bypasses the ISP chain.
func (e *Engine) StartExternal(id, halVersion string, in snapshot.Input) (FrameResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.lookup(id)
	if err != nil {
		return FrameResult{}, err
	}
	tableIdx, err := e.selectTable(halVersion)
	if err != nil {
		return FrameResult{}, fmt.Errorf("start external: %w", err)
	}
	e.openSession(inst, halVersion, tableIdx)

	sid, err := inst.Selector.SelectExternal(e.snapshot(in))
	if err != nil {
		e.report(inst, FrameResult{
			Category: string(catalog.CategoryExternal),
			Action:   ActionError,
			Scenario: catalog.Unset,
			Reason:   err.Error(),
			Ticks:    -1,
		})
		return FrameResult{}, fmt.Errorf("start external: %w", err)
	}
	if err := e.apply(inst, catalog.CategoryExternal, sid, false); err != nil {
		return FrameResult{}, fmt.Errorf("start external: %w", err)
	}
	inst.streaming = true
	return e.report(inst, FrameResult{
		Category: string(catalog.CategoryExternal),
		Action:   ActionSelect,
		Scenario: sid,
		Reason:   "external stream start",
		Ticks:    -1,
	}), nil
}

func (e *Engine) selectTable(halVersion string) (int, error) {
	if idx, ok := e.selection.Index(); ok {
		return idx, nil
	}
	idx, err := e.selection.Select(halVersion, e.cfg.Table.TableCount())
	if _, ok := e.selection.Index(); !ok {
		return 0, err
	}
	if err != nil {
		slog.Warn("engine: hal version not recognized, using table", "idx", idx, "err", err)
	}
	return idx, nil
}

// #endregion lifecycle

// #region frame
// ProcessFrame runs the per-frame decision for one instance under the DVFS
// lock: dual mode tracking, the dual debounce, dynamic selection, the
// restore of the static scenario when a dynamic hold expires, and the
// re-apply after a throttle change.
func (e *Engine) ProcessFrame(id string, f Frame) ([]FrameResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	if !inst.streaming {
		return nil, fmt.Errorf("process frame %s: %w", id, ErrNotStreaming)
	}
	if f.Seq > 0 {
		inst.frames = f.Seq
	} else {
		inst.frames++
	}

	limited := e.applier.State().LimitedFPS
	target := f.TargetFPS
	if limited > 0 {
		target = limited
	}
	e.tracker.Update(dual.FrameObservation{
		SensorMap:    f.Input.SensorMap,
		Position:     f.Position,
		HeadIsSensor: f.HeadIsSensor,
		TargetFPS:    target,
		Throttled:    limited > 0,
		OutputWidth:  f.OutputWidth,
		OutputHeight: f.OutputHeight,
	})

	if e.userQoS || e.cfg.Disabled {
		return nil, nil
	}

	var out []FrameResult

	if r, ok, err := e.dualDVFSUpdate(inst, f); ok {
		out = append(out, r)
		if err != nil {
			return out, err
		}
	}

	gate := selector.DynamicGate{Reprocessing: f.Reprocessing, Fusing: e.tracker.Mode().Fusing()}
	capture := f.Input
	capture.Capture = true
	dec, err := inst.Selector.SelectDynamic(e.snapshot(capture), gate)
	restore := false
	switch {
	case err != nil:
		out = append(out, e.report(inst, FrameResult{
			Category: string(catalog.CategoryDynamic),
			Action:   ActionError,
			Scenario: dec.Scenario,
			Reason:   err.Error(),
			Ticks:    dec.Ticks,
		}))
		restore = dec.Ticks == 0
	case dec.Action == ActionSelect && dec.Scenario > 0:
		if err := e.apply(inst, catalog.CategoryDynamic, dec.Scenario, f.Reprocessing); err != nil {
			out = append(out, e.failed(inst, catalog.CategoryDynamic, dec.Scenario, err))
			return out, err
		}
		out = append(out, e.report(inst, FrameResult{
			Category: string(catalog.CategoryDynamic),
			Action:   ActionSelect,
			Scenario: dec.Scenario,
			Reason:   dec.Reason,
			Ticks:    dec.Ticks,
		}))
	case dec.Action == ActionHold:
		out = append(out, e.report(inst, FrameResult{
			Category: string(catalog.CategoryDynamic),
			Action:   ActionHold,
			Scenario: dec.Scenario,
			Reason:   dec.Reason,
			Ticks:    dec.Ticks,
		}))
	case dec.Action == ActionNotApplicable && dec.Ticks == 0:
		restore = true
	}

	// A hold that ends without a new dynamic scenario hands the floors back
	// to the static scenario.
	if restore {
		sid := inst.Selector.Static().Current
		if err := e.apply(inst, catalog.CategoryStatic, sid, false); err != nil {
			out = append(out, e.failed(inst, catalog.CategoryStatic, sid, err))
			return out, err
		}
		out = append(out, e.report(inst, FrameResult{
			Category: string(catalog.CategoryStatic),
			Action:   ActionRestore,
			Scenario: sid,
			Reason:   "dynamic hold expired: " + dec.Reason,
			Ticks:    0,
		}))
	}

	if e.applier.Pending(inst.Index) {
		if sid := inst.Selector.Static().Current; sid > 0 {
			if err := e.apply(inst, catalog.CategoryStatic, sid, false); err != nil {
				out = append(out, e.failed(inst, catalog.CategoryStatic, sid, err))
				return out, err
			}
			out = append(out, e.report(inst, FrameResult{
				Category: string(catalog.CategoryStatic),
				Action:   ActionThrottle,
				Scenario: sid,
				Reason:   fmt.Sprintf("limited fps %d", e.applier.State().LimitedFPS),
				Ticks:    -1,
			}))
		}
	}
	return out, nil
}

// DualDVFSUpdate runs the dual debounce for one frame. When the counter
// reaches zero the static scenario is re-selected and applied if it
// changed. ok is false when nothing was decided.
func (e *Engine) DualDVFSUpdate(id string, f Frame) (res FrameResult, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.lookup(id)
	if err != nil {
		return FrameResult{}, false, err
	}
	return e.dualDVFSUpdate(inst, f)
}

func (e *Engine) dualDVFSUpdate(inst *Instance, f Frame) (FrameResult, bool, error) {
	tr := e.tracker.Tick(f.Input.SensorMap, f.HeadIsSensor)
	if tr.Invalid {
		return e.report(inst, FrameResult{
			Category: CategoryDual,
			Action:   ActionError,
			Scenario: catalog.Unset,
			Reason:   fmt.Sprintf("invalid dual transition %s -> %s", tr.From, tr.To),
			Ticks:    tr.Tick,
		}), true, nil
	}
	if !tr.Trigger {
		return FrameResult{}, false, nil
	}

	prev := inst.Selector.Static().Current
	sid, err := inst.Selector.SelectStatic(e.snapshot(f.Input))
	if err != nil {
		return e.report(inst, FrameResult{
			Category: CategoryDual,
			Action:   ActionError,
			Scenario: prev,
			Reason:   err.Error(),
			Ticks:    tr.Tick,
		}), true, nil
	}
	if sid < 0 || sid == prev {
		return e.report(inst, FrameResult{
			Category: CategoryDual,
			Action:   ActionSkip,
			Scenario: sid,
			Reason:   fmt.Sprintf("static scenario unchanged (%s -> %s)", tr.From, tr.To),
			Ticks:    tr.Tick,
		}), true, nil
	}
	if err := e.apply(inst, catalog.CategoryStatic, sid, false); err != nil {
		return e.failed(inst, catalog.CategoryStatic, sid, err), true, err
	}
	return e.report(inst, FrameResult{
		Category: CategoryDual,
		Action:   ActionSelect,
		Scenario: sid,
		Reason:   fmt.Sprintf("dual mode %s -> %s", tr.From, tr.To),
		Ticks:    tr.Tick,
	}), true, nil
}

// #endregion frame

// #region controls
// SetLimitedFPS asserts (n > 0) or clears (n == 0) frame-rate limiting and
// marks every open instance to re-apply its static scenario.
func (e *Engine) SetLimitedFPS(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n < 0 {
		return fmt.Errorf("limited fps %d: must not be negative", n)
	}
	idxs := make([]int, 0, len(e.instances))
	for _, inst := range e.instances {
		idxs = append(idxs, inst.Index)
	}
	if err := e.applier.SetThrottle(n, idxs...); err != nil {
		return fmt.Errorf("limited fps %d: %w", n, err)
	}
	slog.Info("engine: limited fps", "fps", n, "instances", len(idxs))
	return nil
}

// SetUserQoS pins the floors: while on, frames are tracked but no scenario
// is selected or applied.
func (e *Engine) SetUserQoS(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userQoS = on
}

// #endregion controls

// #region accessors
// Instance returns a copy of the instance's bookkeeping.
func (e *Engine) Instance(id string) (Instance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Applied returns a copy of the process-wide applied state.
func (e *Engine) Applied() applier.State {
	return e.applier.State()
}

// DualState returns a copy of the dual tracker state.
func (e *Engine) DualState() dual.State {
	return e.tracker.State()
}

// Catalog returns the scenario catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cfg.Catalog
}

// #endregion accessors

// #region helpers
func (e *Engine) lookup(id string) (*Instance, error) {
	inst, ok := e.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, ErrUnknownInstance)
	}
	return inst, nil
}

// snapshot fills the engine-owned fields of in and classifies it.
func (e *Engine) snapshot(in snapshot.Input) snapshot.Snapshot {
	st := e.tracker.State()
	in.DualEngaged = st.Mode != dual.ModeNone
	in.MaxFPS = st.MaxFPS
	in.Throttled = e.applier.Throttled()
	in.Standby = e.cfg.Dual.Standby
	return snapshot.Build(in, e.cfg.Layout)
}

func (e *Engine) apply(inst *Instance, category catalog.Category, id catalog.ScenarioID, reprocessing bool) error {
	res, err := e.applier.Apply(applier.Target{Instance: inst.Index, Reprocessing: reprocessing}, id)
	if err != nil {
		return err
	}
	if err := e.configureBTS(id); err != nil {
		return err
	}
	e.recordApply(inst, category, res)
	return nil
}

func (e *Engine) failed(inst *Instance, category catalog.Category, id catalog.ScenarioID, err error) FrameResult {
	return e.report(inst, FrameResult{
		Category: string(category),
		Action:   ActionError,
		Scenario: id,
		Reason:   err.Error(),
		Ticks:    -1,
	})
}

// report stamps r with the instance's frame and scenario name and logs it.
func (e *Engine) report(inst *Instance, r FrameResult) FrameResult {
	r.Frame = inst.frames
	if r.Scenario.Valid() {
		r.Name = e.cfg.Catalog.Name(r.Scenario)
	}
	slog.Debug("engine: decision",
		"instance", inst.Index, "frame", r.Frame, "category", r.Category,
		"action", r.Action, "scenario", r.Name, "ticks", r.Ticks)

	if e.store == nil || inst.SessionID == "" {
		return r
	}
	err := logging.LogDecision(e.store.DB(), logging.DecisionEntry{
		SessionID:    inst.SessionID,
		Frame:        r.Frame,
		Category:     r.Category,
		Action:       r.Action,
		ScenarioID:   int(r.Scenario),
		ScenarioName: r.Name,
		DualMode:     string(e.tracker.Mode()),
		Ticks:        r.Ticks,
		Reason:       r.Reason,
	})
	if err != nil {
		slog.Warn("engine: decision not persisted", "err", err)
	}
	return r
}

func (e *Engine) openSession(inst *Instance, halVersion string, tableIdx int) {
	if e.store == nil || inst.SessionID != "" {
		return
	}
	sess, err := e.store.OpenSession(inst.Index, halVersion, tableIdx)
	if err != nil {
		slog.Warn("engine: session not persisted", "err", err)
		return
	}
	inst.SessionID = sess.SessionID
}

func (e *Engine) recordApply(inst *Instance, category catalog.Category, res applier.Result) {
	if e.store == nil || inst.SessionID == "" {
		return
	}
	st := e.applier.State()
	floors := make(map[string]int)
	for _, r := range floor.Resources() {
		if e.cfg.Features.Drives(r) {
			floors[r.String()] = st.Effective(r)
		}
	}
	_, err := e.store.RecordApply(state.AppliedRecord{
		SessionID:    inst.SessionID,
		ScenarioID:   int(res.Scenario),
		ScenarioName: e.cfg.Catalog.Name(res.Scenario),
		Category:     string(category),
		Floors:       floors,
		CPUs:         st.CPUs,
		Throttled:    st.LimitedFPS > 0,
		Writes:       res.Writes,
	})
	if err != nil {
		slog.Warn("engine: apply not persisted", "err", err)
	}
}

// #endregion helpers
